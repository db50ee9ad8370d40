package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"perpbot/internal/app"
	"perpbot/internal/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP / Telegram / 定时任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := loadRuntime()
			if err != nil {
				return err
			}
			defer cleanup()
			a, err := app.NewApp(cfg, cfgPath)
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()
			return a.Run(ctx)
		},
	}
}

// withService 构建应用但不启动任何入口，只用其中的交易周期服务。
func withService(fn func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, cleanup, err := loadRuntime()
		if err != nil {
			return err
		}
		defer cleanup()
		cfg.HTTP.Enabled = false
		cfg.Schedule.Enabled = false
		cfg.Notify.Telegram.Enabled = false
		a, err := app.NewApp(cfg, "")
		if err != nil {
			return fmt.Errorf("初始化应用失败: %w", err)
		}
		defer a.Close()
		return fn(cmd, a)
	}
}

func cycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "执行一次交易周期并输出报告",
		RunE: withService(func(cmd *cobra.Command, a *app.App) error {
			ctx, cancel := signalContext()
			defer cancel()
			for _, msg := range a.Service().CycleReplies(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return nil
		}),
	}
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "只读分析一个交易对，不下单",
		Args:  cobra.ExactArgs(1),
		RunE: withService(func(cmd *cobra.Command, a *app.App) error {
			ctx, cancel := signalContext()
			defer cancel()
			snap, err := a.Service().Analyze(ctx, cmd.Flags().Arg(0))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Text())
			return nil
		}),
	}
}

func tradesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trades",
		Short: "列出交易记录",
		RunE: withService(func(cmd *cobra.Command, a *app.App) error {
			ctx, cancel := signalContext()
			defer cancel()
			msgs, err := a.Service().ListTrades(ctx)
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return nil
		}),
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "输出生效配置（密钥已遮蔽）",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			out, err := cfg.Masked().DumpYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "perpbot version %s\n", version)
		},
	}
}
