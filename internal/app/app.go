package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"perpbot/internal/agent"
	"perpbot/internal/config"
	"perpbot/internal/gateway/notifier"
	"perpbot/internal/logger"
	"perpbot/internal/scheduler"
	apihttp "perpbot/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP、Telegram 与定时任务。
type App struct {
	cfg        *config.Config
	configPath string

	service   *agent.Service
	http      *apihttp.Server
	telegram  *notifier.Telegram
	scheduler *scheduler.CronScheduler
	closers   []io.Closer

	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。path 非空时 Run 期间监听配置变更。
func NewApp(cfg *config.Config, path string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, path)
}

// Run 启动所有已启用的入口，直到 ctx 结束或某个入口失败。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.service == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.http == nil && a.telegram == nil && a.scheduler == nil {
		return errors.New("nothing to run: enable http, telegram or schedule")
	}
	if a.configPath != "" {
		if err := config.Watch(a.configPath, a.reload); err != nil {
			logger.Warnf("[app] config watch disabled: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	if a.telegram != nil {
		group.Go(func() error {
			return a.telegram.Poll(ctx, a.service.HandleCommand)
		})
	}
	if a.scheduler != nil {
		group.Go(func() error {
			return a.scheduler.Run(ctx)
		})
	}
	return group.Wait()
}

// Service 暴露交易周期服务（CLI 子命令直接调用）。
func (a *App) Service() *agent.Service {
	if a == nil {
		return nil
	}
	return a.service
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// reload 只替换分析参数；连接类配置需要重启。
func (a *App) reload(cfg *config.Config) {
	a.service.UpdateAnalysis(AnalysisFromConfig(cfg))
	logger.SetLevel(cfg.App.LogLevel)
}

func (a *App) notifier() notifier.TextNotifier {
	if a.telegram == nil {
		return notifier.Nop{}
	}
	return a.telegram
}

// scheduledCycle 跑一个周期并把回复推送到默认会话。
func (a *App) scheduledCycle(ctx context.Context) {
	out := a.notifier()
	for _, msg := range a.service.CycleReplies(ctx) {
		if err := out.SendText(ctx, msg); err != nil {
			logger.Errorf("[app] push scheduled cycle reply: %v", err)
		}
	}
}
