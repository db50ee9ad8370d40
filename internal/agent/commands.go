package agent

import (
	"context"

	"perpbot/internal/gateway/notifier"
	"perpbot/internal/logger"
	"perpbot/internal/report"
)

// HandleCommand 处理聊天命令：/auto 执行一次周期，/trades 列出交易记录，/analyze 只评分不下单。
func (s *Service) HandleCommand(ctx context.Context, cmd notifier.Command, reply notifier.Reply) {
	switch cmd.Name {
	case "auto":
		reply(report.MsgGenerating)
		for _, msg := range s.CycleReplies(ctx) {
			reply(msg)
		}
	case "trades":
		msgs, err := s.ListTrades(ctx)
		if err != nil {
			reply("Error loading trades: " + err.Error())
			return
		}
		for _, msg := range msgs {
			reply(msg)
		}
	case "analyze":
		if len(cmd.Args) == 0 {
			reply("Usage: /analyze BTC/USDT")
			return
		}
		snap, err := s.Analyze(ctx, cmd.Args[0])
		if err != nil {
			reply("Analysis failed: " + err.Error())
			return
		}
		reply(snap.Text())
	case "start", "help":
		reply("Commands:\n/auto - generate a signal and open a position\n/trades - list recorded trades\n/analyze SYMBOL - score a pair without trading")
	default:
		logger.Debugf("[agent] ignore command /%s", cmd.Name)
	}
}

// CycleReplies 执行一次周期并返回要发送的消息，失败时为单条错误说明。
func (s *Service) CycleReplies(ctx context.Context) []string {
	res, err := s.RunCycle(ctx)
	if err != nil {
		return []string{FailureReply(err)}
	}
	return res.Replies()
}
