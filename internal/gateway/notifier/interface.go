package notifier

import "context"

// TextNotifier defines a minimal text notification interface.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// Nop 丢弃所有消息，用于未启用通知时。
type Nop struct{}

func (Nop) SendText(context.Context, string) error { return nil }
