package provider

import "context"

// ChatPayload 是一次单轮对话请求。
type ChatPayload struct {
	Purpose   string
	System    string
	User      string
	MaxTokens int
}

// ModelProvider 是文本补全服务。
type ModelProvider interface {
	ID() string
	Call(ctx context.Context, payload ChatPayload) (string, error)
}
