package agent

import "context"

// PairRanker 返回按流动性排序的候选交易对。
type PairRanker interface {
	Top(ctx context.Context, n int) ([]string, error)
}

// Overviewer 提供第三方 AI 行情概览。
type Overviewer interface {
	Overview(ctx context.Context, symbol string) (string, error)
}

// Uploader 上传报告正文并返回内容地址。
type Uploader interface {
	Upload(ctx context.Context, content string) (string, error)
	GatewayURL(cid string) string
}
