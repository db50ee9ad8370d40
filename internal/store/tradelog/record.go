package tradelog

import (
	"context"
	"time"
)

// DatetimeLayout 是交易记录中 datetime 字段的格式（本地时间）。
const DatetimeLayout = "2006-01-02 15:04:05"

// TradeRecord 是一次完成的交易周期留下的审计记录，写入后不再修改。
// CID 是上传报告的内容地址；上传失败时为以 "Error" 开头的错误文本。
type TradeRecord struct {
	Symbol   string            `json:"symbol"`
	Datetime string            `json:"datetime"`
	CID      string            `json:"cid"`
	TraceID  string            `json:"trace_id,omitempty"`
	Side     string            `json:"side,omitempty"`
	Strength float64           `json:"strength,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Stamp 以本地时间格式化 datetime 字段。
func Stamp(t time.Time) string {
	return t.Local().Format(DatetimeLayout)
}

// TradeLog 是只追加的交易记录日志。
// Load 在文件缺失或损坏时返回空序列而不是错误。
type TradeLog interface {
	Load(ctx context.Context) ([]TradeRecord, error)
	Save(ctx context.Context, records []TradeRecord) error
	Append(ctx context.Context, rec TradeRecord) error
}
