package report

import "strings"

// ErrorPrefix 是失败文本的保留前缀，交易日志的 cid 字段据此区分成功与失败。
const ErrorPrefix = "Error"

const (
	overviewErrPrefix = "Error fetching AI overview: "
	summaryErrPrefix  = "Error generating summary: "
	uploadErrPrefix   = "Error uploading to Storacha: "
)

// Text 是可能失败的叙述文本，只在渲染时转换成字符串。
type Text struct {
	Value string
	Err   error
}

func TextOf(value string, err error) Text { return Text{Value: value, Err: err} }

func (t Text) OK() bool { return t.Err == nil }

func (t Text) display(errPrefix string) string {
	if t.Err != nil {
		return errPrefix + t.Err.Error()
	}
	return t.Value
}

// Overview 渲染 AI 行情概览。
func (t Text) Overview() string { return t.display(overviewErrPrefix) }

// Summary 渲染模型总结。
func (t Text) Summary() string { return t.display(summaryErrPrefix) }

// Upload 是报告上传结果。
type Upload struct {
	CID string
	Err error
}

func UploadOf(cid string, err error) Upload { return Upload{CID: cid, Err: err} }

func (u Upload) Failed() bool { return u.Err != nil }

// Record 返回写入交易日志 cid 字段的值：成功为 CID，失败为带保留前缀的错误文本。
func (u Upload) Record() string {
	if u.Err != nil {
		return uploadErrPrefix + u.Err.Error()
	}
	return u.CID
}

// IsErrorCID 判断日志里的 cid 字段是否是失败文本。
func IsErrorCID(cid string) bool {
	return strings.HasPrefix(cid, ErrorPrefix)
}
