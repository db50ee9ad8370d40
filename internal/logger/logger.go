package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = newLogger(os.Stdout)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

// SetOutput 替换主日志输出。
func SetOutput(w io.Writer) {
	loggerMu.Lock()
	baseLogger = newLogger(w)
	loggerMu.Unlock()
}

// SetLevel 接受 debug/info/warn/error，未知值回落到 info。
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func activeLogger() *slog.Logger {
	loggerMu.RLock()
	l := baseLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(os.Stdout)
	}
	return baseLogger
}

func Debugf(format string, v ...any) {
	activeLogger().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	activeLogger().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	activeLogger().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	activeLogger().Error(fmt.Sprintf(format, v...))
}

// InfoBlock 逐行输出多行文本（例如交易报告）。
func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}

// Entry 携带固定字段（trace_id、symbol 等）的日志句柄。
type Entry struct {
	args []any
}

// With 返回带结构化字段的 Entry，字段在每次写日志时附加到当前输出。
func With(args ...any) Entry {
	return Entry{args: append([]any(nil), args...)}
}

// With 在已有字段基础上追加。
func (e Entry) With(args ...any) Entry {
	merged := make([]any, 0, len(e.args)+len(args))
	merged = append(merged, e.args...)
	merged = append(merged, args...)
	return Entry{args: merged}
}

func (e Entry) Debugf(format string, v ...any) {
	activeLogger().Debug(fmt.Sprintf(format, v...), e.args...)
}

func (e Entry) Infof(format string, v ...any) {
	activeLogger().Info(fmt.Sprintf(format, v...), e.args...)
}

func (e Entry) Warnf(format string, v ...any) {
	activeLogger().Warn(fmt.Sprintf(format, v...), e.args...)
}

func (e Entry) Errorf(format string, v ...any) {
	activeLogger().Error(fmt.Sprintf(format, v...), e.args...)
}
