package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"perpbot/internal/logger"
	"perpbot/internal/pkg/text"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	// Telegram 单条消息上限 4096 字符，留出余量。
	maxMessageLen = 4000
)

// Telegram 通过 Bot API 发送消息并接收命令。
type Telegram struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client

	retryDelay time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken:   strings.TrimSpace(botToken),
		ChatID:     strings.TrimSpace(chatID),
		APIBase:    defaultAPIBase,
		Client:     &http.Client{Timeout: 15 * time.Second},
		retryDelay: time.Second,
	}
}

func (t *Telegram) endpoint(method string) string {
	base := strings.TrimRight(t.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	return fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method)
}

// SendText 发送到默认 ChatID。
func (t *Telegram) SendText(ctx context.Context, msg string) error {
	if t.ChatID == "" {
		return errors.New("telegram chat_id not configured")
	}
	return t.SendTo(ctx, t.ChatID, msg)
}

// SendTo 发送纯文本消息，超长时按行拆成多条；每条最多 3 次尝试。
func (t *Telegram) SendTo(ctx context.Context, chatID, msg string) error {
	if t.BotToken == "" || chatID == "" {
		return errors.New("telegram 配置不完整")
	}
	for _, part := range text.SplitLines(msg, maxMessageLen) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if err := t.sendOnce(ctx, chatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telegram) sendOnce(ctx context.Context, chatID, msg string) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     msg,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return err
	}
	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * t.retryDelay):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d: %s", resp.StatusCode, text.Truncate(string(respBody), 200))
		if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
			break
		}
	}
	logger.Warnf("[telegram] send to %s failed: %v", chatID, lastErr)
	return lastErr
}
