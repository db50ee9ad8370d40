package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"perpbot/internal/logger"
)

// Command 是收到的一条斜杠命令。
type Command struct {
	ChatID string
	Name   string
	Args   []string
	Text   string
}

// ParseCommand 解析 "/auto@bot arg1 arg2"；非命令返回 ok=false。
func ParseCommand(chatID, raw string) (Command, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") {
		return Command{}, false
	}
	fields := strings.Fields(raw)
	name := strings.TrimPrefix(fields[0], "/")
	if idx := strings.IndexByte(name, '@'); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return Command{}, false
	}
	return Command{ChatID: chatID, Name: strings.ToLower(name), Args: fields[1:], Text: raw}, true
}

// Reply 向命令来源的会话回复一条消息。
type Reply func(text string)

// CommandHandler 处理一条命令；可以多次调用 reply。
type CommandHandler func(ctx context.Context, cmd Command, reply Reply)

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Poll 长轮询 getUpdates，直到 ctx 结束。每条命令在独立 goroutine 中处理，
// 返回前等待进行中的处理结束。
func (t *Telegram) Poll(ctx context.Context, handler CommandHandler) error {
	if t.BotToken == "" {
		return fmt.Errorf("telegram bot token not configured")
	}
	var (
		offset int64
		wg     sync.WaitGroup
	)
	defer wg.Wait()
	client := &http.Client{Timeout: 35 * time.Second}
	if t.ChatID == "" {
		logger.Warnf("[telegram] chat_id not configured, accepting commands from any chat")
	}
	logger.Infof("[telegram] polling started")

	for {
		if ctx.Err() != nil {
			logger.Infof("[telegram] polling stopped")
			return nil
		}
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				logger.Infof("[telegram] polling stopped")
				return nil
			}
			logger.Warnf("[telegram] polling failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
			cmd, ok := ParseCommand(chatID, u.Message.Text)
			if !ok {
				continue
			}
			if !t.allowed(chatID) {
				logger.Warnf("[telegram] ignore /%s from unauthorized chat %s", cmd.Name, chatID)
				continue
			}
			logger.Infof("[telegram] command /%s from chat %s", cmd.Name, chatID)
			wg.Add(1)
			go func() {
				defer wg.Done()
				handler(ctx, cmd, func(msg string) {
					// 回复使用独立超时，避免 ctx 结束时丢失最后一条消息
					sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
					defer cancel()
					if err := t.SendTo(sendCtx, cmd.ChatID, msg); err != nil {
						logger.Errorf("[telegram] reply /%s: %v", cmd.Name, err)
					}
				})
			}()
		}
	}
}

// allowed 只接受配置的会话；未配置 ChatID 时不限制。
func (t *Telegram) allowed(chatID string) bool {
	return t.ChatID == "" || t.ChatID == chatID
}

func (t *Telegram) getUpdates(ctx context.Context, client *http.Client, offset int64) ([]telegramUpdate, error) {
	url := fmt.Sprintf("%s?offset=%d&timeout=30", t.endpoint("getUpdates"), offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read polling response: %w", err)
	}
	var result struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode polling response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates: %s", result.Description)
	}
	return result.Result, nil
}
