package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"perpbot/internal/logger"
)

// OpenAIChatClient 兼容 OpenAI / DeepSeek / Qwen 的聊天补全接口（/v1/chat/completions）。
type OpenAIChatClient struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// 429/5xx 重试次数；0 表示默认 2 次，负数表示不重试
	MaxRetries   int
	ExtraHeaders map[string]string

	HTTPClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ ModelProvider = (*OpenAIChatClient)(nil)

func (c *OpenAIChatClient) ID() string {
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = "gpt-4"
	}
	return "openai:" + model
}

func (c *OpenAIChatClient) endpoint() string {
	url := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	// 用户可能把完整的 /chat/completions 写进了配置
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Call 发送请求；仅对 429/5xx 重试，支持 Retry-After。
func (c *OpenAIChatClient) Call(ctx context.Context, payload ChatPayload) (string, error) {
	if strings.TrimSpace(payload.User) == "" {
		return "", errors.New("empty user prompt")
	}
	maxRetries := c.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = 2
	case maxRetries < 0:
		maxRetries = 0
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = "gpt-4"
	}
	temperature := c.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	msgs := make([]chatMessage, 0, 2)
	if payload.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: payload.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: payload.User})
	body, err := json.Marshal(chatRequest{Model: model, Messages: msgs, Temperature: temperature, MaxTokens: payload.MaxTokens})
	if err != nil {
		return "", err
	}
	url := c.endpoint()
	logger.Debugf("[AI] 请求: POST %s model=%s auth=%s", url, model, maskKey(c.APIKey))
	logger.LogLLMRequest(c.ID(), payload.Purpose, payload.System, payload.User, string(body))

	httpc := c.HTTPClient
	if httpc == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	sleep := c.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if readErr != nil {
			return "", fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode/100 == 2 {
			var r chatResponse
			if err := json.Unmarshal(raw, &r); err != nil {
				return "", fmt.Errorf("decode response: %w", err)
			}
			if len(r.Choices) == 0 {
				return "", errors.New("empty choices")
			}
			out := strings.TrimSpace(r.Choices[0].Message.Content)
			logger.LogLLMResponse(c.ID(), payload.Purpose, out)
			return out, nil
		}

		var eresp chatError
		_ = json.Unmarshal(raw, &eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryable(resp.StatusCode) || attempt == maxRetries {
			break
		}
		wait := retryAfter(resp.Header.Get("Retry-After"), attempt)
		logger.Warnf("[AI] %s 第 %d 次请求失败 (%v)，%s 后重试", c.ID(), attempt+1, lastErr, wait)
		if err := sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter 优先使用 Retry-After 秒数，否则指数退避 0.8s, 1.6s, 3.2s ... 上限 8s。
func retryAfter(header string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	wait := (800 * time.Millisecond) << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// maskKey 只保留后 4 位。
func maskKey(key string) string {
	if key == "" {
		return "none"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
