package tokenmetrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"perpbot/internal/logger"
	"perpbot/internal/pkg/text"
)

const (
	DefaultURL     = "https://api.tokenmetrics.com/v2/tmai"
	DefaultTimeout = 10 * time.Second
	// NoOverview 是响应里没有 answer 时的默认文本。
	NoOverview = "No AI overview available."
)

// Client 调用 TokenMetrics TMAI 问答接口。
type Client struct {
	url     string
	apiKey  string
	timeout time.Duration
	http    *fasthttp.Client
}

func New(url, apiKey string, timeout time.Duration) *Client {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:     url,
		apiKey:  strings.TrimSpace(apiKey),
		timeout: timeout,
		http:    &fasthttp.Client{Name: "perpbot"},
	}
}

// Question 是针对某个交易对的固定提问。
func Question(symbol string) string {
	return fmt.Sprintf("Should I long or short on %s now if yes what should be my entry price and stop loss", symbol)
}

// Overview 返回 TokenMetrics 的多空观点；answer 缺失时返回 NoOverview。
func (c *Client) Overview(ctx context.Context, symbol string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := json.Marshal(map[string]any{
		"messages": []map[string]string{{"user": Question(symbol)}},
	})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("accept", "application/json")
	req.Header.Set("api_key", c.apiKey)
	req.SetBody(body)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return "", fmt.Errorf("tokenmetrics request timed out: %w", err)
		}
		return "", fmt.Errorf("tokenmetrics request: %w", err)
	}
	if code := resp.StatusCode(); code/100 != 2 {
		return "", fmt.Errorf("tokenmetrics status=%d: %s", code, text.Truncate(string(resp.Body()), 200))
	}
	raw := resp.Body()
	if !gjson.ValidBytes(raw) {
		return "", errors.New("tokenmetrics returned invalid JSON")
	}
	answer := strings.TrimSpace(gjson.GetBytes(raw, "answer").String())
	if answer == "" {
		answer = NoOverview
	}
	logger.LogLLMResponse("tokenmetrics", "overview", answer)
	return answer, nil
}
