package storacha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"perpbot/internal/logger"
	"perpbot/internal/pkg/text"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultGateway = "https://ipfs.io/ipfs/"
	// NoCID 是上传成功但响应中找不到 CID 时的返回值。
	NoCID = "No CID found"
)

// ErrNotConfigured 表示未配置 MCP REST 地址。
var ErrNotConfigured = errors.New("storacha MCP REST url not configured")

// Client 通过 MCP REST 的 tools/call upload 上传文本。
type Client struct {
	url     string
	gateway string
	http    *http.Client
}

func New(url, gateway string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	gateway = strings.TrimSpace(gateway)
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Client{
		url:     strings.TrimSpace(url),
		gateway: gateway,
		http:    &http.Client{Timeout: timeout},
	}
}

// GatewayURL 返回 CID 的公共网关地址。
func (c *Client) GatewayURL(cid string) string {
	return c.gateway + cid
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

// Upload 上传 content 并返回 CID。
func (c *Client) Upload(ctx context.Context, content string) (string, error) {
	if c.url == "" {
		return "", ErrNotConfigured
	}
	name := "report-" + uuid.NewString()[:8] + ".txt"
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "upload-request",
		Method:  "tools/call",
		Params: rpcParams{
			Name: "upload",
			Arguments: map[string]string{
				"file": base64.StdEncoding.EncodeToString([]byte(content)),
				"name": name,
			},
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("status=%d: %s", resp.StatusCode, text.Truncate(string(raw), 200))
	}
	cid, err := ExtractCID(raw)
	if err != nil {
		return "", err
	}
	logger.Infof("[storacha] uploaded %s (%d bytes) cid=%s", name, len(content), cid)
	return cid, nil
}

// ExtractCID 解析 result.content[0].text 中的工具输出：root["/"] 优先，否则取第一个文件的 "/"。
func ExtractCID(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", errors.New("invalid JSON-RPC response")
	}
	if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
		return "", fmt.Errorf("rpc error: %s", msg.String())
	}
	inner := gjson.GetBytes(raw, "result.content.0.text")
	if !inner.Exists() {
		return "", errors.New("missing result.content[0].text")
	}
	if !gjson.Valid(inner.String()) {
		return "", fmt.Errorf("tool output is not JSON: %s", text.Truncate(inner.String(), 120))
	}
	out := gjson.Parse(inner.String())
	if root := out.Get(`root./`); root.Exists() && root.String() != "" {
		return root.String(), nil
	}
	var cid string
	out.Get("files").ForEach(func(_, file gjson.Result) bool {
		if v := file.Get(`/`); v.Exists() && v.String() != "" {
			cid = v.String()
			return false
		}
		return true
	})
	if cid != "" {
		return cid, nil
	}
	return NoCID, nil
}
