package storacha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcReply(toolOutput string) string {
	b, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      "upload-request",
		"result": map[string]any{
			"content": []map[string]string{{"type": "text", "text": toolOutput}},
		},
	})
	return string(b)
}

func TestUploadRootCID(t *testing.T) {
	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, rpcReply(`{"root":{"/":"bafyroot"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	cid, err := c.Upload(context.Background(), "hello report")
	require.NoError(t, err)
	assert.Equal(t, "bafyroot", cid)
	assert.Equal(t, "https://ipfs.io/ipfs/bafyroot", c.GatewayURL(cid))

	assert.Equal(t, "tools/call", got.Method)
	assert.Equal(t, "upload", got.Params.Name)
	decoded, err := base64.StdEncoding.DecodeString(got.Params.Arguments["file"])
	require.NoError(t, err)
	assert.Equal(t, "hello report", string(decoded))
	assert.True(t, strings.HasSuffix(got.Params.Arguments["name"], ".txt"))
}

func TestExtractCID(t *testing.T) {
	cid, err := ExtractCID([]byte(rpcReply(`{"files":{"report.txt":{"/":"bafyfile"}}}`)))
	require.NoError(t, err)
	assert.Equal(t, "bafyfile", cid)

	cid, err = ExtractCID([]byte(rpcReply(`{"ok":true}`)))
	require.NoError(t, err)
	assert.Equal(t, NoCID, cid)

	_, err = ExtractCID([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"quota exceeded"}}`))
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = ExtractCID([]byte(rpcReply(`not json`)))
	assert.Error(t, err)

	_, err = ExtractCID([]byte(`<html>`))
	assert.Error(t, err)
}

func TestUploadFailures(t *testing.T) {
	_, err := New("", "", time.Second).Upload(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err = New(srv.URL, "", time.Second).Upload(context.Background(), "x")
	assert.ErrorContains(t, err, "status=502")
}
