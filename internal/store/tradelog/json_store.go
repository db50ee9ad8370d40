package tradelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"perpbot/internal/logger"
)

// JSONStore 把全部记录保存为单个 JSON 数组文件。
// Append 在同一把锁内完成 load-append-save，避免并发周期丢失更新。
type JSONStore struct {
	path   string
	schema *jsonschema.Schema
	mu     sync.Mutex
}

func NewJSONStore(path string) (*JSONStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("tradelog: 文件路径不能为空")
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("tradelog: compile schema: %w", err)
	}
	return &JSONStore{path: path, schema: schema}, nil
}

func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Load(ctx context.Context) ([]TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

func (s *JSONStore) Save(ctx context.Context, records []TradeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

func (s *JSONStore) Append(ctx context.Context, rec TradeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.load()
	return s.save(append(records, rec))
}

func (s *JSONStore) load() []TradeRecord {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warnf("[tradelog] read %s: %v", s.path, err)
		}
		return []TradeRecord{}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []TradeRecord{}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Warnf("[tradelog] %s 不是合法 JSON，按空日志处理: %v", s.path, err)
		return []TradeRecord{}
	}
	if err := s.schema.Validate(doc); err != nil {
		logger.Warnf("[tradelog] %s 结构校验失败，按空日志处理: %v", s.path, err)
		return []TradeRecord{}
	}
	var records []TradeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		logger.Warnf("[tradelog] decode %s: %v", s.path, err)
		return []TradeRecord{}
	}
	if records == nil {
		records = []TradeRecord{}
	}
	return records
}

// save 先写同目录临时文件再 rename，保证覆盖是原子的。
func (s *JSONStore) save(records []TradeRecord) error {
	if records == nil {
		records = []TradeRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("tradelog: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tradelog: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("tradelog: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tradelog: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tradelog: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tradelog: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("tradelog: replace %s: %w", s.path, err)
	}
	return nil
}
