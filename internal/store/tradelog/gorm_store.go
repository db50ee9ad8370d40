package tradelog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tradeRecordModel struct {
	ID       int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Symbol   string         `gorm:"column:symbol;index"`
	Datetime string         `gorm:"column:datetime"`
	CID      string         `gorm:"column:cid"`
	TraceID  string         `gorm:"column:trace_id"`
	Side     string         `gorm:"column:side"`
	Strength float64        `gorm:"column:strength"`
	Meta     datatypes.JSON `gorm:"column:meta;type:TEXT"`
}

func (tradeRecordModel) TableName() string { return "trade_records" }

// GormStore 是 sqlite 后端的交易日志，行号即追加顺序。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("tradelog: sqlite 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("tradelog: open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&tradeRecordModel{}); err != nil {
		return nil, fmt.Errorf("tradelog: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Load(ctx context.Context) ([]TradeRecord, error) {
	var rows []tradeRecordModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("tradelog: load: %w", err)
	}
	out := make([]TradeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// Save 在一个事务里用 records 替换全部行。
func (s *GormStore) Save(ctx context.Context, records []TradeRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&tradeRecordModel{}).Error; err != nil {
			return err
		}
		for _, rec := range records {
			row := toModel(rec)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) Append(ctx context.Context, rec TradeRecord) error {
	row := toModel(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("tradelog: append: %w", err)
	}
	return nil
}

func toModel(rec TradeRecord) tradeRecordModel {
	row := tradeRecordModel{
		Symbol:   rec.Symbol,
		Datetime: rec.Datetime,
		CID:      rec.CID,
		TraceID:  rec.TraceID,
		Side:     rec.Side,
		Strength: rec.Strength,
	}
	if len(rec.Meta) > 0 {
		if raw, err := json.Marshal(rec.Meta); err == nil {
			row.Meta = datatypes.JSON(raw)
		}
	}
	return row
}

func fromModel(row tradeRecordModel) TradeRecord {
	rec := TradeRecord{
		Symbol:   row.Symbol,
		Datetime: row.Datetime,
		CID:      row.CID,
		TraceID:  row.TraceID,
		Side:     row.Side,
		Strength: row.Strength,
	}
	if len(row.Meta) > 0 {
		var meta map[string]string
		if err := json.Unmarshal(row.Meta, &meta); err == nil && len(meta) > 0 {
			rec.Meta = meta
		}
	}
	return rec
}
