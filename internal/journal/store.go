package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chartlink/internal/measure"
	"chartlink/internal/pane"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MeasurementRecord 是一条已完成的测量，落库供信息面板历史回看。
type MeasurementRecord struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	PaneID     string         `gorm:"index;size:64" json:"pane_id"`
	Symbol     string         `gorm:"size:32" json:"symbol"`
	Interval   string         `gorm:"size:16" json:"interval"`
	StartTime  int64          `json:"start_time"`
	EndTime    int64          `json:"end_time"`
	StartPrice float64        `json:"start_price"`
	EndPrice   float64        `json:"end_price"`
	Stats      datatypes.JSON `json:"stats"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (MeasurementRecord) TableName() string { return "measurements" }

// Store 用 Gorm + SQLite 持久化测量日志。
type Store struct {
	db *gorm.DB
}

// NewStore 打开（必要时创建）测量日志库。
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: 测量日志路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MeasurementRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Append 记录一条已完成测量。非 Completed 会话返回错误。
func (s *Store) Append(ctx context.Context, paneID, symbol, interval string, start, end pane.DomainPoint, stats measure.Stats) (MeasurementRecord, error) {
	if s == nil || s.db == nil {
		return MeasurementRecord{}, fmt.Errorf("journal: store not initialized")
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return MeasurementRecord{}, err
	}
	rec := MeasurementRecord{
		ID:         uuid.NewString(),
		PaneID:     paneID,
		Symbol:     symbol,
		Interval:   interval,
		StartTime:  start.Time,
		EndTime:    end.Time,
		StartPrice: start.Price,
		EndPrice:   end.Price,
		Stats:      datatypes.JSON(raw),
		CreatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return MeasurementRecord{}, err
	}
	return rec, nil
}

// List 返回指定面板（paneID 为空表示全部）最近的测量记录，新到旧。
func (s *Store) List(ctx context.Context, paneID string, limit int) ([]MeasurementRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&MeasurementRecord{}).Order("created_at DESC").Limit(limit)
	if strings.TrimSpace(paneID) != "" {
		q = q.Where("pane_id = ?", strings.TrimSpace(paneID))
	}
	var out []MeasurementRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Close 关闭底层连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
