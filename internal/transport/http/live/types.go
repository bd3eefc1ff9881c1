package livehttp

import (
	"context"
	"errors"

	"chartlink/internal/journal"
	"chartlink/internal/market"
	"chartlink/internal/measure"
	"chartlink/internal/render"
)

// ErrPaneNotFound 由 PaneService 在面板 id 未注册时返回。
var ErrPaneNotFound = errors.New("pane not found")

// PaneService 供 LiveService 实现，承接所有面板交互请求。
type PaneService interface {
	ListPanes(ctx context.Context) []PaneStatus
	PaneStatus(ctx context.Context, id string) (PaneStatus, error)
	InjectHover(ctx context.Context, id string, x, y float64) error
	ClearHover(ctx context.Context, id string) error
	InjectRange(ctx context.Context, id string, from, to int64) error
	InjectClick(ctx context.Context, id string, x, y float64) (MeasureStatus, error)
	ClearMeasurement(ctx context.Context, id string) error
	Measurement(ctx context.Context, id string) (MeasureStatus, error)
	SnapshotPNG(ctx context.Context, id string) (render.ImageResult, error)
	ListMeasurements(ctx context.Context, paneID string, limit int) ([]journal.MeasurementRecord, error)
	SourceStats(ctx context.Context) market.SourceStats
}

// PaneStatus 是单个面板的查询概要。
type PaneStatus struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Interval    string `json:"interval"`
	Timezone    string `json:"timezone"`
	Candles     int    `json:"candles"`
	VisibleFrom int    `json:"visible_from"`
	VisibleTo   int    `json:"visible_to"`
	Crosshair   *int   `json:"crosshair,omitempty"`
}

// MeasureStatus 汇总测量会话的可观测状态。
type MeasureStatus struct {
	State   measure.State   `json:"state"`
	Stats   *measure.Stats  `json:"stats,omitempty"`
	Overlay measure.Overlay `json:"overlay"`
}
