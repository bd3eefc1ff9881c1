package measure

import (
	"time"

	"github.com/shopspring/decimal"

	"chartlink/internal/pane"
)

// State 是测量会话状态。
type State string

const (
	StateIdle          State = "idle"
	StateFirstPointSet State = "first_point_set"
	StateCompleted     State = "completed"
)

// Elapsed 是两点间隔，按最大整单位汇报：≥1天报天，否则≥1小时报小时，
// 否则报分钟。各档向下取整，不携带余数。
type Elapsed struct {
	Value int64  `json:"value"`
	Unit  string `json:"unit"` // "days" | "hours" | "minutes"
}

// Stats 是两点测量的派生统计。
type Stats struct {
	PriceDiff   float64 `json:"price_diff"`
	PctChange   float64 `json:"pct_change"`
	IsUp        bool    `json:"is_up"`
	CandleCount int     `json:"candle_count"`
	Elapsed     Elapsed `json:"elapsed"`
	StartLabel  string  `json:"start_label"`
	EndLabel    string  `json:"end_label"`
}

const labelLayout = "2006-01-02 15:04"

// computeStats 从起止点推导统计。价格运算走 decimal，避免浮点累积误差
// 污染百分比展示。时间戳按面板显示时区格式化。
func computeStats(start, end pane.DomainPoint, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	startPrice := decimal.NewFromFloat(start.Price)
	endPrice := decimal.NewFromFloat(end.Price)
	diff := endPrice.Sub(startPrice)

	pct := decimal.Zero
	if !startPrice.IsZero() {
		pct = diff.Div(startPrice).Mul(decimal.NewFromInt(100))
	}

	count := end.Index - start.Index
	if count < 0 {
		count = -count
	}

	diffF, _ := diff.Float64()
	pctF, _ := pct.Float64()
	return Stats{
		PriceDiff:   diffF,
		PctChange:   pctF,
		IsUp:        !diff.IsNegative(),
		CandleCount: count + 1,
		Elapsed:     bucketElapsed(start.Time, end.Time),
		StartLabel:  time.UnixMilli(start.Time).In(loc).Format(labelLayout),
		EndLabel:    time.UnixMilli(end.Time).In(loc).Format(labelLayout),
	}
}

func bucketElapsed(startMs, endMs int64) Elapsed {
	seconds := (endMs - startMs) / 1000
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds >= 86400:
		return Elapsed{Value: seconds / 86400, Unit: "days"}
	case seconds >= 3600:
		return Elapsed{Value: seconds / 3600, Unit: "hours"}
	default:
		return Elapsed{Value: seconds / 60, Unit: "minutes"}
	}
}
