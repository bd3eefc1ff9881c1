package render

import (
	"testing"

	"chartlink/internal/market"
	"chartlink/internal/pane"

	"github.com/stretchr/testify/assert"
)

func testCandles(n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		ts := int64(i) * 60_000
		base := 100 + float64(i%10)
		out = append(out, market.Candle{
			OpenTime:  ts,
			CloseTime: ts + 60_000,
			Open:      base,
			High:      base + 2,
			Low:       base - 2,
			Close:     base + 1,
			Volume:    1000,
		})
	}
	return out
}

func TestEchartsSurface_ApplyDataResetsWindow(t *testing.T) {
	s := NewEchartsSurface("test", Config{VisibleBars: 120})

	var got pane.VisibleRange
	events := 0
	s.OnVisibleRange(func(vr pane.VisibleRange) {
		got = vr
		events++
	})

	s.ApplyData(testCandles(200))

	from, to, ok := s.VisibleWindow()
	assert.True(t, ok)
	assert.Equal(t, 80, from)
	assert.Equal(t, 199, to)
	assert.Equal(t, 1, events)
	assert.Equal(t, int64(80*60_000), got.From)
	assert.Equal(t, int64(199*60_000), got.To)

	// 数据替换后十字光标隐藏
	_, ok = s.Crosshair()
	assert.False(t, ok)
}

func TestEchartsSurface_ApplyDataShorterThanWindow(t *testing.T) {
	s := NewEchartsSurface("test", Config{VisibleBars: 120})
	s.ApplyData(testCandles(30))

	from, to, ok := s.VisibleWindow()
	assert.True(t, ok)
	assert.Equal(t, 0, from)
	assert.Equal(t, 29, to)
}

func TestEchartsSurface_ShowCrosshairClampsAndNotifies(t *testing.T) {
	s := NewEchartsSurface("test", Config{})
	s.ApplyData(testCandles(50))

	var last pane.HoverEvent
	hovers := 0
	s.OnHover(func(evt pane.HoverEvent) {
		last = evt
		hovers++
	})

	s.ShowCrosshair(999)
	idx, ok := s.Crosshair()
	assert.True(t, ok)
	assert.Equal(t, 49, idx)
	assert.Equal(t, int64(49*60_000), last.Time)

	s.ShowCrosshair(-3)
	idx, _ = s.Crosshair()
	assert.Equal(t, 0, idx)
	assert.Equal(t, 2, hovers)
}

func TestEchartsSurface_HideCrosshairIdempotent(t *testing.T) {
	s := NewEchartsSurface("test", Config{})
	s.ApplyData(testCandles(10))

	cleared := 0
	s.OnHover(func(evt pane.HoverEvent) {
		if evt.Cleared {
			cleared++
		}
	})

	s.HideCrosshair() // 本就隐藏，不该发通知
	assert.Equal(t, 0, cleared)

	s.ShowCrosshair(3)
	s.HideCrosshair()
	s.HideCrosshair()
	assert.Equal(t, 1, cleared)
}

func TestEchartsSurface_MappingRoundTrip(t *testing.T) {
	s := NewEchartsSurface("test", Config{VisibleBars: 120})
	s.ApplyData(testCandles(200))

	c := 150
	ts := int64(c) * 60_000
	x, y, ok := s.ScreenFromDomain(ts, 103)
	assert.True(t, ok)

	gotTS, gotPrice, ok := s.DomainFromScreen(x, y)
	assert.True(t, ok)
	assert.Equal(t, ts, gotTS)
	assert.InDelta(t, 103, gotPrice, 0.1)
}

func TestEchartsSurface_DomainFromScreenOutsidePlot(t *testing.T) {
	s := NewEchartsSurface("test", Config{})
	s.ApplyData(testCandles(50))

	_, _, ok := s.DomainFromScreen(5, 5) // y 轴留白区
	assert.False(t, ok)

	_, _, ok = s.DomainFromScreen(1e6, 100)
	assert.False(t, ok)
}

func TestEchartsSurface_ScreenFromDomainOffscreen(t *testing.T) {
	s := NewEchartsSurface("test", Config{VisibleBars: 120})
	s.ApplyData(testCandles(200))

	// 索引 10 在可见窗口 [80,199] 之外
	_, _, ok := s.ScreenFromDomain(10*60_000, 103)
	assert.False(t, ok)

	// 价格超出当前轴边界
	_, _, ok = s.ScreenFromDomain(150*60_000, 1e9)
	assert.False(t, ok)
}

func TestEchartsSurface_ShowIndexRangeOrdersAndClamps(t *testing.T) {
	s := NewEchartsSurface("test", Config{})
	s.ApplyData(testCandles(50))

	ranges := 0
	s.OnVisibleRange(func(pane.VisibleRange) { ranges++ })

	s.ShowIndexRange(45, 5)
	from, to, ok := s.VisibleWindow()
	assert.True(t, ok)
	assert.Equal(t, 5, from)
	assert.Equal(t, 45, to)

	s.ShowIndexRange(-10, 999)
	from, to, _ = s.VisibleWindow()
	assert.Equal(t, 0, from)
	assert.Equal(t, 49, to)
	assert.Equal(t, 2, ranges)
}

func TestEchartsSurface_ShowIndexRangeBeyondDataset(t *testing.T) {
	// 数据集收缩后，同步过来的旧索引窗口可能整体落在数据集之外，
	// 此时退化到端点K线而不是崩溃
	s := NewEchartsSurface("test", Config{})
	s.ApplyData(testCandles(3))

	var got pane.VisibleRange
	s.OnVisibleRange(func(vr pane.VisibleRange) { got = vr })

	s.ShowIndexRange(5, 9)
	from, to, ok := s.VisibleWindow()
	assert.True(t, ok)
	assert.Equal(t, 2, from)
	assert.Equal(t, 2, to)
	assert.Equal(t, int64(2*60_000), got.From)
	assert.Equal(t, int64(2*60_000), got.To)

	s.ShowIndexRange(-9, -5)
	from, to, _ = s.VisibleWindow()
	assert.Equal(t, 0, from)
	assert.Equal(t, 0, to)
}

func TestEchartsSurface_EmptyDataset(t *testing.T) {
	s := NewEchartsSurface("test", Config{})
	s.ApplyData(nil)

	_, _, ok := s.VisibleWindow()
	assert.False(t, ok)
	_, _, ok = s.DomainFromScreen(500, 300)
	assert.False(t, ok)
	_, _, ok = s.ScreenFromDomain(0, 0)
	assert.False(t, ok)
}

func TestEchartsSurface_SubscriptionCancel(t *testing.T) {
	s := NewEchartsSurface("test", Config{})
	s.ApplyData(testCandles(10))

	calls := 0
	cancel := s.OnHover(func(pane.HoverEvent) { calls++ })
	s.ShowCrosshair(1)
	cancel()
	cancel() // 幂等
	s.ShowCrosshair(2)

	assert.Equal(t, 1, calls)
}
