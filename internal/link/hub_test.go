package link

import (
	"testing"

	"chartlink/internal/market"
	"chartlink/internal/pane"

	"github.com/stretchr/testify/assert"
)

// fakeSurface 模拟真实渲染面的回声行为：程序驱动的变更同样触发通知。
type fakeSurface struct {
	candles []market.Candle

	crosshair  int
	rangeFrom  int
	rangeTo    int
	showCalls  int
	clearCalls int
	rangeCalls int

	onShow func()

	nextSub   int
	hoverSubs map[int]func(pane.HoverEvent)
	rangeSubs map[int]func(pane.VisibleRange)
}

func (f *fakeSurface) ApplyData(candles []market.Candle) {
	f.candles = candles
	f.crosshair = -1
}

func (f *fakeSurface) ShowCrosshair(index int) {
	f.showCalls++
	f.crosshair = index
	if f.onShow != nil {
		f.onShow()
	}
	for _, fn := range f.hoverSubs {
		fn(pane.HoverEvent{Time: f.candles[index].OpenTime})
	}
}

func (f *fakeSurface) HideCrosshair() {
	f.clearCalls++
	f.crosshair = -1
	for _, fn := range f.hoverSubs {
		fn(pane.HoverEvent{Cleared: true})
	}
}

func (f *fakeSurface) ShowIndexRange(from, to int) {
	f.rangeCalls++
	f.rangeFrom, f.rangeTo = from, to
	for _, fn := range f.rangeSubs {
		fn(pane.VisibleRange{From: f.candles[from].OpenTime, To: f.candles[to].OpenTime})
	}
}

func (f *fakeSurface) DomainFromScreen(x, y float64) (int64, float64, bool) { return 0, 0, false }
func (f *fakeSurface) ScreenFromDomain(ts int64, price float64) (float64, float64, bool) {
	return 0, 0, false
}

func (f *fakeSurface) OnHover(fn func(pane.HoverEvent)) func() {
	id := f.nextSub
	f.nextSub++
	f.hoverSubs[id] = fn
	return func() { delete(f.hoverSubs, id) }
}

func (f *fakeSurface) OnVisibleRange(fn func(pane.VisibleRange)) func() {
	id := f.nextSub
	f.nextSub++
	f.rangeSubs[id] = fn
	return func() { delete(f.rangeSubs, id) }
}

func newTestPane(id string, times ...int64) (*pane.Handle, *fakeSurface) {
	surface := &fakeSurface{
		crosshair: -1,
		hoverSubs: make(map[int]func(pane.HoverEvent)),
		rangeSubs: make(map[int]func(pane.VisibleRange)),
	}
	h := pane.New(id, surface)
	candles := make([]market.Candle, 0, len(times))
	for _, ts := range times {
		candles = append(candles, market.Candle{OpenTime: ts, CloseTime: ts + 1})
	}
	h.ReplaceData(candles)
	return h, surface
}

func TestHub_HoverPropagatesOnceToEachPeer(t *testing.T) {
	hub := NewHub(NewRegistry())
	a, sa := newTestPane("a", 100, 200, 300)
	b, sb := newTestPane("b", 100, 200, 300)
	c, sc := newTestPane("c", 100, 200, 300)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)

	a.SetCrosshair(200)

	// 回声被丢弃：每个面板恰好收到一次移动，不会无限传播
	assert.Equal(t, 1, sa.showCalls)
	assert.Equal(t, 1, sb.showCalls)
	assert.Equal(t, 1, sc.showCalls)
	assert.Equal(t, 1, sb.crosshair)
	assert.Equal(t, 1, sc.crosshair)
}

func TestHub_HoverClearPropagates(t *testing.T) {
	hub := NewHub(NewRegistry())
	a, _ := newTestPane("a", 100, 200, 300)
	b, sb := newTestPane("b", 100, 200, 300)
	hub.Register(a)
	hub.Register(b)

	a.SetCrosshair(200)
	a.ClearCrosshair()

	assert.Equal(t, 1, sb.clearCalls)
	assert.Equal(t, -1, sb.crosshair)
}

func TestHub_HeterogeneousGranularity(t *testing.T) {
	const day = int64(86_400_000)
	hub := NewHub(NewRegistry())
	m5, _ := newTestPane("m5", 0, 300_000, 600_000, 900_000)
	daily, sd := newTestPane("daily", 0, day, 2*day)
	hub.Register(m5)
	hub.Register(daily)

	// 5m 面板第 3 根（t=900000）仍落在日线第一根上
	m5.SetCrosshair(900_000)
	assert.Equal(t, 0, sd.crosshair)

	// 更靠近第二天的时间戳则解析到日线第二根
	m5.ReplaceData([]market.Candle{
		{OpenTime: day - 600_000}, {OpenTime: day - 300_000}, {OpenTime: day},
	})
	m5.SetCrosshair(day)
	assert.Equal(t, 1, sd.crosshair)
}

func TestHub_RangePropagation(t *testing.T) {
	hub := NewHub(NewRegistry())
	a, _ := newTestPane("a", 100, 200, 300, 400)
	b, sb := newTestPane("b", 100, 200, 300, 400)
	hub.Register(a)
	hub.Register(b)

	a.SetVisibleRange(400, 200) // 顺序颠倒也要规整

	assert.Equal(t, 1, sb.rangeCalls)
	assert.Equal(t, 1, sb.rangeFrom)
	assert.Equal(t, 3, sb.rangeTo)
}

func TestHub_EmptyTargetIgnoresPropagation(t *testing.T) {
	hub := NewHub(NewRegistry())
	a, _ := newTestPane("a", 100, 200)
	empty, se := newTestPane("empty")
	hub.Register(a)
	hub.Register(empty)

	a.SetCrosshair(100)
	a.SetVisibleRange(100, 200)

	assert.Equal(t, 0, se.showCalls)
	assert.Equal(t, 0, se.rangeCalls)
}

func TestHub_UnregisterDuringPropagationIsSafe(t *testing.T) {
	hub := NewHub(NewRegistry())
	a, _ := newTestPane("a", 100, 200, 300)
	b, sb := newTestPane("b", 100, 200, 300)
	c, sc := newTestPane("c", 100, 200, 300)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)

	// b 收到传播时把 c 注销掉；无论迭代顺序如何都不得死锁或 panic
	sb.onShow = func() { hub.Unregister("c") }

	a.SetCrosshair(200)

	assert.LessOrEqual(t, sc.showCalls, 1)
	assert.Equal(t, 2, hub.Registry().Len())

	// c 已不在成员表里，后续传播不再触达
	before := sc.showCalls
	a.SetCrosshair(100)
	assert.Equal(t, before, sc.showCalls)
}

func TestHub_ReregisterReplacesSubscriptions(t *testing.T) {
	hub := NewHub(NewRegistry())
	a, _ := newTestPane("a", 100, 200)
	b, sb := newTestPane("b", 100, 200)
	hub.Register(a)
	hub.Register(b)
	hub.Register(a) // 数据刷新路径：重复注册

	a.SetCrosshair(100)
	assert.Equal(t, 1, sb.showCalls)
}

func TestRegistry_PutGetRemove(t *testing.T) {
	r := NewRegistry()
	a, _ := newTestPane("a", 100)
	r.Put(a)

	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 1, r.Len())

	// 未注册的 id 删除是空操作
	r.Remove("missing")
	assert.Equal(t, 1, r.Len())

	r.Remove("a")
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.Len(t, r.Snapshot(), 0)
}
