package render

import (
	"math"
	"sync"

	"chartlink/internal/market"
	"chartlink/internal/pane"
)

const (
	chartWidthPx  = 1600
	chartHeightPx = 600

	plotLeftPx   = 80.0
	plotRightPx  = 40.0
	plotTopPx    = 50.0
	plotBottomPx = 70.0

	defaultVisibleBars = 120
)

// Config 控制渲染面的像素尺寸与默认可见根数。
type Config struct {
	Width       int
	Height      int
	VisibleBars int
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = chartWidthPx
	}
	if c.Height <= 0 {
		c.Height = chartHeightPx
	}
	if c.VisibleBars <= 0 {
		c.VisibleBars = defaultVisibleBars
	}
	return c
}

// EchartsSurface 是 pane.Surface 的内置实现：维护索引级可见窗口与
// 价格轴边界，完成像素↔domain 双向映射，并按需通过 go-echarts 出图。
//
// 程序驱动的变更（ShowCrosshair/ShowIndexRange）与用户驱动的一样会
// 触发订阅回调，两者在通知层面不可区分。
type EchartsSurface struct {
	cfg   Config
	title string

	mu        sync.Mutex
	candles   []market.Candle
	viewFrom  int
	viewTo    int
	crosshair int // -1 表示隐藏

	nextSub   int
	hoverSubs map[int]func(pane.HoverEvent)
	rangeSubs map[int]func(pane.VisibleRange)
}

// NewEchartsSurface 构建渲染面。title 用于出图标题（通常 symbol+interval）。
func NewEchartsSurface(title string, cfg Config) *EchartsSurface {
	return &EchartsSurface{
		cfg:       cfg.withDefaults(),
		title:     title,
		crosshair: -1,
		hoverSubs: make(map[int]func(pane.HoverEvent)),
		rangeSubs: make(map[int]func(pane.VisibleRange)),
	}
}

var _ pane.Surface = (*EchartsSurface)(nil)

// ApplyData 替换数据集，可见窗口重置为最近 VisibleBars 根，十字光标隐藏。
func (s *EchartsSurface) ApplyData(candles []market.Candle) {
	s.mu.Lock()
	s.candles = candles
	s.crosshair = -1
	n := len(candles)
	if n == 0 {
		s.viewFrom, s.viewTo = 0, -1
		s.mu.Unlock()
		return
	}
	from := n - s.cfg.VisibleBars
	if from < 0 {
		from = 0
	}
	s.viewFrom, s.viewTo = from, n-1
	evt := s.rangeEventLocked()
	subs := s.rangeSubsLocked()
	s.mu.Unlock()
	emitRange(subs, evt)
}

func (s *EchartsSurface) ShowCrosshair(index int) {
	s.mu.Lock()
	if len(s.candles) == 0 {
		s.mu.Unlock()
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(s.candles) {
		index = len(s.candles) - 1
	}
	s.crosshair = index
	evt := pane.HoverEvent{Time: s.candles[index].OpenTime}
	subs := s.hoverSubsLocked()
	s.mu.Unlock()
	emitHover(subs, evt)
}

func (s *EchartsSurface) HideCrosshair() {
	s.mu.Lock()
	if s.crosshair < 0 {
		s.mu.Unlock()
		return
	}
	s.crosshair = -1
	subs := s.hoverSubsLocked()
	s.mu.Unlock()
	emitHover(subs, pane.HoverEvent{Cleared: true})
}

func (s *EchartsSurface) ShowIndexRange(from, to int) {
	s.mu.Lock()
	n := len(s.candles)
	if n == 0 {
		s.mu.Unlock()
		return
	}
	if from > to {
		from, to = to, from
	}
	// 两端都夹进 [0, n-1]，整个区间落在数据集外时退化为端点K线
	if from < 0 {
		from = 0
	}
	if from >= n {
		from = n - 1
	}
	if to < 0 {
		to = 0
	}
	if to >= n {
		to = n - 1
	}
	s.viewFrom, s.viewTo = from, to
	evt := s.rangeEventLocked()
	subs := s.rangeSubsLocked()
	s.mu.Unlock()
	emitRange(subs, evt)
}

// DomainFromScreen 把像素坐标映射到 (时间, 价格)。
func (s *EchartsSurface) DomainFromScreen(x, y float64) (int64, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emptyViewLocked() {
		return 0, 0, false
	}
	left, top, w, h := s.plotRectLocked()
	if x < left || x > left+w || y < top || y > top+h {
		return 0, 0, false
	}
	slots := float64(s.viewTo - s.viewFrom + 1)
	idx := s.viewFrom + int((x-left)/w*slots)
	if idx > s.viewTo {
		idx = s.viewTo
	}
	minAxis, maxAxis := s.axisBoundsLocked()
	price := maxAxis - (y-top)/h*(maxAxis-minAxis)
	return s.candles[idx].OpenTime, price, true
}

// ScreenFromDomain 把 (时间, 价格) 映射回像素坐标。时间落在可见窗口外
// 或价格超出当前轴边界时视为滚出可见区，返回 false。
func (s *EchartsSurface) ScreenFromDomain(ts int64, price float64) (float64, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emptyViewLocked() {
		return 0, 0, false
	}
	idx, ok := s.nearestIndexLocked(ts)
	if !ok || idx < s.viewFrom || idx > s.viewTo {
		return 0, 0, false
	}
	left, top, w, h := s.plotRectLocked()
	slots := float64(s.viewTo - s.viewFrom + 1)
	x := left + (float64(idx-s.viewFrom)+0.5)*w/slots
	minAxis, maxAxis := s.axisBoundsLocked()
	if price < minAxis || price > maxAxis {
		return 0, 0, false
	}
	y := top + (maxAxis-price)/(maxAxis-minAxis)*h
	return x, y, true
}

func (s *EchartsSurface) OnHover(fn func(pane.HoverEvent)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.hoverSubs[id] = fn
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.hoverSubs, id)
			s.mu.Unlock()
		})
	}
}

func (s *EchartsSurface) OnVisibleRange(fn func(pane.VisibleRange)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.rangeSubs[id] = fn
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.rangeSubs, id)
			s.mu.Unlock()
		})
	}
}

// VisibleWindow 返回当前索引窗口（查询接口用）。
func (s *EchartsSurface) VisibleWindow() (from, to int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emptyViewLocked() {
		return 0, 0, false
	}
	return s.viewFrom, s.viewTo, true
}

// Crosshair 返回当前十字光标索引，隐藏时 ok=false。
func (s *EchartsSurface) Crosshair() (index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crosshair < 0 {
		return 0, false
	}
	return s.crosshair, true
}

func (s *EchartsSurface) emptyViewLocked() bool {
	return len(s.candles) == 0 || s.viewTo < s.viewFrom
}

func (s *EchartsSurface) plotRectLocked() (left, top, w, h float64) {
	w = float64(s.cfg.Width) - plotLeftPx - plotRightPx
	h = float64(s.cfg.Height) - plotTopPx - plotBottomPx
	return plotLeftPx, plotTopPx, w, h
}

// axisBoundsLocked 计算可见窗口的价格轴边界，上下各留 5% 余量。
func (s *EchartsSurface) axisBoundsLocked() (minAxis, maxAxis float64) {
	window := s.candles[s.viewFrom : s.viewTo+1]
	minPrice, maxPrice := priceBounds(window)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}
	return minPrice - padding, maxPrice + padding
}

func (s *EchartsSurface) nearestIndexLocked(ts int64) (int, bool) {
	n := len(s.candles)
	if n == 0 {
		return 0, false
	}
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if s.candles[mid].OpenTime < ts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	switch {
	case lo == 0:
		return 0, true
	case lo == n:
		return n - 1, true
	}
	if ts-s.candles[lo-1].OpenTime <= s.candles[lo].OpenTime-ts {
		return lo - 1, true
	}
	return lo, true
}

func (s *EchartsSurface) rangeEventLocked() pane.VisibleRange {
	return pane.VisibleRange{
		From: s.candles[s.viewFrom].OpenTime,
		To:   s.candles[s.viewTo].OpenTime,
	}
}

func (s *EchartsSurface) hoverSubsLocked() []func(pane.HoverEvent) {
	out := make([]func(pane.HoverEvent), 0, len(s.hoverSubs))
	for _, fn := range s.hoverSubs {
		if fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

func (s *EchartsSurface) rangeSubsLocked() []func(pane.VisibleRange) {
	out := make([]func(pane.VisibleRange), 0, len(s.rangeSubs))
	for _, fn := range s.rangeSubs {
		if fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

func emitHover(subs []func(pane.HoverEvent), evt pane.HoverEvent) {
	for _, fn := range subs {
		fn(evt)
	}
}

func emitRange(subs []func(pane.VisibleRange), evt pane.VisibleRange) {
	for _, fn := range subs {
		fn(evt)
	}
}

func priceBounds(candles []market.Candle) (minVal, maxVal float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	minVal = candles[0].Low
	maxVal = candles[0].High
	for _, c := range candles {
		if c.Low < minVal {
			minVal = c.Low
		}
		if c.High > maxVal {
			maxVal = c.High
		}
	}
	return minVal, maxVal
}
