package pane

import (
	"sync"
	"time"

	"chartlink/internal/market"
)

// Handle 把一个图表面板适配成同步/测量子系统可用的统一形态：
// 稳定的 id、当前数据集的 TimeIndex、注入的渲染面能力。
type Handle struct {
	id       string
	symbol   string
	interval string
	surface  Surface
	loc      *time.Location

	mu      sync.RWMutex
	index   *market.TimeIndex
	nextSub int
	dataSub map[int]func()
}

// Option 配置 Handle。
type Option func(*Handle)

// WithLocation 设置该面板的显示时区（测量面板的时间戳格式化使用）。
func WithLocation(loc *time.Location) Option {
	return func(h *Handle) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// WithDataset 标记面板当前承载的 symbol/interval，仅用于日志与查询展示。
func WithDataset(symbol, interval string) Option {
	return func(h *Handle) {
		h.symbol = symbol
		h.interval = interval
	}
}

// New 构建面板句柄。surface 不能为 nil，id 必须在注册表内唯一。
func New(id string, surface Surface, opts ...Option) *Handle {
	h := &Handle{
		id:      id,
		surface: surface,
		loc:     time.UTC,
		index:   market.NewTimeIndex(nil),
		dataSub: make(map[int]func()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Handle) ID() string            { return h.id }
func (h *Handle) Symbol() string        { return h.symbol }
func (h *Handle) Interval() string      { return h.interval }
func (h *Handle) Surface() Surface      { return h.surface }
func (h *Handle) Location() *time.Location { return h.loc }

// TimeIndex 返回当前数据集的时间索引（不可变，数据刷新时整体替换）。
func (h *Handle) TimeIndex() *market.TimeIndex {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index
}

// ReplaceData 整体替换数据集：重建 TimeIndex、下发渲染面，随后触发
// 数据替换回调（测量会话依赖它做失效处理）。
func (h *Handle) ReplaceData(candles []market.Candle) {
	ix := market.NewTimeIndex(candles)
	h.mu.Lock()
	h.index = ix
	subs := make([]func(), 0, len(h.dataSub))
	for _, fn := range h.dataSub {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	h.surface.ApplyData(ix.Candles())
	for _, fn := range subs {
		fn()
	}
}

// OnDataReplaced 注册数据集替换回调，返回注销函数（幂等）。
func (h *Handle) OnDataReplaced(fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.dataSub[id] = fn
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.dataSub, id)
			h.mu.Unlock()
		})
	}
}

// OnHover 订阅该面板的十字光标通知。
func (h *Handle) OnHover(fn func(HoverEvent)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return h.surface.OnHover(fn)
}

// OnVisibleRangeChange 订阅该面板的可见窗口变更通知。
func (h *Handle) OnVisibleRangeChange(fn func(VisibleRange)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return h.surface.OnVisibleRange(fn)
}

// SetCrosshair 把十字光标移动到距 ts 最近的K线上。
// 面板当前无数据时无视觉效果，返回 false。
func (h *Handle) SetCrosshair(ts int64) bool {
	m, ok := h.TimeIndex().Nearest(ts)
	if !ok {
		return false
	}
	h.surface.ShowCrosshair(m.Index)
	return true
}

// ClearCrosshair 隐藏十字光标。
func (h *Handle) ClearCrosshair() {
	h.surface.HideCrosshair()
}

// SetVisibleRange 把 domain 级时间窗口换算成本面板的索引窗口并下发。
// 两端都经 Nearest 解析，不同粒度的面板因此天然对齐；无数据时退化为空操作。
func (h *Handle) SetVisibleRange(from, to int64) {
	if from > to {
		from, to = to, from
	}
	ix := h.TimeIndex()
	lo, ok := ix.Nearest(from)
	if !ok {
		return
	}
	hi, _ := ix.Nearest(to)
	h.surface.ShowIndexRange(lo.Index, hi.Index)
}

// PointFromScreen 把像素坐标转成 DomainPoint。坐标在绘图区外或面板
// 无数据时返回 false。
func (h *Handle) PointFromScreen(x, y float64) (DomainPoint, bool) {
	ts, price, ok := h.surface.DomainFromScreen(x, y)
	if !ok {
		return DomainPoint{}, false
	}
	m, ok := h.TimeIndex().Nearest(ts)
	if !ok {
		return DomainPoint{}, false
	}
	return DomainPoint{Time: m.Candle.OpenTime, Price: price, Index: m.Index}, true
}

// ScreenFromDomain 是逆向映射，用于摆放覆盖层。点滚出可见区时返回 false。
func (h *Handle) ScreenFromDomain(p DomainPoint) (ScreenPoint, bool) {
	x, y, ok := h.surface.ScreenFromDomain(p.Time, p.Price)
	if !ok {
		return ScreenPoint{}, false
	}
	return ScreenPoint{X: x, Y: y}, true
}
