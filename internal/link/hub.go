package link

import (
	"sync"
	"sync/atomic"

	"chartlink/internal/logger"
	"chartlink/internal/pane"
)

// Hub 把任意一个面板上的十字光标/可见窗口变更扇出到其余所有面板。
// 目标面板用各自的 TimeIndex 解析时间，不同粒度（5m 与日线）自动对齐。
//
// 环路防护：渲染面分不清用户驱动和程序驱动的变更，程序调用
// SetCrosshair/SetVisibleRange 可能让目标面板再次发出通知。传播期间
// inFlight 置位，此间收到的任何通知（包括并发事件）都被丢弃——
// hover/range 事件天然有损，丢一次不影响收敛。
type Hub struct {
	registry *Registry

	inFlight atomic.Bool

	subMu sync.Mutex
	subs  map[string][]func()
}

// NewHub 构建同步中枢。
func NewHub(registry *Registry) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Hub{
		registry: registry,
		subs:     make(map[string][]func()),
	}
}

// Registry 返回成员表。
func (hub *Hub) Registry() *Registry {
	return hub.registry
}

// Register 注册面板并立即挂上 hub 的 hover/range 监听。
// 同 id 重复注册会先注销旧订阅再重挂（数据刷新路径）。
func (hub *Hub) Register(h *pane.Handle) {
	if h == nil || h.ID() == "" {
		return
	}
	id := h.ID()
	hub.detach(id)
	hub.registry.Put(h)

	cancelHover := h.OnHover(func(evt pane.HoverEvent) {
		hub.propagateHover(id, evt)
	})
	cancelRange := h.OnVisibleRangeChange(func(vr pane.VisibleRange) {
		hub.propagateRange(id, vr)
	})
	hub.subMu.Lock()
	hub.subs[id] = []func(){cancelHover, cancelRange}
	hub.subMu.Unlock()
	logger.Debugf("link: pane %s registered (members=%d)", id, hub.registry.Len())
}

// Unregister 注销面板并拆掉订阅。对未注册的 id 调用是空操作，
// 在传播过程的回调内部调用也安全。
func (hub *Hub) Unregister(id string) {
	hub.detach(id)
	hub.registry.Remove(id)
	logger.Debugf("link: pane %s unregistered (members=%d)", id, hub.registry.Len())
}

func (hub *Hub) detach(id string) {
	hub.subMu.Lock()
	cancels := hub.subs[id]
	delete(hub.subs, id)
	hub.subMu.Unlock()
	for _, cancel := range cancels {
		if cancel != nil {
			cancel()
		}
	}
}

// propagateHover 把 origin 面板的 hover 事件扇出到其余面板。
func (hub *Hub) propagateHover(origin string, evt pane.HoverEvent) {
	if !hub.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer hub.inFlight.Store(false)

	for _, target := range hub.registry.Snapshot() {
		if target.ID() == origin {
			continue
		}
		// 传播途中被注销的面板直接跳过
		if _, ok := hub.registry.Get(target.ID()); !ok {
			continue
		}
		if evt.Cleared {
			target.ClearCrosshair()
			continue
		}
		if m, ok := target.TimeIndex().Nearest(evt.Time); ok {
			target.SetCrosshair(m.Candle.OpenTime)
		}
	}
}

// propagateRange 把 origin 面板的可见窗口扇出到其余面板。
// 每个目标经自己的 TimeIndex 解析边界，空数据集的目标静默忽略。
func (hub *Hub) propagateRange(origin string, vr pane.VisibleRange) {
	if !hub.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer hub.inFlight.Store(false)

	for _, target := range hub.registry.Snapshot() {
		if target.ID() == origin {
			continue
		}
		if _, ok := hub.registry.Get(target.ID()); !ok {
			continue
		}
		target.SetVisibleRange(vr.From, vr.To)
	}
}
