package measure

import (
	"sync"

	"chartlink/internal/logger"
	"chartlink/internal/pane"
)

// Overlay 是测量矩形的屏幕几何。两个端点任一滚出可见区时 Visible=false，
// 重新入镜后自动恢复。
type Overlay struct {
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	Visible bool    `json:"visible"`
}

// Session 是单个面板上的两击测量状态机。每个面板同一时刻至多一个会话；
// 会话不经 Hub 传播。数据集整体替换时会话立即失效回到 Idle——
// 旧数据集的 domain 点不能摆到新数据集上。
type Session struct {
	owner *pane.Handle

	mu      sync.Mutex
	state   State
	start   pane.DomainPoint
	end     pane.DomainPoint
	stats   *Stats
	overlay Overlay

	cancelRange func()
	cancelData  func()
	closeOnce   sync.Once
}

// NewSession 创建会话并挂上所属面板的可见窗口/数据替换回调。
func NewSession(owner *pane.Handle) *Session {
	s := &Session{
		owner: owner,
		state: StateIdle,
	}
	s.cancelRange = owner.OnVisibleRangeChange(func(pane.VisibleRange) {
		s.recomputeOverlay()
	})
	s.cancelData = owner.OnDataReplaced(func() {
		s.invalidate()
	})
	return s
}

// Close 注销回调。会话不再使用时必须调用。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancelRange != nil {
			s.cancelRange()
		}
		if s.cancelData != nil {
			s.cancelData()
		}
	})
}

// State 返回当前状态。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Points 返回起止点。只有 FirstPointSet/Completed 状态下起点有效，
// 只有 Completed 状态下终点有效。
func (s *Session) Points() (start, end pane.DomainPoint, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start, s.end, s.state
}

// Stats 返回派生统计；未完成时返回 false。
func (s *Session) Stats() (Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats == nil {
		return Stats{}, false
	}
	return *s.stats, true
}

// Overlay 返回当前矩形几何；非 Completed 状态下 Visible 恒为 false。
func (s *Session) Overlay() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay
}

// Click 处理一次合格点击（修饰键判定由宿主应用完成）。
// 点击落在绘图区外时不发生任何状态转移，返回 false。
// Completed 状态下的新点击隐式重置并作为新会话的第一击。
func (s *Session) Click(x, y float64) bool {
	pt, ok := s.owner.PointFromScreen(x, y)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle, StateCompleted:
		s.start = pt
		s.end = pane.DomainPoint{}
		s.stats = nil
		s.overlay = Overlay{}
		s.state = StateFirstPointSet
	case StateFirstPointSet:
		s.end = pt
		stats := computeStats(s.start, pt, s.owner.Location())
		s.stats = &stats
		s.state = StateCompleted
		s.overlay = s.overlayLocked()
		logger.Debugf("measure: pane %s completed diff=%.4f pct=%.2f%% candles=%d",
			s.owner.ID(), stats.PriceDiff, stats.PctChange, stats.CandleCount)
	}
	return true
}

// Clear 显式清除，从任意状态回到 Idle（Escape 与清除按钮都走这里）。
func (s *Session) Clear() {
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
}

func (s *Session) invalidate() {
	s.mu.Lock()
	stale := s.state != StateIdle
	s.reset()
	s.mu.Unlock()
	if stale {
		logger.Debugf("measure: pane %s dataset replaced, session invalidated", s.owner.ID())
	}
}

func (s *Session) reset() {
	s.state = StateIdle
	s.start = pane.DomainPoint{}
	s.end = pane.DomainPoint{}
	s.stats = nil
	s.overlay = Overlay{}
}

// recomputeOverlay 在所属面板平移/缩放后重新推导矩形。
func (s *Session) recomputeOverlay() {
	s.mu.Lock()
	if s.state != StateCompleted {
		s.mu.Unlock()
		return
	}
	s.overlay = s.overlayLocked()
	s.mu.Unlock()
}

func (s *Session) overlayLocked() Overlay {
	p1, ok1 := s.owner.ScreenFromDomain(s.start)
	p2, ok2 := s.owner.ScreenFromDomain(s.end)
	if !ok1 || !ok2 {
		return Overlay{}
	}
	return Overlay{X1: p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y, Visible: true}
}
