package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	clcfg "chartlink/internal/config"
	"chartlink/internal/journal"
	"chartlink/internal/layout"
	"chartlink/internal/link"
	"chartlink/internal/logger"
	"chartlink/internal/market"
	"chartlink/internal/measure"
	"chartlink/internal/pane"
	"chartlink/internal/render"
	"chartlink/internal/scheduler"
	"chartlink/internal/store/klinecache"
	livehttp "chartlink/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// paneRuntime 聚合单个面板的全部运行时对象。
type paneRuntime struct {
	def     layout.Pane
	surface *render.EchartsSurface
	handle  *pane.Handle
	session *measure.Session
}

// LiveService 负责面板生命周期、行情刷新与联动/测量请求的承接。
type LiveService struct {
	cfg     *clcfg.Config
	layout  *layout.Registry
	source  market.Source
	ks      market.KlineStore
	cache   *klinecache.Cache
	logs    *journal.Store
	hub     *link.Hub
	updater *market.WSUpdater

	mu    sync.RWMutex
	panes map[string]*paneRuntime

	closeOnce sync.Once
}

var _ livehttp.PaneService = (*LiveService)(nil)

// Run 启动实时服务：挂布局热更新、订阅 WS、按周期对齐刷新，直到 ctx 取消。
func (s *LiveService) Run(ctx context.Context) error {
	if s == nil || s.cfg == nil {
		return fmt.Errorf("live service not initialized")
	}
	s.layout.OnChange(func(snap layout.Snapshot) {
		s.applyLayout(ctx, snap)
	})

	symbols, intervals := s.subscriptionUniverse()
	if s.updater != nil && len(symbols) > 0 {
		if err := s.updater.Start(ctx, symbols, intervals); err != nil {
			logger.Warnf("WS 订阅启动失败，仅依赖对齐刷新: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, iv := range intervals {
		dur, ok := scheduler.ParseIntervalDuration(iv)
		if !ok {
			logger.Warnf("无法解析周期 %s，跳过对齐刷新", iv)
			continue
		}
		interval := iv
		sch := scheduler.NewAlignedScheduler(ctx, dur, 2*time.Second)
		sch.Name = interval
		group.Go(func() error {
			sch.Start(func() { s.refreshInterval(ctx, interval) })
			return nil
		})
	}
	group.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return group.Wait()
}

// Close 释放全部资源。幂等。
func (s *LiveService) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for id, rt := range s.panes {
			rt.session.Close()
			s.hub.Unregister(id)
		}
		s.panes = make(map[string]*paneRuntime)
		s.mu.Unlock()
		if s.updater != nil {
			s.updater.Close()
		}
		if s.cache != nil {
			if err := s.cache.Close(); err != nil {
				logger.Warnf("kline cache close error: %v", err)
			}
		}
		if s.logs != nil {
			if err := s.logs.Close(); err != nil {
				logger.Warnf("journal close error: %v", err)
			}
		}
	})
}

// applyLayout 按最新布局快照热插拔面板：新增的注册，消失的注销，
// 定义变化的整体重建。
func (s *LiveService) applyLayout(ctx context.Context, snap layout.Snapshot) {
	s.mu.Lock()
	var added []*paneRuntime
	for id, rt := range s.panes {
		def, ok := snap.Panes[id]
		if ok && def == rt.def {
			continue
		}
		rt.session.Close()
		s.hub.Unregister(id)
		delete(s.panes, id)
		if ok {
			logger.Infof("layout: pane %s 定义变更，重建", id)
		} else {
			logger.Infof("layout: pane %s 移除", id)
		}
	}
	for id, def := range snap.Panes {
		if _, ok := s.panes[id]; ok {
			continue
		}
		rt := s.buildPane(id, def)
		s.panes[id] = rt
		added = append(added, rt)
		logger.Infof("layout: pane %s 注册 (%s %s)", id, def.Symbol, def.Interval)
	}
	s.mu.Unlock()

	for _, rt := range added {
		s.seedPane(ctx, rt)
	}
}

func (s *LiveService) buildPane(id string, def layout.Pane) *paneRuntime {
	surface := render.NewEchartsSurface(def.Symbol+" "+def.Interval, render.Config{
		Width:       s.cfg.Chart.Width,
		Height:      s.cfg.Chart.Height,
		VisibleBars: def.VisibleBars,
	})
	h := pane.New(id, surface,
		pane.WithLocation(def.Location()),
		pane.WithDataset(def.Symbol, def.Interval),
	)
	s.hub.Register(h)
	return &paneRuntime{
		def:     def,
		surface: surface,
		handle:  h,
		session: measure.NewSession(h),
	}
}

// seedPane 用存储里已有的K线初始化面板数据集；存储为空时现拉历史。
func (s *LiveService) seedPane(ctx context.Context, rt *paneRuntime) {
	candles, err := s.ks.Get(ctx, rt.def.Symbol, rt.def.Interval)
	if err != nil {
		logger.Warnf("pane %s 读取存储失败: %v", rt.handle.ID(), err)
	}
	if len(candles) == 0 {
		batch, err := s.source.FetchHistory(ctx, rt.def.Symbol, rt.def.Interval, rt.def.HistoryBars)
		if err != nil {
			logger.Warnf("pane %s 拉取历史失败: %v", rt.handle.ID(), err)
			return
		}
		if err := s.ks.Put(ctx, rt.def.Symbol, rt.def.Interval, batch, s.cfg.Kline.MaxCached); err != nil {
			logger.Warnf("pane %s 写入存储失败: %v", rt.handle.ID(), err)
		}
		if s.cache != nil {
			if err := s.cache.Save(ctx, rt.def.Symbol, rt.def.Interval, batch); err != nil {
				logger.Warnf("pane %s 回写缓存失败: %v", rt.handle.ID(), err)
			}
		}
		candles = batch
	}
	if len(candles) > 0 {
		rt.handle.ReplaceData(candles)
	}
}

// subscriptionUniverse 汇总当前布局需要的 symbol/interval 集合。
func (s *LiveService) subscriptionUniverse() ([]string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbolSet := make(map[string]struct{})
	intervalSet := make(map[string]struct{})
	for _, rt := range s.panes {
		symbolSet[rt.def.Symbol] = struct{}{}
		intervalSet[rt.def.Interval] = struct{}{}
	}
	return setToSortedSlice(symbolSet), setToSortedSlice(intervalSet)
}

// onCandleEvent 是 WS 推送回调。updater 已把K线写入存储，
// 这里只在收盘时把最新数据集下发到相关面板。
func (s *LiveService) onCandleEvent(evt market.CandleEvent) {
	if !evt.Closed {
		return
	}
	ctx := context.Background()
	symbol := strings.ToUpper(evt.Symbol)
	candles, err := s.ks.Get(ctx, symbol, evt.Interval)
	if err != nil || len(candles) == 0 {
		return
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, symbol, evt.Interval, candles); err != nil {
			logger.Warnf("缓存回写 %s %s 失败: %v", symbol, evt.Interval, err)
		}
	}
	for _, rt := range s.panesFor(symbol, evt.Interval) {
		rt.handle.ReplaceData(candles)
	}
}

// refreshInterval 在K线收盘对齐点用 REST 全量校正一个周期的所有面板，
// 兜底 WS 断线期间丢失的收盘。
func (s *LiveService) refreshInterval(ctx context.Context, interval string) {
	type target struct {
		symbol string
		need   int
	}
	targets := make(map[string]*target)
	s.mu.RLock()
	for _, rt := range s.panes {
		if rt.def.Interval != interval {
			continue
		}
		t, ok := targets[rt.def.Symbol]
		if !ok {
			t = &target{symbol: rt.def.Symbol}
			targets[rt.def.Symbol] = t
		}
		if rt.def.HistoryBars > t.need {
			t.need = rt.def.HistoryBars
		}
	}
	s.mu.RUnlock()

	for _, t := range targets {
		batch, err := s.source.FetchHistory(ctx, t.symbol, interval, t.need)
		if err != nil {
			logger.Warnf("刷新 %s %s 失败: %v", t.symbol, interval, err)
			continue
		}
		if len(batch) == 0 {
			continue
		}
		if err := s.ks.Set(ctx, t.symbol, interval, batch); err != nil {
			logger.Warnf("刷新写入 %s %s 失败: %v", t.symbol, interval, err)
			continue
		}
		if s.cache != nil {
			if err := s.cache.Save(ctx, t.symbol, interval, batch); err != nil {
				logger.Warnf("刷新缓存 %s %s 失败: %v", t.symbol, interval, err)
			}
		}
		for _, rt := range s.panesFor(t.symbol, interval) {
			rt.handle.ReplaceData(batch)
		}
	}
}

func (s *LiveService) panesFor(symbol, interval string) []*paneRuntime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*paneRuntime
	for _, rt := range s.panes {
		if rt.def.Symbol == symbol && rt.def.Interval == interval {
			out = append(out, rt)
		}
	}
	return out
}

func (s *LiveService) pane(id string) (*paneRuntime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.panes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", livehttp.ErrPaneNotFound, id)
	}
	return rt, nil
}

// --- PaneService 实现 ---

func (s *LiveService) ListPanes(ctx context.Context) []livehttp.PaneStatus {
	s.mu.RLock()
	ids := make([]string, 0, len(s.panes))
	for id := range s.panes {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]livehttp.PaneStatus, 0, len(ids))
	for _, id := range ids {
		status, err := s.PaneStatus(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, status)
	}
	return out
}

func (s *LiveService) PaneStatus(_ context.Context, id string) (livehttp.PaneStatus, error) {
	rt, err := s.pane(id)
	if err != nil {
		return livehttp.PaneStatus{}, err
	}
	status := livehttp.PaneStatus{
		ID:       id,
		Symbol:   rt.def.Symbol,
		Interval: rt.def.Interval,
		Timezone: rt.def.Timezone,
		Candles:  rt.handle.TimeIndex().Len(),
	}
	if from, to, ok := rt.surface.VisibleWindow(); ok {
		status.VisibleFrom = from
		status.VisibleTo = to
	}
	if ix, ok := rt.surface.Crosshair(); ok {
		status.Crosshair = &ix
	}
	return status, nil
}

func (s *LiveService) InjectHover(_ context.Context, id string, x, y float64) error {
	rt, err := s.pane(id)
	if err != nil {
		return err
	}
	pt, ok := rt.handle.PointFromScreen(x, y)
	if !ok {
		// 绘图区外的悬停视作离开
		rt.handle.ClearCrosshair()
		return nil
	}
	rt.handle.SetCrosshair(pt.Time)
	return nil
}

func (s *LiveService) ClearHover(_ context.Context, id string) error {
	rt, err := s.pane(id)
	if err != nil {
		return err
	}
	rt.handle.ClearCrosshair()
	return nil
}

func (s *LiveService) InjectRange(_ context.Context, id string, from, to int64) error {
	rt, err := s.pane(id)
	if err != nil {
		return err
	}
	rt.handle.SetVisibleRange(from, to)
	return nil
}

func (s *LiveService) InjectClick(ctx context.Context, id string, x, y float64) (livehttp.MeasureStatus, error) {
	rt, err := s.pane(id)
	if err != nil {
		return livehttp.MeasureStatus{}, err
	}
	before := rt.session.State()
	rt.session.Click(x, y)
	status := measureStatus(rt.session)
	if before != measure.StateCompleted && status.State == measure.StateCompleted {
		s.appendJournal(ctx, id, rt)
	}
	return status, nil
}

// appendJournal 把一次完成的测量落库。落库失败只告警，不影响会话状态。
func (s *LiveService) appendJournal(ctx context.Context, id string, rt *paneRuntime) {
	if s.logs == nil {
		return
	}
	start, end, state := rt.session.Points()
	if state != measure.StateCompleted {
		return
	}
	stats, ok := rt.session.Stats()
	if !ok {
		return
	}
	if _, err := s.logs.Append(ctx, id, rt.def.Symbol, rt.def.Interval, start, end, stats); err != nil {
		logger.Warnf("测量记录落库失败 pane=%s: %v", id, err)
	}
}

func (s *LiveService) ClearMeasurement(_ context.Context, id string) error {
	rt, err := s.pane(id)
	if err != nil {
		return err
	}
	rt.session.Clear()
	return nil
}

func (s *LiveService) Measurement(_ context.Context, id string) (livehttp.MeasureStatus, error) {
	rt, err := s.pane(id)
	if err != nil {
		return livehttp.MeasureStatus{}, err
	}
	return measureStatus(rt.session), nil
}

func (s *LiveService) SnapshotPNG(ctx context.Context, id string) (render.ImageResult, error) {
	rt, err := s.pane(id)
	if err != nil {
		return render.ImageResult{}, err
	}
	return rt.surface.Snapshot(ctx)
}

func (s *LiveService) ListMeasurements(ctx context.Context, paneID string, limit int) ([]journal.MeasurementRecord, error) {
	if s.logs == nil {
		return nil, nil
	}
	return s.logs.List(ctx, paneID, limit)
}

func (s *LiveService) SourceStats(context.Context) market.SourceStats {
	if s.source == nil {
		return market.SourceStats{}
	}
	return s.source.Stats()
}

func measureStatus(sess *measure.Session) livehttp.MeasureStatus {
	status := livehttp.MeasureStatus{
		State:   sess.State(),
		Overlay: sess.Overlay(),
	}
	if stats, ok := sess.Stats(); ok {
		status.Stats = &stats
	}
	return status
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
