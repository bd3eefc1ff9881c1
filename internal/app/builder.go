package app

import (
	"context"
	"fmt"

	clcfg "chartlink/internal/config"
	"chartlink/internal/gateway"
	"chartlink/internal/journal"
	"chartlink/internal/layout"
	"chartlink/internal/link"
	"chartlink/internal/logger"
	"chartlink/internal/market"
	"chartlink/internal/store"
	"chartlink/internal/store/klinecache"
	livehttp "chartlink/internal/transport/http/live"
)

// AppBuilder 组装应用依赖。各构造函数都可被测试替换。
type AppBuilder struct {
	cfg *clcfg.Config

	sourceFn   func(*clcfg.Config) (market.Source, error)
	layoutFn   func(string) (*layout.Registry, error)
	cacheFn    func(string) (*klinecache.Cache, error)
	journalFn  func(string) (*journal.Store, error)
	liveHTTPFn func(clcfg.AppConfig, livehttp.PaneService) (*livehttp.Server, error)

	storeOverride market.KlineStore
}

type AppBuilderOption func(*AppBuilder)

// WithKlineStore 替换内存K线存储（测试注入用）。
func WithKlineStore(ks market.KlineStore) AppBuilderOption {
	return func(b *AppBuilder) {
		b.storeOverride = ks
	}
}

// WithSourceFactory 替换行情源构造（测试注入用）。
func WithSourceFactory(fn func(*clcfg.Config) (market.Source, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.sourceFn = fn
		}
	}
}

func NewAppBuilder(cfg *clcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		sourceFn:   gateway.NewSourceFromConfig,
		layoutFn:   layout.NewRegistry,
		cacheFn:    klinecache.Open,
		journalFn:  journal.NewStore,
		liveHTTPFn: buildLiveHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildLiveHTTPServer(appCfg clcfg.AppConfig, service livehttp.PaneService) (*livehttp.Server, error) {
	return livehttp.NewServer(livehttp.ServerConfig{
		Addr:    appCfg.HTTPAddr,
		Service: service,
	})
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	layoutReg, err := b.layoutFn(cfg.Layout.Path)
	if err != nil {
		return nil, fmt.Errorf("加载布局失败: %w", err)
	}
	snap := layoutReg.Snapshot()
	logger.Infof("✓ 已加载 %d 个面板", len(snap.Panes))

	src, err := b.sourceFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化行情源失败: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = src.Close()
		}
	}()

	ks := b.storeOverride
	if ks == nil {
		ks = store.NewMemoryKlineStore()
	}

	// K线缓存损坏或不可写时退化为纯内存运行
	cache, err := b.cacheFn(cfg.Kline.CachePath)
	if err != nil {
		logger.Warnf("K线缓存不可用，跳过: %v", err)
		cache = nil
	}

	logs, err := b.journalFn(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("初始化测量日志失败: %w", err)
	}

	preheater := market.NewPreheater(ks, cfg.Kline.MaxCached, src)
	if cache != nil {
		preheater.Cache = cache
	}
	preheater.Warmup(ctx, warmupPairs(snap), cfg.Kline.HistoryBars)
	logger.Infof("✓ Warmup 完成")

	hub := link.NewHub(link.NewRegistry())
	service := &LiveService{
		cfg:    cfg,
		layout: layoutReg,
		source: src,
		ks:     ks,
		cache:  cache,
		logs:   logs,
		hub:    hub,
		panes:  make(map[string]*paneRuntime),
	}
	service.updater = market.NewWSUpdater(ks, cfg.Kline.MaxCached, src,
		market.WithWSEventHandler(service.onCandleEvent))
	service.applyLayout(ctx, snap)

	liveHTTP, err := b.liveHTTPFn(cfg.App, service)
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	success = true
	return &App{
		cfg:      cfg,
		live:     service,
		liveHTTP: liveHTTP,
		Summary:  buildStartupSummary(cfg, snap),
	}, nil
}

// warmupPairs 汇总布局需要的 symbol→intervals 预热集合。
func warmupPairs(snap layout.Snapshot) map[string][]string {
	pairs := make(map[string][]string)
	for _, def := range snap.Panes {
		ivs := pairs[def.Symbol]
		found := false
		for _, iv := range ivs {
			if iv == def.Interval {
				found = true
				break
			}
		}
		if !found {
			pairs[def.Symbol] = append(ivs, def.Interval)
		}
	}
	return pairs
}
