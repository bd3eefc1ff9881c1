package config

import "strings"

// Config 是 Chartlink 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Kline   KlineConfig   `toml:"kline"`
	Market  MarketConfig  `toml:"market"`
	Layout  LayoutConfig  `toml:"layout"`
	Journal JournalConfig `toml:"journal"`
	Chart   ChartConfig   `toml:"chart"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type KlineConfig struct {
	MaxCached   int    `toml:"max_cached"`
	HistoryBars int    `toml:"history_bars"`
	CachePath   string `toml:"cache_path"`
}

// LayoutConfig 指向面板布局文件（支持运行时热更新）。
type LayoutConfig struct {
	Path string `toml:"path"`
}

// JournalConfig 控制测量结果的持久化位置。
type JournalConfig struct {
	Path string `toml:"path"`
}

// ChartConfig 描述快照渲染参数。
type ChartConfig struct {
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	VisibleBars int    `toml:"visible_bars"`
	Timezone    string `toml:"timezone"`
}

type MarketConfig struct {
	ActiveSource string         `toml:"active_source"`
	Sources      []MarketSource `toml:"sources"`
}

type MarketSource struct {
	Name        string      `toml:"name"`
	Enabled     bool        `toml:"enabled"`
	RESTBaseURL string      `toml:"rest_base_url"`
	Proxy       ProxyConfig `toml:"proxy"`
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	RESTURL string `toml:"rest_url"`
	WSURL   string `toml:"ws_url"`
}

func (p *ProxyConfig) normalize() {
	if p == nil {
		return
	}
	p.RESTURL = strings.TrimSpace(p.RESTURL)
	p.WSURL = strings.TrimSpace(p.WSURL)
}

func (m MarketConfig) ResolveActiveSource() MarketSource {
	if len(m.Sources) == 0 {
		return MarketSource{
			Name:        "binance",
			Enabled:     true,
			RESTBaseURL: "https://fapi.binance.com",
		}
	}
	active := strings.ToLower(strings.TrimSpace(m.ActiveSource))
	var fallback MarketSource
	for _, src := range m.Sources {
		if fallback.Name == "" {
			fallback = src
		}
		if !src.Enabled {
			continue
		}
		if active == "" || strings.ToLower(src.Name) == active {
			return src
		}
	}
	return fallback
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
