package config

import (
	"fmt"
	"strings"
	"time"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Kline.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Layout.validate(); err != nil {
		return err
	}
	if err := c.Journal.validate(); err != nil {
		return err
	}
	if err := c.Chart.validate(); err != nil {
		return err
	}
	return nil
}

func (k *KlineConfig) validate() error {
	if k.MaxCached < 50 || k.MaxCached > 5000 {
		return fmt.Errorf("kline.max_cached must be in [50,5000]")
	}
	if k.HistoryBars < 10 || k.HistoryBars > k.MaxCached {
		return fmt.Errorf("kline.history_bars must be in [10,max_cached]")
	}
	if strings.TrimSpace(k.CachePath) == "" {
		return fmt.Errorf("kline.cache_path cannot be empty")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if len(m.Sources) == 0 {
		return fmt.Errorf("market.sources requires at least one source")
	}
	activeName := strings.ToLower(strings.TrimSpace(m.ActiveSource))
	enabled := 0
	activeFound := false
	for _, src := range m.Sources {
		if !src.Enabled {
			continue
		}
		enabled++
		if strings.TrimSpace(src.RESTBaseURL) == "" {
			return fmt.Errorf("market source %s missing rest_base_url", src.Name)
		}
		if src.Proxy.Enabled && src.Proxy.RESTURL == "" && src.Proxy.WSURL == "" {
			return fmt.Errorf("market source %s has proxy enabled but no rest_url or ws_url", src.Name)
		}
		name := strings.ToLower(strings.TrimSpace(src.Name))
		if activeName == "" || name == activeName {
			activeFound = true
		}
	}
	if enabled == 0 {
		return fmt.Errorf("market.sources requires at least one enabled source")
	}
	if !activeFound {
		return fmt.Errorf("enabled market.active_source=%s not found", m.ActiveSource)
	}
	return nil
}

func (l *LayoutConfig) validate() error {
	if strings.TrimSpace(l.Path) == "" {
		return fmt.Errorf("layout.path cannot be empty")
	}
	return nil
}

func (j *JournalConfig) validate() error {
	if strings.TrimSpace(j.Path) == "" {
		return fmt.Errorf("journal.path cannot be empty")
	}
	return nil
}

func (c *ChartConfig) validate() error {
	if c.Width < 400 || c.Width > 4096 {
		return fmt.Errorf("chart.width must be in [400,4096]")
	}
	if c.Height < 200 || c.Height > 4096 {
		return fmt.Errorf("chart.height must be in [200,4096]")
	}
	if c.VisibleBars < 10 || c.VisibleBars > 1000 {
		return fmt.Errorf("chart.visible_bars must be in [10,1000]")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(c.Timezone)); err != nil {
		return fmt.Errorf("chart.timezone invalid: %w", err)
	}
	return nil
}

// IsValidInterval 简易校验：以数字开头，以 m/h/d/w 结尾
func IsValidInterval(s string) bool {
	if s == "" {
		return false
	}
	suf := s[len(s)-1]
	if suf != 'm' && suf != 'h' && suf != 'd' && suf != 'w' {
		return false
	}
	for i := 0; i < len(s)-1; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
