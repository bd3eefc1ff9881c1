package app

import (
	"fmt"
	"sort"
	"strings"

	clcfg "chartlink/internal/config"
	"chartlink/internal/layout"
)

type StartupSummary struct {
	KLine  KLineSummary
	HTTP   string
	Market string
	Panes  map[string]layout.Pane
}

type KLineSummary struct {
	Symbols   []string
	Intervals []string
	MaxCached int
}

func buildStartupSummary(cfg *clcfg.Config, snap layout.Snapshot) *StartupSummary {
	symbolSet := make(map[string]struct{})
	intervalSet := make(map[string]struct{})
	for _, def := range snap.Panes {
		symbolSet[def.Symbol] = struct{}{}
		intervalSet[def.Interval] = struct{}{}
	}
	return &StartupSummary{
		KLine: KLineSummary{
			Symbols:   setToSortedSlice(symbolSet),
			Intervals: setToSortedSlice(intervalSet),
			MaxCached: cfg.Kline.MaxCached,
		},
		HTTP:   cfg.App.HTTPAddr,
		Market: cfg.Market.ResolveActiveSource().Name,
		Panes:  snap.Panes,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[K线数据 (K-LINE DATA)]")
	fmt.Printf("  行情来源: %s\n", s.Market)
	fmt.Printf("  监控币种: %s\n", formatList(s.KLine.Symbols))
	fmt.Printf("  订阅周期: %s\n", formatList(s.KLine.Intervals))
	fmt.Printf("  最大缓存: %d\n", s.KLine.MaxCached)
	fmt.Println()

	fmt.Println("[面板布局 (PANE LAYOUT)]")
	if len(s.Panes) == 0 {
		fmt.Println("  (无配置)")
	} else {
		ids := make([]string, 0, len(s.Panes))
		for id := range s.Panes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			def := s.Panes[id]
			fmt.Printf("  > %s: %s %s 可见=%d 历史=%d 时区=%s\n",
				id, def.Symbol, def.Interval, def.VisibleBars, def.HistoryBars, def.Timezone)
		}
	}
	fmt.Println()

	fmt.Printf("[HTTP 接口] %s\n", s.HTTP)
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
