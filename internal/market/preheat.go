package market

import (
	"context"
	"time"

	"chartlink/internal/logger"
)

// 中文说明：
// 预热器：进程启动时优先从本地缓存恢复K线，不足部分走 REST 拉取，
// 避免 WS 冷启动期间面板数据集为空。

// CandleCache 是可选的本地K线持久层。
type CandleCache interface {
	Load(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	Save(ctx context.Context, symbol, interval string, ks []Candle) error
}

type Preheater struct {
	Store  KlineStore
	Max    int
	Source Source
	Cache  CandleCache
}

func NewPreheater(s KlineStore, max int, src Source) *Preheater {
	return &Preheater{Store: s, Max: max, Source: src}
}

// Warmup 为每个 symbol+interval 准备至少 need 根K线：先读缓存，
// 不足再拉取，最后把拉取结果回写缓存。
func (p *Preheater) Warmup(ctx context.Context, pairs map[string][]string, need int) {
	if p.Store == nil || p.Source == nil || len(pairs) == 0 {
		return
	}
	if need <= 0 {
		need = 200
	}
	for sym, intervals := range pairs {
		for _, iv := range intervals {
			select {
			case <-ctx.Done():
				return
			default:
			}
			p.warmupOne(ctx, sym, iv, need)
		}
	}
}

func (p *Preheater) warmupOne(ctx context.Context, symbol, interval string, need int) {
	cached := 0
	if p.Cache != nil {
		batch, err := p.Cache.Load(ctx, symbol, interval, need)
		if err != nil {
			logger.Warnf("[预热] 读取缓存 %s %s 失败: %v", symbol, interval, err)
		} else if len(batch) > 0 {
			if err := p.Store.Put(ctx, symbol, interval, batch, p.Max); err != nil {
				logger.Warnf("[预热] 写入 %s %s 失败: %v", symbol, interval, err)
			} else {
				cached = len(batch)
			}
		}
	}
	if cached >= need {
		logger.Infof("[warmup] %s %s ready from cache (%d/%d)", symbol, interval, cached, need)
		return
	}
	batch, err := p.Source.FetchHistory(ctx, symbol, interval, need)
	if err != nil {
		logger.Warnf("[warmup] 拉取 %s %s 失败: %v", symbol, interval, err)
		return
	}
	if len(batch) == 0 {
		logger.Warnf("[warmup] 拉取 %s %s 得到空数据", symbol, interval)
		return
	}
	if err := p.Store.Put(ctx, symbol, interval, batch, p.Max); err != nil {
		logger.Warnf("[warmup] 写入 %s %s 失败: %v", symbol, interval, err)
		return
	}
	if p.Cache != nil {
		if err := p.Cache.Save(ctx, symbol, interval, batch); err != nil {
			logger.Warnf("[warmup] 回写缓存 %s %s 失败: %v", symbol, interval, err)
		}
	}
	last := batch[len(batch)-1]
	lT := time.UnixMilli(last.CloseTime).UTC().Format(time.RFC3339)
	logger.Debugf("[warmup] %s %s 条数=%d 尾收=%.4f@%s", symbol, interval, len(batch), last.Close, lT)
}
