package market

import (
	"context"
)

type KlineStore interface {
	// Get 返回指定 symbol/interval 当前持有的K线，按 OpenTime 升序。
	Get(ctx context.Context, symbol, interval string) ([]Candle, error)
	// Set 整体替换一个数据集（换标的、换粒度或全量刷新）。
	Set(ctx context.Context, symbol, interval string, klines []Candle) error
	// Put 增量合并K线并裁剪到 max 根。
	Put(ctx context.Context, symbol, interval string, klines []Candle, max int) error
}
