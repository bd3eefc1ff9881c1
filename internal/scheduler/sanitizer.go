package scheduler

import (
	"time"

	"chartlink/internal/market"
)

const DefaultKlineGrace = 10 * time.Second

// DropUnclosedKline 丢掉仍在进行中的最后一根K线。交易所风格的历史接口
// 末尾常带着当前未收盘的K线，进入 TimeIndex 前先剔除，否则同一时间戳
// 会在下次刷新时变化。时间均为毫秒时间戳。
func DropUnclosedKline(klines []market.Candle, interval time.Duration) []market.Candle {
	return dropUnclosedKlineAt(klines, interval, time.Now().UTC(), DefaultKlineGrace)
}

func dropUnclosedKlineAt(klines []market.Candle, interval time.Duration, now time.Time, grace time.Duration) []market.Candle {
	if len(klines) == 0 {
		return klines
	}
	if interval <= 0 {
		return klines
	}
	if grace < 0 {
		grace = 0
	}
	last := klines[len(klines)-1]
	if last.OpenTime <= 0 {
		return klines
	}
	closeTimeMs := last.OpenTime + interval.Milliseconds()
	cutoffMs := closeTimeMs + grace.Milliseconds()
	if now.UnixMilli() < cutoffMs {
		return klines[:len(klines)-1]
	}
	return klines
}
