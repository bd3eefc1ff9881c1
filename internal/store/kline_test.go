package store

import (
	"context"
	"testing"

	"chartlink/internal/market"

	"github.com/stretchr/testify/assert"
)

func mkCandles(times ...int64) []market.Candle {
	out := make([]market.Candle, 0, len(times))
	for _, ts := range times {
		out = append(out, market.Candle{OpenTime: ts, Close: float64(ts)})
	}
	return out
}

func TestMemoryKlineStore_PutMergesLastCandle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKlineStore()

	assert.NoError(t, s.Put(ctx, "BTCUSDT", "5m", mkCandles(100, 200), 10))

	// 进行中的K线反复推送：同 OpenTime 原地更新
	updated := []market.Candle{{OpenTime: 200, Close: 999}}
	assert.NoError(t, s.Put(ctx, "BTCUSDT", "5m", updated, 10))

	got, err := s.Get(ctx, "BTCUSDT", "5m")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, float64(999), got[1].Close)

	assert.NoError(t, s.Put(ctx, "BTCUSDT", "5m", mkCandles(300), 10))
	got, _ = s.Get(ctx, "BTCUSDT", "5m")
	assert.Len(t, got, 3)
}

func TestMemoryKlineStore_PutTrimsToMax(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKlineStore()

	assert.NoError(t, s.Put(ctx, "ETHUSDT", "1h", mkCandles(1, 2, 3, 4, 5), 3))

	got, _ := s.Get(ctx, "ETHUSDT", "1h")
	assert.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].OpenTime)
	assert.Equal(t, int64(5), got[2].OpenTime)
}

func TestMemoryKlineStore_SetReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKlineStore()

	assert.NoError(t, s.Put(ctx, "BTCUSDT", "5m", mkCandles(1, 2, 3), 10))
	assert.NoError(t, s.Set(ctx, "BTCUSDT", "5m", mkCandles(7, 8)))

	got, _ := s.Get(ctx, "BTCUSDT", "5m")
	assert.Len(t, got, 2)
	assert.Equal(t, int64(7), got[0].OpenTime)
}

func TestMemoryKlineStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKlineStore()
	assert.NoError(t, s.Set(ctx, "BTCUSDT", "5m", mkCandles(1, 2)))

	got, _ := s.Get(ctx, "BTCUSDT", "5m")
	got[0].OpenTime = 777

	again, _ := s.Get(ctx, "BTCUSDT", "5m")
	assert.Equal(t, int64(1), again[0].OpenTime)
}

func TestMemoryKlineStore_ValidatesKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryKlineStore()
	assert.Error(t, s.Put(ctx, "", "5m", mkCandles(1), 10))
	assert.Error(t, s.Set(ctx, "BTCUSDT", "", nil))
}

func TestMemoryKlineStore_GetUnknownIsEmpty(t *testing.T) {
	s := NewMemoryKlineStore()
	got, err := s.Get(context.Background(), "NOPE", "5m")
	assert.NoError(t, err)
	assert.Empty(t, got)
}
