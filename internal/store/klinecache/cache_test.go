package klinecache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartlink/internal/market"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "kline_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func seedCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{
			OpenTime:  int64(i) * 300_000,
			CloseTime: int64(i)*300_000 + 299_999,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100.5,
			Volume:    float64(i),
			Trades:    int64(i),
		}
	}
	return out
}

func TestCache_SaveAndLoadRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "BTCUSDT", "5m", seedCandles(5)))

	got, err := c.Load(ctx, "BTCUSDT", "5m", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	// 升序交付
	assert.Equal(t, int64(0), got[0].OpenTime)
	assert.Equal(t, int64(4*300_000), got[4].OpenTime)
	assert.Equal(t, 100.5, got[2].Close)
}

func TestCache_LoadLimitReturnsLatest(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "BTCUSDT", "5m", seedCandles(10)))

	got, err := c.Load(ctx, "BTCUSDT", "5m", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// 只取最近 3 根，但依旧升序
	assert.Equal(t, int64(7*300_000), got[0].OpenTime)
	assert.Equal(t, int64(9*300_000), got[2].OpenTime)
}

func TestCache_SaveReplacesDataset(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "BTCUSDT", "5m", seedCandles(10)))
	require.NoError(t, c.Save(ctx, "BTCUSDT", "5m", seedCandles(2)))

	got, err := c.Load(ctx, "BTCUSDT", "5m", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCache_DatasetsAreIsolated(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "BTCUSDT", "5m", seedCandles(3)))
	require.NoError(t, c.Save(ctx, "BTCUSDT", "1h", seedCandles(1)))

	got, err := c.Load(ctx, "BTCUSDT", "5m", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = c.Load(ctx, "ETHUSDT", "5m", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_SaveRejectsEmptyKey(t *testing.T) {
	c := newTestCache(t)
	assert.Error(t, c.Save(context.Background(), "", "5m", nil))
	assert.Error(t, c.Save(context.Background(), "BTCUSDT", " ", nil))
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
