package market

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeStore 只记录 Put 调用。
type fakeStore struct {
	data map[string][]Candle
	puts int
}

func newFakeStore() *fakeStore { return &fakeStore{data: make(map[string][]Candle)} }

func (f *fakeStore) key(symbol, interval string) string { return symbol + "|" + interval }

func (f *fakeStore) Get(_ context.Context, symbol, interval string) ([]Candle, error) {
	return f.data[f.key(symbol, interval)], nil
}

func (f *fakeStore) Set(_ context.Context, symbol, interval string, klines []Candle) error {
	f.data[f.key(symbol, interval)] = klines
	return nil
}

func (f *fakeStore) Put(_ context.Context, symbol, interval string, klines []Candle, max int) error {
	f.puts++
	f.data[f.key(symbol, interval)] = klines
	return nil
}

// fakeHistorySource 按请求返回 n 根K线并计数。
type fakeHistorySource struct {
	fetches int
	fail    bool
}

func (f *fakeHistorySource) FetchHistory(_ context.Context, symbol, interval string, limit int) ([]Candle, error) {
	f.fetches++
	if f.fail {
		return nil, fmt.Errorf("rest unavailable")
	}
	out := make([]Candle, limit)
	for i := range out {
		out[i] = Candle{OpenTime: int64(i+1) * 60_000, CloseTime: int64(i+1)*60_000 + 59_999, Close: 100}
	}
	return out, nil
}

func (f *fakeHistorySource) Subscribe(context.Context, []string, []string, SubscribeOptions) (<-chan CandleEvent, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeHistorySource) Stats() SourceStats { return SourceStats{} }
func (f *fakeHistorySource) Close() error       { return nil }

// fakeCache 内存版 CandleCache。
type fakeCache struct {
	data  map[string][]Candle
	saves int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]Candle)} }

func (f *fakeCache) Load(_ context.Context, symbol, interval string, limit int) ([]Candle, error) {
	ks := f.data[symbol+"|"+interval]
	if limit > 0 && len(ks) > limit {
		ks = ks[len(ks)-limit:]
	}
	return ks, nil
}

func (f *fakeCache) Save(_ context.Context, symbol, interval string, ks []Candle) error {
	f.saves++
	f.data[symbol+"|"+interval] = ks
	return nil
}

func TestPreheater_CacheSatisfiesNeed(t *testing.T) {
	store := newFakeStore()
	src := &fakeHistorySource{}
	cache := newFakeCache()
	cache.data["BTCUSDT|5m"] = make([]Candle, 100)

	p := &Preheater{Store: store, Max: 1000, Source: src, Cache: cache}
	p.Warmup(context.Background(), map[string][]string{"BTCUSDT": {"5m"}}, 100)

	// 缓存已满足需求，不再走 REST
	assert.Equal(t, 0, src.fetches)
	assert.Equal(t, 1, store.puts)
}

func TestPreheater_FallsBackToRESTAndWritesBack(t *testing.T) {
	store := newFakeStore()
	src := &fakeHistorySource{}
	cache := newFakeCache()
	cache.data["BTCUSDT|5m"] = make([]Candle, 10) // 不足

	p := &Preheater{Store: store, Max: 1000, Source: src, Cache: cache}
	p.Warmup(context.Background(), map[string][]string{"BTCUSDT": {"5m"}}, 100)

	assert.Equal(t, 1, src.fetches)
	assert.Equal(t, 1, cache.saves)
	got, _ := store.Get(context.Background(), "BTCUSDT", "5m")
	assert.Len(t, got, 100)
}

func TestPreheater_NoCacheStillWarms(t *testing.T) {
	store := newFakeStore()
	src := &fakeHistorySource{}

	p := NewPreheater(store, 1000, src)
	p.Warmup(context.Background(), map[string][]string{
		"BTCUSDT": {"5m", "1h"},
		"ETHUSDT": {"5m"},
	}, 50)

	assert.Equal(t, 3, src.fetches)
}

func TestPreheater_FetchFailureLeavesStoreEmpty(t *testing.T) {
	store := newFakeStore()
	src := &fakeHistorySource{fail: true}

	p := NewPreheater(store, 1000, src)
	p.Warmup(context.Background(), map[string][]string{"BTCUSDT": {"5m"}}, 50)

	got, _ := store.Get(context.Background(), "BTCUSDT", "5m")
	assert.Empty(t, got)
}

func TestPreheater_CancelledContextStopsEarly(t *testing.T) {
	store := newFakeStore()
	src := &fakeHistorySource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPreheater(store, 1000, src)
	p.Warmup(ctx, map[string][]string{"BTCUSDT": {"5m"}}, 50)
	assert.Equal(t, 0, src.fetches)
}
