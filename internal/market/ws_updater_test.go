package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamSource 把预置事件灌进订阅通道。
type streamSource struct {
	events chan CandleEvent
	closed bool
}

func (s *streamSource) FetchHistory(context.Context, string, string, int) ([]Candle, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *streamSource) Subscribe(context.Context, []string, []string, SubscribeOptions) (<-chan CandleEvent, error) {
	return s.events, nil
}

func (s *streamSource) Stats() SourceStats { return SourceStats{Reconnects: 1} }
func (s *streamSource) Close() error {
	s.closed = true
	return nil
}

func TestWSUpdater_ConsumeWritesStoreAndForwards(t *testing.T) {
	store := newFakeStore()
	src := &streamSource{events: make(chan CandleEvent, 4)}

	forwarded := make(chan CandleEvent, 4)
	u := NewWSUpdater(store, 1000, src, WithWSEventHandler(func(evt CandleEvent) {
		forwarded <- evt
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, u.Start(ctx, []string{"BTCUSDT"}, []string{"5m"}))

	src.events <- CandleEvent{
		Symbol:   "btcusdt", // 转发前统一成大写
		Interval: "5m",
		Candle:   Candle{OpenTime: 300_000, Close: 101},
		Closed:   true,
	}

	select {
	case evt := <-forwarded:
		assert.True(t, evt.Closed)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not forwarded")
	}

	got, err := store.Get(ctx, "BTCUSDT", "5m")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(300_000), got[0].OpenTime)
}

func TestWSUpdater_StartValidatesInput(t *testing.T) {
	u := NewWSUpdater(newFakeStore(), 1000, nil)
	assert.Error(t, u.Start(context.Background(), []string{"BTCUSDT"}, []string{"5m"}))

	u = NewWSUpdater(newFakeStore(), 1000, &streamSource{events: make(chan CandleEvent)})
	assert.Error(t, u.Start(context.Background(), nil, []string{"5m"}))
}

func TestWSUpdater_CloseShutsDownSource(t *testing.T) {
	src := &streamSource{events: make(chan CandleEvent)}
	u := NewWSUpdater(newFakeStore(), 1000, src)
	u.Close()
	assert.True(t, src.closed)
	assert.Equal(t, 1, u.Stats().Reconnects)
}
