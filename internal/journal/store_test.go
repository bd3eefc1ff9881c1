package journal

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartlink/internal/measure"
	"chartlink/internal/pane"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "measurements.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := pane.DomainPoint{Time: 1700000000000, Price: 100, Index: 10}
	end := pane.DomainPoint{Time: 1700003000000, Price: 102, Index: 20}
	stats := measure.Stats{PriceDiff: 2, PctChange: 2, IsUp: true}

	rec, err := s.Append(ctx, "pane1", "BTCUSDT", "5m", start, end, stats)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1700000000000), rec.StartTime)
	assert.Equal(t, 102.0, rec.EndPrice)

	got, err := s.List(ctx, "pane1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)

	// Stats 以 JSON 形式持久化，可还原
	var restored measure.Stats
	require.NoError(t, json.Unmarshal(got[0].Stats, &restored))
	assert.Equal(t, 2.0, restored.PriceDiff)
	assert.True(t, restored.IsUp)
}

func TestStore_ListFiltersByPane(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := pane.DomainPoint{Time: 1, Price: 1}

	_, err := s.Append(ctx, "pane1", "BTCUSDT", "5m", p, p, measure.Stats{})
	require.NoError(t, err)
	_, err = s.Append(ctx, "pane2", "ETHUSDT", "1h", p, p, measure.Stats{})
	require.NoError(t, err)

	got, err := s.List(ctx, "pane2", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ETHUSDT", got[0].Symbol)

	all, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_ListLimitFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := pane.DomainPoint{Time: 1, Price: 1}

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, "pane1", "BTCUSDT", "5m", p, p, measure.Stats{})
		require.NoError(t, err)
	}
	got, err := s.List(ctx, "pane1", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestNewStore_RejectsEmptyPath(t *testing.T) {
	_, err := NewStore("  ")
	assert.Error(t, err)
}
