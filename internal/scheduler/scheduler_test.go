package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlignedScheduler_NextTimes(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), 5*time.Minute, 2*time.Second)

	now := time.Date(2024, 3, 1, 12, 2, 30, 0, time.UTC)
	nextClose, wakeAt, wait := s.nextTimes(now)

	assert.Equal(t, time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC), nextClose)
	assert.Equal(t, nextClose.Add(2*time.Second), wakeAt)
	assert.Equal(t, 2*time.Minute+32*time.Second, wait)
}

func TestAlignedScheduler_NextTimesOnBoundary(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), time.Hour, 0)

	// 正好落在整点上，下一次收盘是下一个整点
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	nextClose, _, wait := s.nextTimes(now)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), nextClose)
	assert.Equal(t, time.Hour, wait)
}

func TestAlignedScheduler_StartStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewAlignedScheduler(ctx, time.Hour, 0)
	s.Name = "test"

	done := make(chan struct{})
	go func() {
		s.Start(func() {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit after cancel")
	}
}

func TestAlignedScheduler_InvalidIntervalExits(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), 0, 0)
	ran := false
	s.Start(func() { ran = true })
	assert.False(t, ran)
}
