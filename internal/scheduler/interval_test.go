package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"1m", time.Minute, true},
		{"15m", 15 * time.Minute, true},
		{"4h", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{" 5M ", 5 * time.Minute, true}, // 容忍大小写与空白
		{"", 0, false},
		{"m", 0, false},
		{"0m", 0, false},
		{"-5m", 0, false},
		{"5x", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		d, ok := ParseIntervalDuration(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, d, c.in)
	}
}

func TestIntervalMillis(t *testing.T) {
	ms, ok := IntervalMillis("5m")
	assert.True(t, ok)
	assert.Equal(t, int64(300_000), ms)

	_, ok = IntervalMillis("bogus")
	assert.False(t, ok)
}
