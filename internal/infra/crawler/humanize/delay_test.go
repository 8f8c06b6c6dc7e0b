package humanize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetweenStaysInRange(t *testing.T) {
	d := NewDelayer(42)
	r := Range{Min: time.Second, Max: 3 * time.Second}
	for range 1000 {
		got := d.Between(r)
		assert.GreaterOrEqual(t, got, r.Min)
		assert.LessOrEqual(t, got, r.Max)
	}
}

func TestBetweenVaries(t *testing.T) {
	d := NewDelayer(7)
	r := Range{Min: 0, Max: time.Second}
	seen := map[time.Duration]struct{}{}
	for range 50 {
		seen[d.Between(r)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1, "delays should not be a fixed interval")
}

func TestBetweenDegenerateRange(t *testing.T) {
	d := NewDelayer(1)
	assert.Equal(t, 2*time.Second, d.Between(Range{Min: 2 * time.Second, Max: 2 * time.Second}))
	assert.Equal(t, 2*time.Second, d.Between(Range{Min: 2 * time.Second, Max: time.Second}))
	assert.Equal(t, time.Duration(0), d.Between(Range{}))
}

func TestSleepZeroReturnsImmediately(t *testing.T) {
	d := NewDelayer(1)
	start := time.Now()
	require.NoError(t, d.Sleep(context.Background(), Range{}))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewDelayer(1).Sleep(ctx, Range{Min: time.Hour, Max: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRangeIsValid(t *testing.T) {
	assert.True(t, Range{Min: time.Second, Max: 2 * time.Second}.IsValid())
	assert.True(t, Range{}.IsValid())
	assert.False(t, Range{Min: 2 * time.Second, Max: time.Second}.IsValid())
	assert.False(t, Range{Min: -time.Second}.IsValid())
}
