package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTagColors_ReadThrough(t *testing.T) {
	var loads atomic.Int32
	c := NewTagColors(func(ctx context.Context) (map[string]string, error) {
		loads.Add(1)
		return map[string]string{"Weekend": "#e53e3e"}, nil
	}, time.Minute)

	assert.Equal(t, "#e53e3e", c.Color(context.Background(), "Weekend"))
	assert.Equal(t, DefaultColor, c.Color(context.Background(), "Inline"))
	assert.Equal(t, int32(1), loads.Load())

	c.Invalidate()
	assert.Equal(t, "#e53e3e", c.Color(context.Background(), "Weekend"))
	assert.Equal(t, int32(2), loads.Load())
}

func TestTagColors_Expiry(t *testing.T) {
	var loads atomic.Int32
	c := NewTagColors(func(ctx context.Context) (map[string]string, error) {
		loads.Add(1)
		return map[string]string{"Morning": "#d69e2e"}, nil
	}, time.Minute)

	now := time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Color(context.Background(), "Morning")
	now = now.Add(30 * time.Second)
	c.Color(context.Background(), "Morning")
	assert.Equal(t, int32(1), loads.Load())

	now = now.Add(time.Minute)
	c.Color(context.Background(), "Morning")
	assert.Equal(t, int32(2), loads.Load())
}

func TestTagColors_ConcurrentMissLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := NewTagColors(func(ctx context.Context) (map[string]string, error) {
		loads.Add(1)
		<-release
		return map[string]string{"Weekday": "#3182ce"}, nil
	}, time.Minute)

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Color(context.Background(), "Weekday")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		assert.Equal(t, "#3182ce", r)
	}
}

func TestTagColors_LoadError(t *testing.T) {
	c := NewTagColors(func(ctx context.Context) (map[string]string, error) {
		return nil, errors.New("db down")
	}, time.Minute)

	got := c.Colors(context.Background(), []string{"A", "B"})
	assert.Equal(t, map[string]string{"A": DefaultColor, "B": DefaultColor}, got)
}

func TestTagColors_InvalidateDuringLoad(t *testing.T) {
	var loads atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	c := NewTagColors(func(ctx context.Context) (map[string]string, error) {
		if loads.Add(1) == 1 {
			close(started)
			<-release
			return map[string]string{"Weekend": "#111111"}, nil
		}
		return map[string]string{"Weekend": "#222222"}, nil
	}, time.Minute)

	done := make(chan string)
	go func() { done <- c.Color(context.Background(), "Weekend") }()
	<-started
	c.Invalidate()
	close(release)
	assert.Equal(t, "#111111", <-done)

	// The load that raced the edit was not kept.
	assert.Equal(t, "#222222", c.Color(context.Background(), "Weekend"))
	assert.Equal(t, int32(2), loads.Load())
}

func TestTagColors_CancelledCallerStillLoads(t *testing.T) {
	c := NewTagColors(func(ctx context.Context) (map[string]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return map[string]string{"Weekend": "#e53e3e"}, nil
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, "#e53e3e", c.Color(ctx, "Weekend"))
}
