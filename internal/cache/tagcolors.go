package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultColor = "#718096"

// LoadFunc fetches the colour of every known tag.
type LoadFunc func(ctx context.Context) (map[string]string, error)

// TagColors is a read-through cache of tag name -> colour. A miss (or an
// expired entry) reloads the whole library once, no matter how many
// requests are waiting.
type TagColors struct {
	load LoadFunc
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	colors   map[string]string
	loadedAt time.Time
	gen      uint64 // bumped by Invalidate

	group singleflight.Group
}

func NewTagColors(load LoadFunc, ttl time.Duration) *TagColors {
	return &TagColors{load: load, ttl: ttl, now: time.Now}
}

// Color returns the colour for name, DefaultColor when the tag is unknown
// or the library cannot be loaded.
func (c *TagColors) Color(ctx context.Context, name string) string {
	c.mu.RLock()
	color, ok := c.colors[name]
	fresh := c.colors != nil && c.now().Sub(c.loadedAt) < c.ttl
	c.mu.RUnlock()

	if ok && fresh {
		return color
	}
	if fresh {
		// Loaded recently and the tag is not in it: probably an inline tag.
		return DefaultColor
	}

	colors, err := c.refresh(ctx)
	if err != nil {
		return DefaultColor
	}
	if color, ok := colors[name]; ok {
		return color
	}
	return DefaultColor
}

// Colors resolves several names with at most one reload.
func (c *TagColors) Colors(ctx context.Context, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = c.Color(ctx, n)
	}
	return out
}

// Invalidate drops the cached library; the next lookup reloads it. A load
// already in flight still answers its waiters but is not cached.
func (c *TagColors) Invalidate() {
	c.mu.Lock()
	c.colors = nil
	c.gen++
	c.mu.Unlock()
	c.group.Forget("all")
}

func (c *TagColors) refresh(ctx context.Context) (map[string]string, error) {
	v, err, _ := c.group.Do("all", func() (interface{}, error) {
		c.mu.RLock()
		cached, loadedAt, gen := c.colors, c.loadedAt, c.gen
		c.mu.RUnlock()
		if cached != nil && c.now().Sub(loadedAt) < c.ttl {
			return cached, nil
		}

		// Shared by every waiter, so one caller going away must not fail the rest.
		colors, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.colors = colors
			c.loadedAt = c.now()
		}
		c.mu.Unlock()
		return colors, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}
