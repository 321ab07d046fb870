package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore() (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStoreWithClock(clock.Now), clock
}

func TestStore_Hit(t *testing.T) {
	ctx := context.Background()
	rule := ratelimit.Rule{Limit: 3, Window: time.Minute}

	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		s, _ := newStore()
		for i := 0; i < 3; i++ {
			d, err := s.Hit(ctx, "k", rule)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 2-i, d.Remaining)
		}
		d, err := s.Hit(ctx, "k", rule)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, time.Minute, d.RetryAfter)
	})

	t.Run("window rolls over", func(t *testing.T) {
		s, clock := newStore()
		for i := 0; i < 3; i++ {
			_, _ = s.Hit(ctx, "k", rule)
			clock.Advance(10 * time.Second)
		}
		d, _ := s.Hit(ctx, "k", rule)
		assert.False(t, d.Allowed)
		assert.Equal(t, 30*time.Second, d.RetryAfter)

		clock.Advance(30 * time.Second)
		d, _ = s.Hit(ctx, "k", rule)
		assert.True(t, d.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s, _ := newStore()
		one := ratelimit.Rule{Limit: 1, Window: 15 * time.Second}
		d, _ := s.Hit(ctx, "a", one)
		assert.True(t, d.Allowed)
		d, _ = s.Hit(ctx, "b", one)
		assert.True(t, d.Allowed)
		d, _ = s.Hit(ctx, "a", one)
		assert.False(t, d.Allowed)
	})

	t.Run("duplicate window re-accepts after 15 seconds", func(t *testing.T) {
		s, clock := newStore()
		dup := ratelimit.DefaultDuplicateRule
		d, _ := s.Hit(ctx, "dup:ip:fp", dup)
		assert.True(t, d.Allowed)

		clock.Advance(14 * time.Second)
		d, _ = s.Hit(ctx, "dup:ip:fp", dup)
		assert.False(t, d.Allowed)
		assert.Equal(t, time.Second, d.RetryAfter)

		clock.Advance(time.Second)
		d, _ = s.Hit(ctx, "dup:ip:fp", dup)
		assert.True(t, d.Allowed)
	})

	t.Run("concurrent hits never exceed the limit", func(t *testing.T) {
		s, _ := newStore()
		limit := ratelimit.Rule{Limit: 10, Window: time.Minute}
		var allowed int64
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if d, _ := s.Hit(ctx, "k", limit); d.Allowed {
					atomic.AddInt64(&allowed, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int64(10), allowed)
	})
}

func TestStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s, clock := newStore()

	_, _ = s.Hit(ctx, "short", ratelimit.Rule{Limit: 1, Window: 15 * time.Second})
	_, _ = s.Hit(ctx, "long", ratelimit.Rule{Limit: 1, Window: time.Minute})
	require.Equal(t, 2, s.Len())

	clock.Advance(20 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}
