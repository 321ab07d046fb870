package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marcelsud/webhook-relay/ratelimit"
)

// Store is an in-process sliding-window log. A single mutex makes each Hit atomic.
type Store struct {
	mu   sync.Mutex
	keys map[string]*window
	now  func() time.Time
}

type window struct {
	hits   []time.Time
	length time.Duration
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock is used by tests to control time
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{keys: make(map[string]*window), now: now}
}

func (s *Store) Hit(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.keys[key]
	if !ok {
		w = &window{}
		s.keys[key] = w
	}
	w.length = rule.Window
	w.prune(now)

	if len(w.hits) < rule.Limit {
		w.hits = append(w.hits, now)
		return ratelimit.Decision{
			Allowed:   true,
			Limit:     rule.Limit,
			Remaining: rule.Limit - len(w.hits),
		}, nil
	}

	return ratelimit.Decision{
		Allowed:    false,
		Limit:      rule.Limit,
		Remaining:  0,
		RetryAfter: w.hits[0].Add(rule.Window).Sub(now),
	}, nil
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.length)
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	w.hits = w.hits[i:]
}

// Sweep drops keys with no hits left inside their window
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, w := range s.keys {
		w.prune(now)
		if len(w.hits) == 0 {
			delete(s.keys, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Run sweeps every interval until ctx is done
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
