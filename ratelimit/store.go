package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one check-and-record
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store records events per key under a sliding window.
// Hit must check and record atomically: concurrent callers never both
// observe the last free slot.
type Store interface {
	Hit(ctx context.Context, key string, rule Rule) (Decision, error)
}

// NoOpStore allows everything (rate limiting disabled)
type NoOpStore struct{}

func (NoOpStore) Hit(ctx context.Context, key string, rule Rule) (Decision, error) {
	return Decision{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}, nil
}
