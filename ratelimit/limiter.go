package ratelimit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Scopes name the coarse limit buckets, one per endpoint
const (
	ScopeIndex    = "index"
	ScopeCount    = "count"
	ScopeRegister = "register"
	ScopeRelay    = "relay"
)

var (
	DefaultRule          = MustParseRule("100/minute")
	DefaultRegisterRule  = MustParseRule("3/minute")
	DefaultDuplicateRule = MustParseRule("1/15second")
)

// Limiter applies coarse per-endpoint limits and duplicate-content suppression over a Store.
// When the store fails the returned Decision is allowed alongside the error.
type Limiter struct {
	Store     Store
	Duplicate Rule
	Logger    zerolog.Logger
}

func NewLimiter(store Store, duplicate Rule, logger zerolog.Logger) *Limiter {
	if duplicate.Limit == 0 {
		duplicate = DefaultDuplicateRule
	}
	return &Limiter{Store: store, Duplicate: duplicate, Logger: logger}
}

func CoarseKey(scope, identity string) string {
	return "coarse:" + scope + ":" + identity
}

func DuplicateKey(identity, fingerprint string) string {
	if fingerprint == "" {
		return "dup:" + identity
	}
	return "dup:" + identity + ":" + fingerprint
}

func (l *Limiter) CheckCoarse(ctx context.Context, scope, identity string, rule Rule) (Decision, error) {
	return l.hit(ctx, CoarseKey(scope, identity), rule)
}

// CheckDuplicate rejects the same payload from the same identity within the duplicate window.
// A payload that cannot be fingerprinted is keyed by identity alone.
func (l *Limiter) CheckDuplicate(ctx context.Context, identity string, payload any) (Decision, error) {
	fp, err := Fingerprint(payload)
	if err != nil {
		l.Logger.Debug().Err(err).Str("identity", identity).Msg("falling back to identity-only duplicate key")
		fp = ""
	}
	return l.hit(ctx, DuplicateKey(identity, fp), l.Duplicate)
}

func (l *Limiter) hit(ctx context.Context, key string, rule Rule) (Decision, error) {
	d, err := l.Store.Hit(ctx, key, rule)
	if err != nil {
		return Decision{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}, fmt.Errorf("checking rate limit: %w", err)
	}
	return d, nil
}
