package ratelimit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rule allows Limit events per sliding Window
type Rule struct {
	Limit  int
	Window time.Duration
}

var rulePattern = regexp.MustCompile(`^(\d+)\s*(?:/|per)\s*(\d*)\s*(second|minute|hour|day)s?$`)

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRule reads rules written as "100/minute", "1/15second" or "3 per 1 minute"
func ParseRule(s string) (Rule, error) {
	m := rulePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return Rule{}, fmt.Errorf("parsing rate limit %q: expected <count>/<n><unit>", s)
	}
	limit, err := strconv.Atoi(m[1])
	if err != nil || limit <= 0 {
		return Rule{}, fmt.Errorf("parsing rate limit %q: count must be positive", s)
	}
	multiplier := 1
	if m[2] != "" {
		multiplier, err = strconv.Atoi(m[2])
		if err != nil || multiplier <= 0 {
			return Rule{}, fmt.Errorf("parsing rate limit %q: window must be positive", s)
		}
	}
	return Rule{Limit: limit, Window: time.Duration(multiplier) * units[m[3]]}, nil
}

// MustParseRule is ParseRule for compile-time constants
func MustParseRule(s string) Rule {
	r, err := ParseRule(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders the rule the way 429 bodies describe it, e.g. "100 per 1 minute"
func (r Rule) String() string {
	for _, u := range []string{"day", "hour", "minute"} {
		d := units[u]
		if r.Window >= d && r.Window%d == 0 {
			return fmt.Sprintf("%d per %d %s", r.Limit, r.Window/d, u)
		}
	}
	return fmt.Sprintf("%d per %d second", r.Limit, int64(r.Window/time.Second))
}
