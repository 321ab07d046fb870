package metrics

import (
	"context"
	"time"
)

// Snapshot represents the current state of the relay.
type Snapshot struct {
	// RegisteredWebhooks is the number of relay mappings in the registry
	RegisteredWebhooks int64 `json:"registered_webhooks"`

	// QueueDepth is the number of forwards waiting for a worker
	QueueDepth int64 `json:"queue_depth"`

	// QueueCapacity is the size of the forward queue
	QueueCapacity int64 `json:"queue_capacity"`

	// Timestamp when the snapshot was taken
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for sampling gauges from the running system.
type Collector interface {
	Collect(ctx context.Context) (Snapshot, error)

	// GetRegisteredCount returns the number of stored mappings
	GetRegisteredCount(ctx context.Context) (int64, error)

	// GetQueueStats returns the forward queue depth and capacity
	GetQueueStats(ctx context.Context) (depth, capacity int64, err error)
}

// Relay request outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeClosed   = "closed"
	OutcomeError    = "error"
)

// Forward outcomes
const (
	ForwardSuccess = "success"
	ForwardFailure = "failure"
	ForwardDropped = "dropped"
)

// ScopeDuplicate labels rejections by the duplicate-content rule
const ScopeDuplicate = "duplicate"

// Recorder receives events from request handling and background forwarding.
type Recorder interface {
	RecordRegistration(ctx context.Context, outcome string)
	RecordRelay(ctx context.Context, outcome string)
	RecordRateLimited(ctx context.Context, scope string)
	RecordLimiterError(ctx context.Context)
	RecordForward(ctx context.Context, outcome string, elapsed time.Duration)
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordRegistration(context.Context, string) {}
func (Nop) RecordRelay(context.Context, string) {}
func (Nop) RecordRateLimited(context.Context, string) {}
func (Nop) RecordLimiterError(context.Context) {}
func (Nop) RecordForward(context.Context, string, time.Duration) {}
