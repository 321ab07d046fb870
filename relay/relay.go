package relay

import (
	"context"
	"errors"

	"github.com/marcelsud/webhook-relay/webhook/payload"
)

// ErrDispatcherClosed is returned by Relay once shutdown has begun
var ErrDispatcherClosed = errors.New("dispatcher closed")

// ErrForwardFailed wraps non-2xx responses from a destination
var ErrForwardFailed = errors.New("forward failed")

// Job is one accepted relay waiting to be forwarded
type Job struct {
	HookID         string
	DestinationURL string
	Payload        payload.Payload
	RequestID      string
}

// UseCase accepts relay requests
type UseCase interface {
	Relay(ctx context.Context, id string, p payload.Payload) error
}

// Resolver maps a relay id to its destination URL
type Resolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Sender delivers one payload to one destination
type Sender interface {
	Send(ctx context.Context, destinationURL string, p payload.Payload) error
}
