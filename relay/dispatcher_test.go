package relay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/mocks"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/marcelsud/webhook-relay/webhook/payload"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const destination = "https://discord.com/api/webhooks/1/token"

type forwardRecorder struct {
	metrics.Nop
	mu       sync.Mutex
	outcomes []string
}

func (r *forwardRecorder) RecordForward(_ context.Context, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *forwardRecorder) Outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

type funcSender func(ctx context.Context, url string, p payload.Payload) error

func (f funcSender) Send(ctx context.Context, url string, p payload.Payload) error {
	return f(ctx, url, p)
}

func mustPayload(t *testing.T, body string) payload.Payload {
	t.Helper()
	p, err := payload.Parse([]byte(body))
	require.NoError(t, err)
	return p
}

func TestDispatcher_Relay(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards exactly once", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		sender := mocks.NewSender(t)
		p := mustPayload(t, `{"content":"hello"}`)
		sent := make(chan struct{}, 2)

		resolver.On("Resolve", ctx, "abc").Return(destination, nil)
		sender.On("Send", mock.Anything, destination, p).
			Run(func(mock.Arguments) { sent <- struct{}{} }).
			Return(nil).Once()

		rec := &forwardRecorder{}
		d := relay.NewDispatcher(resolver, sender, rec, relay.DispatcherConfig{Workers: 2, QueueSize: 4}, zerolog.Nop())
		d.Start(ctx)

		require.NoError(t, d.Relay(ctx, "abc", p))

		select {
		case <-sent:
		case <-time.After(2 * time.Second):
			t.Fatal("payload was not forwarded")
		}
		require.NoError(t, d.Stop(ctx))
		assert.Empty(t, sent)
		assert.Equal(t, []string{metrics.ForwardSuccess}, rec.Outcomes())
	})

	t.Run("unknown id never reaches the sender", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		sender := mocks.NewSender(t)
		resolver.On("Resolve", ctx, "missing").Return("", webhook.ErrNotFound)

		d := relay.NewDispatcher(resolver, sender, nil, relay.DispatcherConfig{}, zerolog.Nop())
		d.Start(ctx)

		err := d.Relay(ctx, "missing", mustPayload(t, `{}`))

		assert.ErrorIs(t, err, webhook.ErrNotFound)
		require.NoError(t, d.Stop(ctx))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failing destination is still accepted", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", ctx, "abc").Return(destination, nil)
		rec := &forwardRecorder{}
		sender := funcSender(func(context.Context, string, payload.Payload) error {
			return relay.ErrForwardFailed
		})

		d := relay.NewDispatcher(resolver, sender, rec, relay.DispatcherConfig{Workers: 1}, zerolog.Nop())
		d.Start(ctx)

		require.NoError(t, d.Relay(ctx, "abc", mustPayload(t, `{"content":"x"}`)))
		require.NoError(t, d.Stop(ctx))

		assert.Equal(t, []string{metrics.ForwardFailure}, rec.Outcomes())
	})

	t.Run("slow destination does not delay the caller", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", ctx, "abc").Return(destination, nil)
		release := make(chan struct{})
		sender := funcSender(func(context.Context, string, payload.Payload) error {
			<-release
			return nil
		})

		d := relay.NewDispatcher(resolver, sender, nil, relay.DispatcherConfig{Workers: 1}, zerolog.Nop())
		d.Start(ctx)

		start := time.Now()
		require.NoError(t, d.Relay(ctx, "abc", mustPayload(t, `{"content":"x"}`)))
		assert.Less(t, time.Since(start), 500*time.Millisecond)

		close(release)
		require.NoError(t, d.Stop(ctx))
	})

	t.Run("request cancellation does not cancel the forward", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", mock.Anything, "abc").Return(destination, nil)
		result := make(chan error, 1)
		gate := make(chan struct{})
		sender := funcSender(func(ctx context.Context, _ string, _ payload.Payload) error {
			<-gate
			result <- ctx.Err()
			return nil
		})

		d := relay.NewDispatcher(resolver, sender, nil, relay.DispatcherConfig{Workers: 1}, zerolog.Nop())
		d.Start(ctx)

		reqCtx, cancel := context.WithCancel(ctx)
		require.NoError(t, d.Relay(reqCtx, "abc", mustPayload(t, `{"content":"x"}`)))
		cancel()
		close(gate)

		assert.NoError(t, <-result)
		require.NoError(t, d.Stop(ctx))
	})

	t.Run("full queue drops the job but accepts", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", ctx, "abc").Return(destination, nil)
		rec := &forwardRecorder{}

		d := relay.NewDispatcher(resolver, mocks.NewSender(t), rec, relay.DispatcherConfig{Workers: 1, QueueSize: 1}, zerolog.Nop())

		require.NoError(t, d.Relay(ctx, "abc", mustPayload(t, `{"content":"1"}`)))
		require.NoError(t, d.Relay(ctx, "abc", mustPayload(t, `{"content":"2"}`)))

		assert.Equal(t, 1, d.QueueDepth())
		assert.Equal(t, 1, d.QueueCapacity())
		assert.Equal(t, []string{metrics.ForwardDropped}, rec.Outcomes())
	})

	t.Run("rejects after stop", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", ctx, "abc").Return(destination, nil)

		d := relay.NewDispatcher(resolver, mocks.NewSender(t), nil, relay.DispatcherConfig{}, zerolog.Nop())
		d.Start(ctx)
		require.NoError(t, d.Stop(ctx))

		err := d.Relay(ctx, "abc", mustPayload(t, `{}`))

		assert.ErrorIs(t, err, relay.ErrDispatcherClosed)
		assert.NoError(t, d.Stop(ctx), "second stop is a no-op")
	})
}

func TestDispatcher_PanicIsolation(t *testing.T) {
	ctx := context.Background()
	resolver := mocks.NewResolver(t)
	resolver.On("Resolve", ctx, mock.Anything).Return(destination, nil)

	var mu sync.Mutex
	var delivered []string
	sender := funcSender(func(_ context.Context, _ string, p payload.Payload) error {
		if string(p.Content) == `"boom"` {
			panic("destination exploded")
		}
		mu.Lock()
		delivered = append(delivered, string(p.Content))
		mu.Unlock()
		return nil
	})
	rec := &forwardRecorder{}

	d := relay.NewDispatcher(resolver, sender, rec, relay.DispatcherConfig{Workers: 1}, zerolog.Nop())
	d.Start(ctx)

	require.NoError(t, d.Relay(ctx, "a", mustPayload(t, `{"content":"boom"}`)))
	require.NoError(t, d.Relay(ctx, "b", mustPayload(t, `{"content":"ok"}`)))
	require.NoError(t, d.Stop(ctx))

	assert.Equal(t, []string{`"ok"`}, delivered)
	assert.ElementsMatch(t, []string{metrics.ForwardFailure, metrics.ForwardSuccess}, rec.Outcomes())
}

func TestDispatcher_Stop(t *testing.T) {
	ctx := context.Background()

	t.Run("drains queued jobs", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", ctx, "abc").Return(destination, nil)
		var mu sync.Mutex
		count := 0
		sender := funcSender(func(context.Context, string, payload.Payload) error {
			mu.Lock()
			count++
			mu.Unlock()
			return nil
		})

		d := relay.NewDispatcher(resolver, sender, nil, relay.DispatcherConfig{Workers: 2, QueueSize: 10}, zerolog.Nop())
		for i := 0; i < 5; i++ {
			require.NoError(t, d.Relay(ctx, "abc", mustPayload(t, `{}`)))
		}
		d.Start(ctx)
		require.NoError(t, d.Stop(ctx))

		assert.Equal(t, 5, count)
		assert.Equal(t, 0, d.QueueDepth())
	})

	t.Run("deadline cancels in-flight forwards", func(t *testing.T) {
		resolver := mocks.NewResolver(t)
		resolver.On("Resolve", ctx, "abc").Return(destination, nil)
		started := make(chan struct{})
		sender := funcSender(func(ctx context.Context, _ string, _ payload.Payload) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})

		d := relay.NewDispatcher(resolver, sender, nil, relay.DispatcherConfig{Workers: 1}, zerolog.Nop())
		d.Start(ctx)
		require.NoError(t, d.Relay(ctx, "abc", mustPayload(t, `{}`)))
		<-started

		stopCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		err := d.Stop(stopCtx)

		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}
