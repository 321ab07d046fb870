package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/marcelsud/webhook-relay/metrics"
	"github.com/marcelsud/webhook-relay/webhook/payload"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1024
)

/* Dispatcher accepts relays and forwards them in the background.
 * Relay resolves the id, enqueues one Job and returns; the caller never waits
 * on the destination. A fixed pool of workers drains the queue using the
 * dispatcher's own context, so a finished HTTP request cannot cancel its forward.
 */
type Dispatcher struct {
	resolver Resolver
	sender   Sender
	recorder metrics.Recorder
	logger   zerolog.Logger
	workers  int
	queue    chan Job

	mu      sync.RWMutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      conc.WaitGroup
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

func NewDispatcher(resolver Resolver, sender Sender, recorder metrics.Recorder, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Dispatcher{
		resolver: resolver,
		sender:   sender,
		recorder: recorder,
		logger:   logger,
		workers:  cfg.Workers,
		queue:    make(chan Job, cfg.QueueSize),
	}
}

// Relay resolves id and schedules exactly one forward of p.
// Returns a wrapped webhook.ErrNotFound for unknown ids and ErrDispatcherClosed after Stop.
func (d *Dispatcher) Relay(ctx context.Context, id string, p payload.Payload) error {
	destination, err := d.resolver.Resolve(ctx, id)
	if err != nil {
		return fmt.Errorf("resolving webhook: %w", err)
	}

	job := Job{
		HookID:         id,
		DestinationURL: destination,
		Payload:        p,
		RequestID:      middleware.GetReqID(ctx),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- job:
	default:
		d.logger.Error().
			Str("hook_id", job.HookID).
			Str("request_id", job.RequestID).
			Int("queue_capacity", cap(d.queue)).
			Msg("forward queue full, dropping relay")
		d.recorder.RecordForward(ctx, metrics.ForwardDropped, 0)
	}
	return nil
}

// Start launches the workers. Calling it twice has no effect.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	for i := 0; i < d.workers; i++ {
		d.wg.Go(func() {
			for job := range d.queue {
				d.process(workerCtx, job)
			}
		})
	}
	d.logger.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("dispatcher started")
}

// Stop refuses new relays and waits for queued jobs to be forwarded.
// If ctx expires first, in-flight forwards are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		if n := len(d.queue); n > 0 {
			d.logger.Warn().Int("dropped", n).Msg("dispatcher stopped before start")
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info().Msg("dispatcher drained")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		d.logger.Warn().Err(ctx.Err()).Msg("dispatcher drain interrupted")
		return ctx.Err()
	}
}

func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

func (d *Dispatcher) QueueCapacity() int {
	return cap(d.queue)
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	var catcher panics.Catcher
	start := time.Now()
	var err error

	catcher.Try(func() {
		err = d.sender.Send(ctx, job.DestinationURL, job.Payload)
	})

	if r := catcher.Recovered(); r != nil {
		d.logger.Error().
			Str("hook_id", job.HookID).
			Str("request_id", job.RequestID).
			Err(r.AsError()).
			Msg("forward panicked")
		d.recorder.RecordForward(ctx, metrics.ForwardFailure, time.Since(start))
		return
	}

	if err != nil {
		d.logger.Debug().
			Str("hook_id", job.HookID).
			Str("request_id", job.RequestID).
			Err(err).
			Msg("forward discarded")
		d.recorder.RecordForward(ctx, metrics.ForwardFailure, time.Since(start))
		return
	}
	d.recorder.RecordForward(ctx, metrics.ForwardSuccess, time.Since(start))
}
