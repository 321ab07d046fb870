package metrics

import (
	"context"
	"fmt"
	"time"
)

// Counter is satisfied by the registry use case
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Queue is satisfied by the relay dispatcher
type Queue interface {
	QueueDepth() int
	QueueCapacity() int
}

// ServiceCollector samples gauges from the registry and the dispatcher queue
type ServiceCollector struct {
	registry Counter
	queue    Queue
}

func NewServiceCollector(registry Counter, queue Queue) *ServiceCollector {
	return &ServiceCollector{registry: registry, queue: queue}
}

func (c *ServiceCollector) Collect(ctx context.Context) (Snapshot, error) {
	count, err := c.GetRegisteredCount(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	depth, capacity, err := c.GetQueueStats(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		RegisteredWebhooks: count,
		QueueDepth:         depth,
		QueueCapacity:      capacity,
		Timestamp:          time.Now(),
	}, nil
}

func (c *ServiceCollector) GetRegisteredCount(ctx context.Context) (int64, error) {
	n, err := c.registry.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting registered count: %w", err)
	}
	return n, nil
}

func (c *ServiceCollector) GetQueueStats(ctx context.Context) (int64, int64, error) {
	if c.queue == nil {
		return 0, 0, nil
	}
	return int64(c.queue.QueueDepth()), int64(c.queue.QueueCapacity()), nil
}

// SetQueue attaches the dispatcher once it exists. Call before serving /metrics.
func (c *ServiceCollector) SetQueue(queue Queue) {
	c.queue = queue
}
