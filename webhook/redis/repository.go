package redis

import (
	"context"
	"fmt"

	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.Repository
 * All mappings live in one hash: field = relay id, value = destination URL.
 * HSETNX gives insert-if-absent, HLEN gives the count in O(1).
 */

const hashKey = "webhooks"

type Repository struct {
	client *redis.Client
}

// NewRepositoryWithClient wraps a client opened by internal/storage, which may share it with the rate limiter
func NewRepositoryWithClient(client *redis.Client) *Repository {
	return &Repository{client: client}
}

func (r *Repository) Select(ctx context.Context, id string) (webhook.Webhook, error) {
	url, err := r.client.HGet(ctx, hashKey, id).Result()
	if err == redis.Nil {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	return webhook.Webhook{ID: id, URL: url}, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.client.HLen(ctx, hashKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting webhooks: %w", err)
	}
	return n, nil
}

func (r *Repository) Insert(ctx context.Context, wh webhook.Webhook) error {
	set, err := r.client.HSetNX(ctx, hashKey, wh.ID, wh.URL).Result()
	if err != nil {
		return fmt.Errorf("storing webhook: %w", err)
	}
	if !set {
		return webhook.ErrDuplicateID
	}
	return nil
}

// Close closes the shared Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}
