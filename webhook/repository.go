package webhook

import "context"

// Reader looks up relay mappings
type Reader interface {
	// Select returns ErrNotFound when the id has no mapping
	Select(ctx context.Context, id string) (Webhook, error)
	Count(ctx context.Context) (int64, error)
}

// Writer stores relay mappings
type Writer interface {
	/* Insert persists a new mapping
	 * Returns ErrDuplicateID when the id is already present; the existing row is never touched
	 */
	Insert(ctx context.Context, webhook Webhook) error
}

// Repository is what every registry backend implements: sqlite, postgres and redis
type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}
