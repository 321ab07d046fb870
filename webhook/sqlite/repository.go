package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite" // pure Go SQLite driver
	"github.com/marcelsud/webhook-relay/webhook"
)

/* SQLite implementation of webhook.Repository
 * A single table maps relay ids to destination URLs.
 * Mappings are never updated or removed once written.
 */

type Repository struct {
	DB *sql.DB
}

// NewRepository opens (or creates) the database file at path and ensures the schema exists
func NewRepository(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	repo := &Repository{DB: db}
	if err := repo.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) CreateTable(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS webhooks (
  id TEXT PRIMARY KEY,
  url TEXT NOT NULL
);`
	if _, err := r.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	return nil
}

func (r *Repository) Select(ctx context.Context, id string) (webhook.Webhook, error) {
	var wh webhook.Webhook
	err := r.DB.QueryRowContext(ctx, "SELECT id, url FROM webhooks WHERE id = ?", id).Scan(&wh.ID, &wh.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("selecting webhook: %w", err)
	}
	return wh, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM webhooks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting webhooks: %w", err)
	}
	return n, nil
}

func (r *Repository) Insert(ctx context.Context, wh webhook.Webhook) error {
	result, err := r.DB.ExecContext(ctx,
		"INSERT INTO webhooks (id, url) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
		wh.ID, wh.URL,
	)
	if err != nil {
		return fmt.Errorf("inserting webhook: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return webhook.ErrDuplicateID
	}
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	if r.DB == nil {
		return nil
	}
	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("closing repository: %w", err)
	}
	return nil
}
