//go:build !integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
Unit tests for the PostgreSQL repository using sqlmock.
Run with: go test ./webhook/postgres/...
*/

const insertQuery = `
		INSERT INTO webhooks (id, url)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`

func TestRepository_Insert_Unit(t *testing.T) {
	ctx := context.Background()

	t.Run("insert new mapping", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := &Repository{DB: db}

		mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
			WithArgs("abc", "https://discord.com/api/webhooks/1/x").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Insert(ctx, webhook.Webhook{ID: "abc", URL: "https://discord.com/api/webhooks/1/x"})

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := &Repository{DB: db}

		mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
			WithArgs("abc", "u").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Insert(ctx, webhook.Webhook{ID: "abc", URL: "u"})

		assert.ErrorIs(t, err, webhook.ErrDuplicateID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := &Repository{DB: db}

		mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
			WithArgs("abc", "u").
			WillReturnError(errors.New("connection reset"))

		err = repo.Insert(ctx, webhook.Webhook{ID: "abc", URL: "u"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "inserting webhook")
	})
}

func TestRepository_Select_Unit(t *testing.T) {
	ctx := context.Background()

	t.Run("select existing mapping", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := &Repository{DB: db}

		rows := sqlmock.NewRows([]string{"id", "url"}).AddRow("abc", "https://discord.com/api/webhooks/1/x")
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url FROM webhooks WHERE id = $1")).
			WithArgs("abc").WillReturnRows(rows)

		wh, err := repo.Select(ctx, "abc")

		require.NoError(t, err)
		assert.Equal(t, "https://discord.com/api/webhooks/1/x", wh.URL)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("select missing mapping", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := &Repository{DB: db}

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url FROM webhooks WHERE id = $1")).
			WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err = repo.Select(ctx, "missing")

		assert.ErrorIs(t, err, webhook.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Count_Unit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := &Repository{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM webhooks")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
