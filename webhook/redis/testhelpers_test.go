//go:build integration

package redis_test

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

/* Helpers for the Redis integration tests
 * One container per test function; the returned client is flushed before use
 */

type RedisContainer struct {
	Container *testcontainersredis.RedisContainer
	Client    *goredis.Client
}

func SetupRedisContainer(t *testing.T, ctx context.Context) (*RedisContainer, func()) {
	t.Helper()

	container, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "starting redis container")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "reading redis connection string")

	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err, "parsing redis connection string")
	client := goredis.NewClient(opts)
	require.NoError(t, client.FlushDB(ctx).Err())

	cleanup := func() {
		_ = client.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminating redis container: %v", err)
		}
	}

	return &RedisContainer{Container: container, Client: client}, cleanup
}
