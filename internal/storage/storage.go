package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/ratelimit"
	"github.com/marcelsud/webhook-relay/ratelimit/memory"
	ratelimitredis "github.com/marcelsud/webhook-relay/ratelimit/redis"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/marcelsud/webhook-relay/webhook/postgres"
	webhookredis "github.com/marcelsud/webhook-relay/webhook/redis"
	"github.com/marcelsud/webhook-relay/webhook/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const sweepInterval = time.Minute

// Backends holds the registry and rate-limit store selected by configuration.
// When both use Redis they share one client.
type Backends struct {
	Repository webhook.Repository
	Limiter    ratelimit.Store

	redisClient    *redis.Client
	repoOwnsClient bool
}

// Open connects the configured backends. The memory limiter is swept until ctx is done.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.UsesRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		b.redisClient = client
	}

	repo, err := openRepository(ctx, cfg, b.redisClient)
	if err != nil {
		b.closeClient()
		return nil, err
	}
	b.Repository = repo
	b.repoOwnsClient = cfg.StoreDriver == config.StoreRedis

	switch cfg.RateLimitStore {
	case config.LimiterRedis:
		b.Limiter = ratelimitredis.NewStore(b.redisClient)
	case config.LimiterNone:
		logger.Warn().Msg("rate limiting disabled")
		b.Limiter = ratelimit.NoOpStore{}
	default:
		mem := memory.NewStore()
		go mem.Run(ctx, sweepInterval)
		b.Limiter = mem
	}

	logger.Info().
		Str("store_driver", cfg.StoreDriver).
		Str("rate_limit_store", cfg.RateLimitStore).
		Msg("storage ready")
	return b, nil
}

func openRepository(ctx context.Context, cfg *config.Config, client *redis.Client) (webhook.Repository, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		repo, err := sqlite.NewRepository(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite registry: %w", err)
		}
		return repo, nil
	case config.StorePostgres:
		connStr := cfg.PostgresConnectionString()
		if err := postgres.Migrate(connStr); err != nil {
			return nil, fmt.Errorf("migrating postgres registry: %w", err)
		}
		repo, err := postgres.NewRepositoryWithPoolConfig(connStr,
			cfg.GetPostgresMaxOpenConns(),
			cfg.GetPostgresMaxIdleConns(),
			cfg.GetPostgresConnMaxLifeMinutes(),
		)
		if err != nil {
			return nil, fmt.Errorf("opening postgres registry: %w", err)
		}
		return repo, nil
	case config.StoreRedis:
		return webhookredis.NewRepositoryWithClient(client), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (b *Backends) Close(ctx context.Context) error {
	var err error
	if b.Repository != nil {
		if cerr := b.Repository.Close(ctx); cerr != nil {
			err = fmt.Errorf("closing registry: %w", cerr)
		}
	}
	if !b.repoOwnsClient {
		b.closeClient()
	}
	return err
}

func (b *Backends) closeClient() {
	if b.redisClient != nil {
		_ = b.redisClient.Close()
	}
}
