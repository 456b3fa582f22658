package journal

import (
	"context"
	"fmt"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

// Driver names a journal backend.
type Driver string

const (
	DriverNone     Driver = "none"
	DriverMemory   Driver = "memory"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
)

// Open creates the store for driver. The none driver returns a store that
// discards records.
func Open(ctx context.Context, driver Driver, opts ...Option) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driver {
	case DriverNone, "":
		return discard{}, nil

	case DriverMemory:
		return NewMemoryStore(cfg.capacity), nil

	case DriverRedis:
		client := cfg.redisClient
		if client == nil {
			if cfg.redisURL == "" {
				return nil, fmt.Errorf("%w: redis driver needs a client or URL", ErrInvalidConfig)
			}
			var err error
			if client, err = newRedisClient(cfg.redisURL); err != nil {
				return nil, err
			}
		}
		store := NewRedisStore(client, cfg.redisTTL, cfg.redisPrefix)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return store, nil

	case DriverPostgres:
		pool := cfg.pool
		if pool == nil {
			if cfg.databaseURL == "" {
				return nil, fmt.Errorf("%w: postgres driver needs a pool or DATABASE_URL", ErrInvalidConfig)
			}
			var err error
			if pool, err = newPool(ctx, cfg.databaseURL); err != nil {
				return nil, err
			}
		}
		if cfg.migrate {
			if err := MigratePool(ctx, pool, "up"); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return NewPostgresStore(pool), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, driver)
	}
}

type discard struct{}

func (discard) Record(context.Context, live.Summary) error { return nil }
func (discard) List(context.Context, ListOptions) ([]live.Summary, error) {
	return nil, nil
}
func (discard) Close() error { return nil }
