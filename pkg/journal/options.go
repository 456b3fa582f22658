package journal

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Option configures a journal store.
type Option func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	redisURL    string
	redisTTL    time.Duration
	redisPrefix string
	pool        *pgxpool.Pool
	databaseURL string
	migrate     bool
	capacity    int
}

// WithRedisClient uses an existing Redis client.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisURL connects to Redis using a redis:// URL.
func WithRedisURL(url string) Option {
	return func(c *storeConfig) {
		c.redisURL = url
	}
}

// WithRedisTTL sets how long records are kept in Redis. Default: 30 days.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithRedisPrefix sets the key prefix. Default: "agriguard:journal:".
func WithRedisPrefix(prefix string) Option {
	return func(c *storeConfig) {
		c.redisPrefix = prefix
	}
}

// WithPool uses an existing Postgres pool.
func WithPool(pool *pgxpool.Pool) Option {
	return func(c *storeConfig) {
		c.pool = pool
	}
}

// WithDatabaseURL connects to Postgres.
func WithDatabaseURL(url string) Option {
	return func(c *storeConfig) {
		c.databaseURL = url
	}
}

// WithMigrations applies pending migrations when the Postgres store opens.
func WithMigrations() Option {
	return func(c *storeConfig) {
		c.migrate = true
	}
}

// WithCapacity bounds the memory store. Default: 500 records.
func WithCapacity(n int) Option {
	return func(c *storeConfig) {
		c.capacity = n
	}
}
