package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vango-go/agriguard-live/pkg/core/live"
)

const (
	defaultRedisTTL    = 30 * 24 * time.Hour
	defaultRedisPrefix = "agriguard:journal:"
)

// RedisStore keeps summaries as JSON values with sorted-set indexes by start
// time, one global and one per user.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed store. Zero ttl or empty prefix use
// the defaults.
func NewRedisStore(client *redis.Client, ttl time.Duration, prefix string) *RedisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, ttl: ttl, prefix: prefix}
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %v", ErrInvalidConfig, err)
	}
	return redis.NewClient(opts), nil
}

// Record implements Store.
func (s *RedisStore) Record(ctx context.Context, summary live.Summary) error {
	if err := validate(summary); err != nil {
		return err
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	member := redis.Z{Score: float64(summary.StartedAt.UnixMilli()), Member: summary.ID}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(summary.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), member)
	if summary.UserName != "" {
		userKey := s.userIndexKey(summary.UserName)
		pipe.ZAdd(ctx, userKey, member)
		pipe.Expire(ctx, userKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// List implements Store. Index entries whose record expired are pruned and
// the page is refilled from older entries.
func (s *RedisStore) List(ctx context.Context, opts ListOptions) ([]live.Summary, error) {
	index := s.indexKey()
	if opts.UserName != "" {
		index = s.userIndexKey(opts.UserName)
	}
	limit := opts.limit()

	var out []live.Summary
	for len(out) < limit {
		want := limit - len(out)
		// Live entries already read sit at the head of the index once stale
		// ones are removed.
		start := int64(len(out))
		ids, err := s.client.ZRevRange(ctx, index, start, start+int64(want)-1).Result()
		if err != nil {
			return nil, fmt.Errorf("redis index read failed: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		page, stale, err := s.load(ctx, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(stale) > 0 {
			if err := s.client.ZRem(ctx, index, stale...).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return nil, fmt.Errorf("redis index prune failed: %w", err)
			}
		}
		if len(stale) == 0 || len(ids) < want {
			break
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// load fetches the records for ids and reports the ids with no record.
func (s *RedisStore) load(ctx context.Context, ids []string) ([]live.Summary, []any, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis mget failed: %w", err)
	}

	out := make([]live.Summary, 0, len(vals))
	var stale []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var summary live.Summary
		if err := json.Unmarshal([]byte(str), &summary); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal summary %s: %w", ids[i], err)
		}
		out = append(out, summary)
	}
	return out, stale, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + "session:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "sessions"
}

func (s *RedisStore) userIndexKey(user string) string {
	return s.prefix + "user:" + user
}
