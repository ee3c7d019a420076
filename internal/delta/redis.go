package delta

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore backs the detector with a shared Redis instance so multiple
// collector processes observe the same last-seen state.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL dials the REDIS_URL form (redis://[:pass@]host:port/db).
func NewRedisStoreFromURL(rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, crerr.Wrap(err, "parse redis url")
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if crerr.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, crerr.Wrap(err, "redis get")
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return crerr.Wrap(err, "redis set")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return crerr.Wrap(err, "redis del")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
