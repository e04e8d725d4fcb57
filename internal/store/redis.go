package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const redisKeyPrefix = "idem:"

// RedisStore implements Store with SET NX EX.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedis parses a redis:// URL and returns an unconnected store.
func NewRedis(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+key, now, ttl).Result()
	if err != nil {
		return false, eris.Wrapf(err, "redis: setnx %s", key)
	}
	return ok, nil
}

func (s *RedisStore) AdmittedAt(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "redis: get %s", key)
	}
	ns, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "redis: parse admitted_at for %s", key)
	}
	return time.Unix(0, ns).UTC(), true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return eris.Wrapf(s.client.Del(ctx, redisKeyPrefix+key).Err(), "redis: del %s", key)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx).Err(), "redis: ping")
}

// Migrate is a no-op; redis needs no schema.
func (s *RedisStore) Migrate(context.Context) error { return nil }

func (s *RedisStore) Close() error {
	return s.client.Close()
}
