package credentials

import (
	"context"
	"time"

	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 2 * time.Second

// RedisBackend stores the snapshot under <prefix>auth-storage
type RedisBackend struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{
		client:  client,
		key:     prefix + StorageKey,
		timeout: defaultRedisTimeout,
	}
}

// WithTimeout bounds every Redis call so persistence stays a near-constant cost
func (r *RedisBackend) WithTimeout(timeout time.Duration) *RedisBackend {
	if timeout > 0 {
		r.timeout = timeout
	}
	return r
}

func (r *RedisBackend) Key() string {
	return r.key
}

func (r *RedisBackend) Read() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "redis get")
	}
	return data, nil
}

func (r *RedisBackend) Write(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *RedisBackend) Delete() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Del(ctx, r.key).Err()
}
