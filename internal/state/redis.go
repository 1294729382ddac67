package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the shared cursor store.
type RedisOptions struct {
	URL            string
	ConnectTimeout time.Duration
}

// RedisStore keeps the cursor in Redis, for deployments where several hosts
// may run the synchronization.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions, instanceID string) (*RedisStore, error) {
	if instanceID == "" {
		return nil, ErrMissingInstance
	}
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, key: cursorKey(instanceID)}, nil
}

func (s *RedisStore) LastSync(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read cursor: %w", err)
	}
	last, err := decodeMillis(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode cursor: %w", err)
	}
	return last, true, nil
}

func (s *RedisStore) RecordSync(ctx context.Context, at time.Time) error {
	if err := s.client.Set(ctx, s.key, encodeMillis(at), 0).Err(); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
