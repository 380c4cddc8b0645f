package cache

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for the Redis backend
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisConfig returns the connection settings for environment. The password is only used in prod, local Redis
// instances run without one.
func NewRedisConfig(environment, address, password string, db int) RedisConfig {
	cfg := RedisConfig{Address: address, DB: db}
	if environment == "prod" {
		cfg.Password = password
	}
	return cfg
}

// NewRedisClient creates a new Redis client and verifies the connection. The caller owns the client and has to close
// it on shutdown.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type redisRepository struct {
	l      log.Logger
	client redis.UniversalClient
}

// NewRedisRepository initializes a new cache repository backed by Redis
func NewRedisRepository(l log.Logger, client redis.UniversalClient) *redisRepository {
	return &redisRepository{
		l:      l,
		client: client,
	}
}

// Get returns the value for a given key, redis.Nil is reported as a miss
func (s *redisRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "getting key from redis")
	}
	return b, true, nil
}

// Set sets a key with an optional expiration, Redis treats a zero ttl as no expiration
func (s *redisRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return errors.Wrap(s.client.Set(ctx, key, value, ttl).Err(), "setting key in redis")
}

// Delete removes a key
func (s *redisRepository) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, key).Err(), "deleting key from redis")
}
