package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// ErrMiss is returned when a cached value is absent or expired.
var ErrMiss = errors.New("cache miss")

// RedisCache holds the latest leaderboard and short-lived price quotes.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(addr string, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		logger: logger,
	}
}

// NewRedisCacheFromClient wraps an existing client, sharing its connection
// pool with other components.
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection for components that need raw
// Redis access (pubsub, job state).
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// SetRankings replaces the cached leaderboard. No TTL: the entry stays
// valid until the next aggregation run overwrites it.
func (r *RedisCache) SetRankings(ctx context.Context, records []models.RankingRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal rankings: %w", err)
	}
	if err := r.client.Set(ctx, constants.RedisKeyRankings, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache rankings: %w", err)
	}
	return nil
}

// GetRankings returns the cached leaderboard, ErrMiss when empty.
func (r *RedisCache) GetRankings(ctx context.Context) ([]models.RankingRecord, error) {
	data, err := r.client.Get(ctx, constants.RedisKeyRankings).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached rankings: %w", err)
	}

	var records []models.RankingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached rankings: %w", err)
	}
	return records, nil
}

// SetFlowPrice caches the FLOW/USD spot for a short TTL so bursts of
// requests don't hammer the price feed.
func (r *RedisCache) SetFlowPrice(ctx context.Context, price float64) error {
	return r.client.Set(ctx, constants.RedisKeyFlowPrice, price, constants.FlowPriceCacheTTL).Err()
}

// GetFlowPrice returns the cached FLOW/USD spot, ErrMiss when expired.
func (r *RedisCache) GetFlowPrice(ctx context.Context) (float64, error) {
	price, err := r.client.Get(ctx, constants.RedisKeyFlowPrice).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cached price: %w", err)
	}
	return price, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
