package pricefeed

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/cache"
	"github.com/BoiseITGuru/project-toucans-v2/internal/storage"
)

// CachedSource wraps a price source with the short-lived Redis cache. A
// cache failure degrades to a direct feed call, never to a stale price.
type CachedSource struct {
	source storage.PriceSource
	cache  *cache.RedisCache
	logger *logrus.Logger
}

func NewCachedSource(source storage.PriceSource, c *cache.RedisCache, logger *logrus.Logger) *CachedSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedSource{source: source, cache: c, logger: logger}
}

func (s *CachedSource) FlowPrice(ctx context.Context) (float64, error) {
	price, err := s.cache.GetFlowPrice(ctx)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.WithError(err).Warn("price cache read failed")
	}

	price, err = s.source.FlowPrice(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.cache.SetFlowPrice(ctx, price); err != nil {
		s.logger.WithError(err).Warn("price cache write failed")
	}
	return price, nil
}
