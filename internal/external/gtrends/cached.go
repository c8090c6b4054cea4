package gtrends

import (
	"context"
	"strings"
	"time"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
	"github.com/Denis-Evseev/google-daily-trends/pkg/redis"
)

// CachedClient serves repeated window requests from Redis so re-runs over
// the same range do not spend the source's rate budget.
type CachedClient struct {
	next   contracts.TrendsFetcher
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

var _ contracts.TrendsFetcher = (*CachedClient)(nil)

// NewCachedClient wraps next. A disabled Redis client makes this a pass-through.
func NewCachedClient(next contracts.TrendsFetcher, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, logger: log.WithComponent("gtrends-cache")}
}

// InterestOverTime returns a cached frame or fetches and stores it
func (c *CachedClient) InterestOverTime(ctx context.Context, q contracts.Query) (*contracts.Frame, error) {
	key := redis.WindowKey(strings.Join(q.Keywords, "+"), q.Geo, q.Category, q.Property, q.Timeframe)

	var cached contracts.Frame
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		// A broken cache must not block fetching
		c.logger.WithError(err).Warn("window cache read failed")
	}
	if found {
		c.logger.WithField("timeframe", q.Timeframe).Debug("window cache hit")
		return &cached, nil
	}

	frame, err := c.next.InterestOverTime(ctx, q)
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return frame, nil
	}

	if err := c.cache.Set(ctx, key, frame, c.ttlFor(q.Timeframe)); err != nil {
		c.logger.WithError(err).Warn("window cache write failed")
	}
	return frame, nil
}

// ttlFor keeps rolling windows only briefly
func (c *CachedClient) ttlFor(timeframe string) time.Duration {
	if strings.HasPrefix(timeframe, "now ") || strings.HasPrefix(timeframe, "today ") {
		return redis.TTLHourly
	}
	return c.ttl
}
