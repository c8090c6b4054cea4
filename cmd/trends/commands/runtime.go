package commands

import (
	"context"
	"fmt"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/internal/external/gtrends"
	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
	"github.com/Denis-Evseev/google-daily-trends/internal/storage"
	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
	"github.com/Denis-Evseev/google-daily-trends/pkg/httputil"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
	"github.com/Denis-Evseev/google-daily-trends/pkg/metrics"
	"github.com/Denis-Evseev/google-daily-trends/pkg/redis"
)

// runtime holds the wired dependencies shared by every command
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Recorder
	redis    *redis.Client
	stitcher *stitch.Stitcher
	repo     contracts.SeriesRepository
}

// runtimeOptions selects the optional parts of the runtime
type runtimeOptions struct {
	storage bool
}

// newRuntime builds the dependency graph in a fixed order
func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	rt := &runtime{cfg: cfg, log: log}

	// 3. Metrics
	var observers []stitch.Observer
	observers = append(observers, stitch.LogObserver(log))
	if cfg.MetricsEnabled {
		rt.metrics = metrics.New()
		observers = append(observers, stitch.MetricsObserver(rt.metrics))
	}

	// 4. Connect to Redis (disabled client when REDIS_ENABLED=false)
	rt.redis, err = redis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if rt.redis.Enabled() {
		log.Info("Connected to Redis")
	}

	// 5. Create HTTP client
	httpClient := httputil.New(cfg, log)
	if rt.redis.Enabled() && cfg.Trends.RatePerMin > 0 {
		httpClient.WithRateLimiter(redis.NewRateLimiter(rt.redis, "trends"), redis.TrendsRateLimit(cfg.Trends.RatePerMin))
	}

	// 6. Create Google Trends client behind the window cache
	client := gtrends.NewClient(httpClient, gtrends.Options{
		BaseURL: cfg.Trends.BaseURL,
		HL:      cfg.Trends.HL,
		TZ:      cfg.Trends.TZ,
	}, log)
	fetcher := gtrends.NewCachedClient(client, redis.NewCache(rt.redis, "trends"), cfg.Redis.CacheTTL, log)

	// 7. Create stitcher
	rt.stitcher = stitch.New(fetcher, stitch.WithObserver(stitch.Observers(observers...)))

	// 8. Open storage
	if opts.storage {
		rt.repo, err = storage.Open(ctx, cfg, log)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	return rt, nil
}

// Close releases storage and Redis connections
func (rt *runtime) Close() {
	if rt.repo != nil {
		if err := rt.repo.Close(); err != nil {
			rt.log.WithError(err).Warn("Failed to close storage")
		}
	}
	if rt.redis != nil {
		rt.redis.Close()
	}
}
