package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimit rejects clients that exceed the store's allowance with 429.
func RateLimit(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	config := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"status": "unidentified client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"status": "rate limit exceeded"})
		},
	}
	return middleware.RateLimiterWithConfig(config)
}

// NewMemoryRateLimiterStore keeps a token bucket per client in process.
func NewMemoryRateLimiterStore(limit float64, burst int) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		})
}

// RedisRateLimiterStore counts requests per client in fixed windows shared
// by every instance behind the same redis. When redis is unreachable
// requests are allowed.
type RedisRateLimiterStore struct {
	rdb     *redis.Client
	limit   int64
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewRedisRateLimiterStore admits limit requests per client per window.
func NewRedisRateLimiterStore(rdb *redis.Client, limit int, window time.Duration) *RedisRateLimiterStore {
	if window <= 0 {
		window = time.Second
	}
	return &RedisRateLimiterStore{
		rdb:     rdb,
		limit:   int64(limit),
		window:  window,
		timeout: 100 * time.Millisecond,
		now:     time.Now,
	}
}

func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	slot := s.now().UnixNano() / int64(s.window)
	key := fmt.Sprintf("ratelimit:%s:%d", identifier, slot)

	pipe := s.rdb.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error().Err(err).Msgf("Error counting requests for %s", identifier)
		return true, nil
	}

	return count.Val() <= s.limit, nil
}
