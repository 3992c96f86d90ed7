package http

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/support-desk/internal/config"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// RateLimiter throttles requests per client IP. It counts against a Redis
// fixed window so limits hold across replicas, and falls back to an in-memory
// token bucket per IP when Redis is unreachable.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	client *redis.Client
	logger *zap.Logger

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRateLimiter builds the limiter. A nil client disables the Redis window.
func NewRateLimiter(cfg config.RateLimitConfig, client *redis.Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Handle is the fiber middleware entry point.
func (rl *RateLimiter) Handle(c *fiber.Ctx) error {
	if rl.cfg.RequestsPerMinute <= 0 {
		return c.Next()
	}

	ip := c.IP()
	allowed, err := rl.allowRedis(c, ip)
	if err != nil {
		// redis outage degrades to per-process limiting
		allowed = rl.allowLocal(ip)
	}
	if !allowed {
		c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", rl.windowSeconds()))
		return apperrors.NewRateLimited(rl.windowSeconds())
	}
	return c.Next()
}

func (rl *RateLimiter) allowRedis(c *fiber.Ctx, ip string) (bool, error) {
	if rl.client == nil {
		return false, redis.ErrClosed
	}

	window := time.Now().Unix() / int64(rl.windowSeconds())
	key := fmt.Sprintf("ratelimit:%s:%d", ip, window)

	ctx := c.UserContext()
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		if rl.logger != nil {
			rl.logger.Warn("rate limit redis unavailable", zap.Error(err))
		}
		return false, err
	}
	if count == 1 {
		rl.client.Expire(ctx, key, time.Duration(rl.windowSeconds())*time.Second)
	}
	return count <= int64(rl.cfg.RequestsPerMinute), nil
}

func (rl *RateLimiter) allowLocal(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.buckets[ip]
	if !ok {
		perSecond := rate.Limit(float64(rl.cfg.RequestsPerMinute) / 60.0)
		limiter = rate.NewLimiter(perSecond, rl.cfg.Burst)
		rl.buckets[ip] = limiter
	}
	return limiter.Allow()
}

func (rl *RateLimiter) windowSeconds() int {
	if rl.cfg.WindowSeconds <= 0 {
		return 60
	}
	return rl.cfg.WindowSeconds
}
