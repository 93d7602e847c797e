package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jobboard/backend/go-services/pkg/logger"
	"github.com/jobboard/backend/go-services/pkg/metrics"
)

var log = logger.Named("middleware")

// Limiter decides whether one more request for key is allowed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	// Kind labels the limiter in metrics ("memory", "redis").
	Kind() string
	// RetryAfter is the hint sent with a rejection.
	RetryAfter() time.Duration
}

// MemoryLimiter is a per-key token bucket kept in process memory.
type MemoryLimiter struct {
	rps     float64
	burst   int
	buckets sync.Map // map[string]*rate.Limiter
}

// NewMemoryLimiter allows rps events per second with bursts of burst.
func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{rps: rps, burst: burst}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	v, _ := l.buckets.LoadOrStore(key, rate.NewLimiter(rate.Limit(l.rps), l.burst))
	return v.(*rate.Limiter).Allow(), nil
}

func (l *MemoryLimiter) Kind() string { return "memory" }

func (l *MemoryLimiter) RetryAfter() time.Duration { return time.Second }

// RedisLimiter is a fixed-window counter shared by every replica: INCR a
// per-window key and compare against floor(rps*window)+burst.
type RedisLimiter struct {
	client  *redis.Client
	window  time.Duration
	allowed int64
}

func NewRedisLimiter(client *redis.Client, rps float64, burst int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client:  client,
		window:  window,
		allowed: int64(rps*window.Seconds()) + int64(burst),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	secs := int64(l.window.Seconds())
	bucket := time.Now().Unix() / secs
	redisKey := fmt.Sprintf("rl:%s:%d", key, bucket)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		_ = l.client.Expire(ctx, redisKey, l.window+time.Second).Err()
	}
	return cnt <= l.allowed, nil
}

func (l *RedisLimiter) Kind() string { return "redis" }

func (l *RedisLimiter) RetryAfter() time.Duration { return l.window }

// RateLimit rejects requests over the limit with 429, keyed by client IP.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		ok, err := l.Allow(c.Request.Context(), "ip:"+ip)
		if err != nil {
			log.Errorf("rate limit check (%s): %v", l.Kind(), err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(l.RetryAfter().Seconds())))
			metrics.RateLimitRejected.WithLabelValues(l.Kind()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(l.Kind()).Inc()
		c.Next()
	}
}
