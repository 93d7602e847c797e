package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jobboard/backend/go-services/pkg/metrics"
)

func limitedRouter(l Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(l))
	r.GET("/q", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func hit(r http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/q", nil))
	return w
}

func TestMemoryLimiter_AllowsUnderLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	r := limitedRouter(NewMemoryLimiter(10, 2))

	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestMemoryLimiter_BlocksWhenExceeded(t *testing.T) {
	r := limitedRouter(NewMemoryLimiter(2, 1))

	require.Equal(t, http.StatusOK, hit(r).Code)
	w := hit(r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))

	time.Sleep(600 * time.Millisecond)
	require.Equal(t, http.StatusOK, hit(r).Code)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	r := limitedRouter(NewRedisLimiter(client, 0, 1, time.Minute))
	require.Equal(t, http.StatusOK, hit(r).Code)
	w := hit(r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))

	// the window key expires and the counter starts over
	m.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusOK, hit(r).Code)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	defer client.Close()
	m.Close()

	r := limitedRouter(NewRedisLimiter(client, 1, 0, time.Second))
	require.Equal(t, http.StatusInternalServerError, hit(r).Code)
}
