package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

// StoreInfo describes the store serving requests, as reported by /health.
type StoreInfo struct {
	Store    docstore.Store
	Backend  string
	Fallback bool
}

var startTime = time.Now()

// RegisterOpsRoutes registers liveness, readiness and metrics endpoints.
func RegisterOpsRoutes(r *gin.Engine, info StoreInfo, gatherer prometheus.Gatherer) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"backend":  info.Backend,
			"fallback": info.Fallback,
			"uptime":   time.Since(startTime).Round(time.Second).String(),
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := info.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "backend": info.Backend})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
