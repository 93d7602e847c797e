package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jobboard/backend/go-services/handlers"
	"github.com/jobboard/backend/go-services/internal/config"
	"github.com/jobboard/backend/go-services/internal/docstore/service"
	"github.com/jobboard/backend/go-services/pkg/logger"
	"github.com/jobboard/backend/go-services/pkg/metrics"
	"github.com/jobboard/backend/go-services/pkg/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Init(cfg.LogLevel)
		logger.Infof("config loaded: backend=%s mongo=%v redis=%v", cfg.Store.Backend, cfg.MongoDB.URI != "", cfg.Redis.Host != "")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	opened, err := service.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := opened.Store.Close(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
	}()

	var rdb *redis.Client
	if cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis && cfg.Redis.Addr() != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v; using in-process rate limiter", cfg.Redis.Addr(), err)
			rdb = nil
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	r := newRouter(cfg, opened, rdb, reg)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("starting docstore service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires ops routes, swagger and the rate-limited collection API.
// rdb may be nil, in which case the limiter is kept in process memory.
func newRouter(cfg *config.Config, opened *service.Opened, rdb *redis.Client, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	handlers.RegisterOpsRoutes(r, handlers.StoreInfo{Store: opened.Store, Backend: opened.Backend, Fallback: opened.Fallback}, reg)
	handlers.RegisterSwagger(r)

	var api gin.IRouter = r
	if cfg.RateLimit.Enabled {
		var limiter middleware.Limiter
		if rdb != nil {
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
		} else {
			limiter = middleware.NewMemoryLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
		logger.Infof("rate limiter enabled (%s)", limiter.Kind())
		api = r.Group("/", middleware.RateLimit(limiter))
	}
	handlers.RegisterCollectionRoutes(api, opened.Store)
	return r
}
