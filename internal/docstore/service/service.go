// Package service builds the configured document store and decorates it
// with operation metrics.
package service

import (
	"context"
	"fmt"

	"github.com/jobboard/backend/go-services/internal/config"
	"github.com/jobboard/backend/go-services/internal/database"
	"github.com/jobboard/backend/go-services/internal/docstore"
	"github.com/jobboard/backend/go-services/internal/docstore/repository"
	"github.com/jobboard/backend/go-services/pkg/logger"
	"github.com/jobboard/backend/go-services/pkg/metrics"
)

var log = logger.Named("docstore/service")

// Opened is a ready store together with the backend actually serving it,
// which differs from the configured one after a fallback.
type Opened struct {
	Store    docstore.Store
	Backend  string
	Fallback bool
}

// Open connects the configured backend and wraps it with metrics. When the
// persistent backend cannot be reached and fallback is enabled, a memory
// store is returned instead.
func Open(ctx context.Context, cfg *config.Config) (*Opened, error) {
	store, err := openBackend(ctx, cfg)
	backend := cfg.Store.Backend
	fallback := false
	if err != nil {
		if !cfg.Store.FallbackToMemory || backend == config.BackendMemory {
			return nil, err
		}
		log.Warnf("cannot open %s store (%v), using memory-backed store", backend, err)
		metrics.StoreFallbacks.WithLabelValues(backend).Inc()
		store = repository.NewMemoryStore()
		backend = config.BackendMemory
		fallback = true
	}
	log.Infof("document store ready: backend=%s", backend)
	return &Opened{Store: Instrument(store, backend), Backend: backend, Fallback: fallback}, nil
}

func openBackend(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path, cfg.SQLite.Timeout)
		if err != nil {
			return nil, err
		}
		log.Debugf("sqlite store at %s", cfg.SQLite.Path)
		return repository.NewSQLStore(db), nil
	case config.BackendMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, err
		}
		log.Debugf("mongo store on database %s", cfg.MongoDB.Database)
		return repository.NewMongoStore(client, cfg.MongoDB.Database), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
