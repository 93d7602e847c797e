package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, cfg.Store.Backend)
	require.True(t, cfg.Store.FallbackToMemory)
	require.Equal(t, "./data/jobboard.db", cfg.SQLite.Path)
	require.Equal(t, "5020", cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
	require.Equal(t, "jobboard", cfg.MongoDB.Database)
	require.Empty(t, cfg.Redis.Addr())
}

func TestLoadConfig_Mongo(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "jobboard_test")
	t.Setenv("MONGODB_TIMEOUT", "3")
	t.Setenv("REDIS_HOST", "localhost")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, BackendMongo, cfg.Store.Backend)
	require.Equal(t, "jobboard_test", cfg.MongoDB.Database)
	require.Equal(t, 3*time.Second, cfg.MongoDB.Timeout)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "MONGODB_URI")

	t.Setenv("STORE_BACKEND", "postgres")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "unknown STORE_BACKEND")

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "0")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "RATE_LIMIT_RPS")
}
