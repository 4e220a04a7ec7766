package testutil

import (
	"testing"

	"github.com/kasuganosora/guildsync/cache"
	"github.com/kasuganosora/guildsync/config"
	dbadapter "github.com/kasuganosora/guildsync/db"
	"github.com/kasuganosora/guildsync/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
// It requires no external services.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates a local cache and pub/sub pair (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.Config{} // empty RedisAddr selects the local backends
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}

// SharedBus returns one local pub/sub bus for wiring several registries
// together in one test, standing in for the shared broker.
func SharedBus(t *testing.T) cache.PubSub {
	t.Helper()
	ps, err := cache.NewPubSub(cache.Config{})
	require.NoError(t, err, "SharedBus: NewPubSub")
	return ps
}
