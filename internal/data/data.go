// Package data provides data access layer implementations.
// It handles database connections and data persistence.
package data

import (
	"fmt"

	"OAuthDropins/internal/conf"
	"OAuthDropins/pkg/crypto"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewMySQLClient,
	NewCacheClient,
	crypto.NewAESCryptoFromConfig,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient backs pending requests and the credential cache
	redisClient *redis.Client
	db          *gorm.DB
	cache       CacheClient
}

// NewData creates a new Data instance and applies schema migrations when enabled.
func NewData(c *conf.Data, logger log.Logger, rdb *redis.Client, db *gorm.DB, cache CacheClient) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if rdb == nil {
		return nil, nil, fmt.Errorf("redis client is required for pending oauth requests")
	}

	if c != nil && c.Database != nil && c.Database.AutoMigrate && db != nil {
		if err := Migrate(db); err != nil {
			return nil, nil, err
		}
		helper.Info("database schema migrated")
	}

	d := &Data{
		redisClient: rdb,
		db:          db,
		cache:       cache,
	}

	cleanup := func() {
		// Redis and MySQL cleanups are registered by their own providers
		helper.Info("closing the data resources")
	}

	return d, cleanup, nil
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&RedditAuth{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// GetCache returns the cache client for repository use.
func (d *Data) GetCache() CacheClient {
	return d.cache
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
