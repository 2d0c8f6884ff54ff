// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/investwest/internal/app/store/emailverify"
	loginstore "github.com/dalemusser/investwest/internal/app/store/logins"
	"github.com/dalemusser/investwest/internal/app/system/idempotency"
	"github.com/dalemusser/investwest/internal/app/system/indexes"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens MongoDB and, when configured, Redis.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{MongoClient: client, MongoDatabase: client.Database(appCfg.MongoDatabase)}

	if appCfg.RedisAddr != "" {
		rdb, err := idempotency.OpenRedis(ctx, appCfg.RedisAddr, appCfg.RedisDB)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("connect redis: %w", err)
		}
		deps.Redis = rdb
		logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
	} else {
		logger.Info("redis_addr not set; notification idempotency uses MongoDB only")
	}
	return deps, nil
}

// EnsureSchema creates collections with their validators, then indexes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}
	if err := emailverify.New(db, appCfg.SignInCodeExpiry).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("sign-in challenge indexes: %w", err)
	}
	if err := loginstore.New(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("login history indexes: %w", err)
	}
	logger.Info("schema ensured")
	return nil
}
