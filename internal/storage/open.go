package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conatuslab/conatuslab/internal/platform/cache"
	"github.com/conatuslab/conatuslab/internal/platform/config"
	"github.com/conatuslab/conatuslab/internal/platform/database"
)

// Open connects the store selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case DriverMemory:
		slog.Warn("using in-memory storage, progress will not survive a restart")
		return NewMemoryStore(), nil
	case DriverBolt:
		return NewBoltStore(cfg.Storage.Path)
	case DriverRedis:
		c, err := cache.New(ctx, cfg.Cache.URL, cfg.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(c), nil
	case DriverPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgresStore(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
