package store

import (
	"context"
	"fmt"

	"github.com/devnovate/blog/config"
)

// Open builds the Store selected by cfg.DBDriver.
func Open(ctx context.Context, cfg config.AppConfig) (Store, error) {
	switch cfg.DBDriver {
	case "mysql", "postgres":
		db, err := config.InitDatabase(cfg, Models...)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}
