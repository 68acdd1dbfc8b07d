package store

import (
	"fmt"
	"log"

	"bagel-preorder-backend/config"
	"bagel-preorder-backend/internal/capacity"
	"bagel-preorder-backend/internal/db"
)

// Open builds the store selected by cfg.Backend. The choice is made once at startup.
func Open(cfg *config.StoreConfig, gate *capacity.Gate) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		gormDB, err := db.Init(cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("Using sqlite store at %s", cfg.SQLite.Path)
		return NewSQLiteStore(gormDB, gate), nil
	case config.BackendPostgres:
		gormDB, err := db.Init(cfg)
		if err != nil {
			return nil, err
		}
		log.Println("Using postgres store")
		return NewPostgresStore(gormDB, gate, cfg.Timeout), nil
	case config.BackendRedis:
		client, err := db.ConnectRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.Printf("Using redis store with key prefix %q", cfg.Redis.KeyPrefix)
		return NewRedisStore(client, cfg.Redis.KeyPrefix, gate, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
