package storage

import (
	"context"
	"fmt"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
	"github.com/Denis-Evseev/google-daily-trends/pkg/database"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
)

// Open connects the backend named by cfg.Storage.Driver and migrates it
// ⭐ SSOT: 저장소 선택은 여기서만
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.SeriesRepository, error) {
	log = log.WithComponent("storage")

	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repo, err := NewPostgresRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Connected to PostgreSQL")
		return repo, nil

	case "sqlite", "":
		db, err := database.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo, err := NewSQLiteRepository(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.WithField("path", cfg.Storage.SQLitePath).Info("Opened SQLite store")
		return repo, nil

	case "memory":
		log.Warn("Using in-memory store; runs are lost on exit")
		return NewMemoryRepository(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
