package server

import (
	"context"
	"log/slog"
	"time"

	repo "github.com/joseph-ayodele/protocol-extractor/internal/repository"
)

// ConnectDB opens the run journal. An empty DSN means no journal: it
// returns (nil, nil).
func ConnectDB(ctx context.Context, cfg repo.Config, logger *slog.Logger) (*repo.DB, error) {
	if cfg.DSN == "" {
		logger.Info("run journal disabled")
		return nil, nil
	}

	logger.Info("connecting to database")
	db, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	if db == nil {
		return nil
	}
	logger.Debug("pinging database")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// CloseDB closes the database connections gracefully
func CloseDB(db *repo.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connections")
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	logger.Info("database connections closed")
}
