// File: cmd/server/providers.go
package main

import (
	"satonic/internal/backend"
	"satonic/internal/config"
	"satonic/internal/listing"
	"satonic/internal/ordiscan"
	"satonic/internal/platform/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDB opens and migrates the listing database.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db, logger, &listing.Listing{}); err != nil {
		database.CloseGORMDB(db, logger)
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db, logger)
		_ = logger.Sync()
	}
	return db, cleanup, nil
}

func provideBackendClient(cfg *config.Config, logger *zap.Logger) *backend.Client {
	return backend.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger)
}

func provideInscriptionSource(cfg *config.Config, logger *zap.Logger) ordiscan.InscriptionSource {
	return ordiscan.NewClient(ordiscan.Config{
		BaseURL:  cfg.OrdiscanBaseURL,
		APIKey:   cfg.OrdiscanAPIKey,
		Timeout:  cfg.APITimeout,
		CacheTTL: cfg.OrdiscanCacheTTL,
	}, logger)
}
