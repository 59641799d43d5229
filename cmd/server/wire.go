// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"satonic/internal/app"
	"satonic/internal/backend"
	"satonic/internal/config"
	"satonic/internal/inscription"
	"satonic/internal/jobs"
	"satonic/internal/listing"
	"satonic/internal/listing/esutil"
	"satonic/internal/middleware"
	"satonic/internal/platform/elasticsearch"
	"satonic/internal/platform/logger"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform
		logger.New,
		provideDB,
		elasticsearch.NewClient,

		// Upstreams
		provideBackendClient,
		wire.Bind(new(jobs.HealthChecker), new(*backend.Client)),
		middleware.NewBackendVerifier,
		provideInscriptionSource,

		// Listings
		listing.NewGORMRepository,
		esutil.NewIndexer,
		listing.NewService,
		listing.NewHandler,
		inscription.NewHandler,

		// Jobs
		jobs.NewAuctionExpiryJob,
		jobs.NewBackendHealthJob,

		app.NewServer,
	)
	return nil, nil, nil
}
