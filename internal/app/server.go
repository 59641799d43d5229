// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"satonic/internal/config"
	"satonic/internal/inscription"
	"satonic/internal/jobs"
	"satonic/internal/listing"
	"satonic/internal/middleware"
	platformElasticsearch "satonic/internal/platform/elasticsearch"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server holds the gateway's HTTP server and background jobs.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config

	AppLogger *zap.Logger
	ESClient  *platformElasticsearch.ESClientWrapper

	listingHandler     *listing.Handler
	inscriptionHandler *inscription.Handler

	auctionExpiryJob *jobs.AuctionExpiryJob
	backendHealthJob *jobs.BackendHealthJob
}

// NewServer wires middleware and routes. esClient may be nil.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	listingHandler *listing.Handler,
	inscriptionHandler *inscription.Handler,
	verifier middleware.TokenVerifier,
	auctionExpiryJob *jobs.AuctionExpiryJob,
	backendHealthJob *jobs.BackendHealthJob,
	esClient *platformElasticsearch.ESClientWrapper,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(verifier, cfg.TokenCacheTTL, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	api := router.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		if backendHealthJob == nil {
			c.JSON(http.StatusOK, jobs.BackendStatus{})
			return
		}
		c.JSON(http.StatusOK, backendHealthJob.Status())
	})
	listingHandler.RegisterRoutes(api, authMW)
	inscriptionHandler.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:         httpServer,
		router:             router,
		cfg:                cfg,
		AppLogger:          logger,
		ESClient:           esClient,
		listingHandler:     listingHandler,
		inscriptionHandler: inscriptionHandler,
		auctionExpiryJob:   auctionExpiryJob,
		backendHealthJob:   backendHealthJob,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) startJobs() {
	if s.auctionExpiryJob != nil {
		if err := s.auctionExpiryJob.SetupAndStart(); err != nil {
			s.AppLogger.Error("Failed to setup and start auction expiry job", zap.Error(err))
		}
	}
	if s.backendHealthJob != nil {
		if err := s.backendHealthJob.SetupAndStart(); err != nil {
			s.AppLogger.Error("Failed to setup and start backend health job", zap.Error(err))
		}
	}
}

func (s *Server) Start() error {
	s.startJobs()

	s.AppLogger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.AppLogger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.AppLogger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.AppLogger.Info("Attempting graceful server shutdown...")
	if s.auctionExpiryJob != nil {
		s.auctionExpiryJob.Stop()
	}
	if s.backendHealthJob != nil {
		s.backendHealthJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
