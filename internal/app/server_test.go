package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"satonic/internal/app"
	"satonic/internal/backend"
	"satonic/internal/common"
	"satonic/internal/config"
	"satonic/internal/inscription"
	"satonic/internal/jobs"
	"satonic/internal/listing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(_ context.Context, token string) (*backend.User, error) {
	if token != "valid" {
		return nil, backend.ErrAuthRequired
	}
	return &backend.User{ID: "u1", Wallets: []backend.Wallet{{Address: "tb1qseller"}}}, nil
}

type stubInscriptions struct{}

func (stubInscriptions) AddressInscriptions(_ context.Context, address string) (json.RawMessage, error) {
	if address == "broken" {
		return nil, errors.New("upstream 500")
	}
	return json.RawMessage(`{"data":[]}`), nil
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) (*backend.HealthResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &backend.HealthResponse{Status: "ok"}, nil
}

type ServerSuite struct {
	suite.Suite
	db        *gorm.DB
	handler   http.Handler
	healthJob *jobs.BackendHealthJob
}

func (s *ServerSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(db.AutoMigrate(&listing.Listing{}))
	s.db = db

	cfg := &config.Config{GinMode: "test", MaxAuctionDurationHours: 168, TokenCacheTTL: time.Minute}
	log := zap.NewNop()

	listingSvc := listing.NewService(listing.NewGORMRepository(db), nil, cfg, log)
	s.healthJob = jobs.NewBackendHealthJob(stubHealth{}, log, cfg)

	srv, err := app.NewServer(
		cfg, log,
		listing.NewHandler(listingSvc, log),
		inscription.NewHandler(stubInscriptions{}, log),
		stubVerifier{},
		jobs.NewAuctionExpiryJob(listingSvc, log, cfg),
		s.healthJob,
		nil,
	)
	s.Require().NoError(err)
	s.handler = srv.Handler()
}

func (s *ServerSuite) TearDownTest() {
	sqlDB, _ := s.db.DB()
	_ = sqlDB.Close()
}

func (s *ServerSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"UP"}`, rec.Body.String())
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
}

func (s *ServerSuite) TestStatusReflectsHealthJob() {
	rec := s.do(http.MethodGet, "/api/status", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	var st jobs.BackendStatus
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &st))
	s.False(st.BackendAvailable)

	s.healthJob.Check(context.Background())

	rec = s.do(http.MethodGet, "/api/status", "", nil)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &st))
	s.True(st.BackendAvailable)
	s.False(st.CheckedAt.IsZero())
}

func (s *ServerSuite) TestCreateAndListAuctions() {
	req := listing.CreateListingRequest{
		Title:             "Bitcoin Rock #1",
		InscriptionID:     "abcdefi0",
		InscriptionNumber: 1,
		StartingBid:       50000,
		IncrementInterval: 5000,
		Duration:          48,
	}

	rec := s.do(http.MethodPost, "/api/auctions", "", req)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auctions", "expired", req)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auctions", "valid", req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created common.LegacyResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.True(created.Success)

	rec = s.do(http.MethodGet, "/api/auctions", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	var list []listing.ListingResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list, 1)
	s.Equal(created.AuctionID, list[0].ID.String())
	s.Equal("tb1qseller", list[0].SellerAddress)

	rec = s.do(http.MethodGet, "/api/listings?page=1&page_size=5", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), created.AuctionID)
	s.Contains(rec.Body.String(), `"total_items":1`)

	rec = s.do(http.MethodGet, "/api/listings/"+created.AuctionID, "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestNFTProxy() {
	rec := s.do(http.MethodGet, "/api/nfts/bc1qabc", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"data":[]}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/nfts/broken", "", nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"error":"Failed to fetch NFTs"}`, rec.Body.String())
}

func (s *ServerSuite) TestUnknownRoute() {
	rec := s.do(http.MethodGet, "/api/nope", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "NOT_FOUND")
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}
