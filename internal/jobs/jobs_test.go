package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"satonic/internal/backend"
	"satonic/internal/common"
	"satonic/internal/config"
	"satonic/internal/listing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, seller string, req listing.CreateListingRequest) (*listing.Listing, error) {
	args := m.Called(ctx, seller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingService) GetListing(ctx context.Context, ref string) (*listing.Listing, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingService) ListListings(ctx context.Context) ([]listing.Listing, error) {
	args := m.Called(ctx)
	return args.Get(0).([]listing.Listing), args.Error(1)
}

func (m *MockListingService) ListListingsPage(ctx context.Context, status listing.ListingStatus, page, pageSize int) ([]listing.Listing, *common.Pagination, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]listing.Listing), args.Get(1).(*common.Pagination), args.Error(2)
}

func (m *MockListingService) SearchListings(ctx context.Context, q listing.ListingSearchQuery) ([]listing.Listing, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]listing.Listing), args.Error(1)
}

func (m *MockListingService) ExpireListings(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) (*backend.HealthResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.HealthResponse), args.Error(1)
}

func TestAuctionExpiryJob_Run(t *testing.T) {
	svc := new(MockListingService)
	svc.On("ExpireListings", mock.Anything).Return(3, nil).Once()
	svc.On("ExpireListings", mock.Anything).Return(0, errors.New("db down")).Once()

	j := NewAuctionExpiryJob(svc, zap.NewNop(), &config.Config{})
	n, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = j.Run(context.Background())
	assert.Error(t, err)
	svc.AssertExpectations(t)
}

func TestAuctionExpiryJob_EmptyScheduleIsNoop(t *testing.T) {
	j := NewAuctionExpiryJob(new(MockListingService), zap.NewNop(), &config.Config{})
	assert.NoError(t, j.SetupAndStart())
	assert.Empty(t, j.cronScheduler.Entries())
}

func TestAuctionExpiryJob_InvalidSchedule(t *testing.T) {
	j := NewAuctionExpiryJob(new(MockListingService), zap.NewNop(), &config.Config{AuctionExpiryJobSchedule: "not a spec"})
	assert.Error(t, j.SetupAndStart())
}

func TestBackendHealthJob_Check(t *testing.T) {
	checker := new(MockHealthChecker)
	checker.On("HealthCheck", mock.Anything).Return(&backend.HealthResponse{Status: "ok"}, nil).Once()
	checker.On("HealthCheck", mock.Anything).Return(nil, errors.New("dial tcp: connection refused")).Once()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	j := NewBackendHealthJob(checker, zap.NewNop(), &config.Config{})
	j.now = func() time.Time { return now }

	assert.True(t, j.Status().CheckedAt.IsZero())

	st := j.Check(context.Background())
	assert.Equal(t, BackendStatus{BackendAvailable: true, CheckedAt: now}, st)
	assert.Equal(t, st, j.Status())

	st = j.Check(context.Background())
	assert.False(t, st.BackendAvailable)
	assert.Equal(t, "dial tcp: connection refused", j.Status().Error)
}

func TestBackendHealthJob_DegradedStatus(t *testing.T) {
	checker := new(MockHealthChecker)
	checker.On("HealthCheck", mock.Anything).Return(&backend.HealthResponse{Status: "degraded"}, nil)

	j := NewBackendHealthJob(checker, zap.NewNop(), &config.Config{})
	st := j.Check(context.Background())
	assert.False(t, st.BackendAvailable)
	assert.Contains(t, st.Error, "degraded")
}

func TestCronLogger_OddKeys(t *testing.T) {
	cl := &cronLogger{zl: zap.NewNop()}
	fields := cl.parseKeysAndValues("entry", 1, "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "dangling", fields[1].Key)
}
