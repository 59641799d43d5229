// File: internal/listing/service.go
package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"satonic/internal/common"
	"satonic/internal/config"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Indexer mirrors listings into a full-text search engine.
type Indexer interface {
	IndexListing(ctx context.Context, l *Listing) error
	SearchListingIDs(ctx context.Context, query ListingSearchQuery) ([]uuid.UUID, error)
}

// Service defines the interface for listing-related business logic.
type Service interface {
	CreateListing(ctx context.Context, sellerAddress string, req CreateListingRequest) (*Listing, error)
	GetListing(ctx context.Context, ref string) (*Listing, error)
	ListListings(ctx context.Context) ([]Listing, error)
	ListListingsPage(ctx context.Context, status ListingStatus, page, pageSize int) ([]Listing, *common.Pagination, error)
	SearchListings(ctx context.Context, query ListingSearchQuery) ([]Listing, error)

	// Jobs related (can be called by cron jobs)
	ExpireListings(ctx context.Context) (int, error)
}

// ServiceImplementation implements the listing Service interface.
type ServiceImplementation struct {
	repo    Repository
	indexer Indexer
	cfg     *config.Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new listing service. indexer may be nil, in which
// case search runs against the database only.
func NewService(repo Repository, indexer Indexer, cfg *config.Config, logger *zap.Logger) Service {
	return &ServiceImplementation{
		repo:    repo,
		indexer: indexer,
		cfg:     cfg,
		logger:  logger.Named("listing_service"),
		now:     time.Now,
	}
}

func (s *ServiceImplementation) maxDuration() int64 {
	if s.cfg == nil || s.cfg.MaxAuctionDurationHours <= 0 {
		return 168
	}
	return int64(s.cfg.MaxAuctionDurationHours)
}

// CreateListing stores a new listing and, when search is enabled, indexes it.
func (s *ServiceImplementation) CreateListing(ctx context.Context, sellerAddress string, req CreateListingRequest) (*Listing, error) {
	title := strings.TrimSpace(req.Title)
	inscriptionID := strings.TrimSpace(req.InscriptionID)
	if title == "" || inscriptionID == "" {
		return nil, common.ErrBadRequest.WithDetails("Title and inscription ID are required.")
	}
	if maxHours := s.maxDuration(); req.Duration < 1 || req.Duration > maxHours {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("Duration must be between 1 and %d hours", maxHours))
	}

	now := s.now().UTC()
	listing := &Listing{
		Title:             title,
		Slug:              slug.Make(fmt.Sprintf("%s %d", title, req.InscriptionNumber)),
		InscriptionID:     inscriptionID,
		InscriptionNumber: req.InscriptionNumber,
		StartingBid:       req.StartingBid,
		IncrementInterval: req.IncrementInterval,
		Duration:          req.Duration,
		SellerAddress:     sellerAddress,
		Status:            StatusActive,
	}
	listing.CreatedAt = now
	listing.UpdatedAt = now
	listing.EndsAt = listing.ComputeEndsAt()

	if err := s.repo.Create(ctx, listing); err != nil {
		s.logger.Warn("Failed to create listing", zap.String("inscription_id", inscriptionID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Listing created",
		zap.String("listing_id", listing.ID.String()),
		zap.String("inscription_id", inscriptionID),
		zap.String("seller", sellerAddress))

	if s.indexer != nil {
		if err := s.indexer.IndexListing(ctx, listing); err != nil {
			// The row is the source of truth; sync-listings repairs the index.
			s.logger.Error("Failed to index listing", zap.String("listing_id", listing.ID.String()), zap.Error(err))
		}
	}
	return listing, nil
}

// GetListing looks a listing up by ID, or by slug when ref is not a UUID.
func (s *ServiceImplementation) GetListing(ctx context.Context, ref string) (*Listing, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrBadRequest.WithDetails("Auction ID or slug is required.")
	}
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.FindByID(ctx, id)
	}
	return s.repo.FindBySlug(ctx, strings.ToLower(ref))
}

func (s *ServiceImplementation) ListListings(ctx context.Context) ([]Listing, error) {
	return s.repo.FindAll(ctx)
}

func (s *ServiceImplementation) ListListingsPage(ctx context.Context, status ListingStatus, page, pageSize int) ([]Listing, *common.Pagination, error) {
	listings, total, err := s.repo.FindPage(ctx, status, common.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, nil, err
	}
	return listings, common.NewPagination(total, page, pageSize), nil
}

// SearchListings prefers the search index and falls back to SQL LIKE matching.
func (s *ServiceImplementation) SearchListings(ctx context.Context, query ListingSearchQuery) ([]Listing, error) {
	query.SearchTerm = strings.TrimSpace(query.SearchTerm)
	if s.indexer != nil && query.SearchTerm != "" {
		ids, err := s.indexer.SearchListingIDs(ctx, query)
		if err == nil {
			return s.repo.FindByIDs(ctx, ids)
		}
		s.logger.Warn("Search index unavailable, falling back to database search", zap.Error(err))
	}
	return s.repo.Search(ctx, query)
}

// ExpireListings marks active listings past their end time as ended.
func (s *ServiceImplementation) ExpireListings(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.repo.FindExpiredListings(ctx, now)
	if err != nil {
		s.logger.Error("Failed to find expired listings", zap.Error(err))
		return 0, err
	}

	count := 0
	for i := range expired {
		l := &expired[i]
		if err := s.repo.UpdateStatus(ctx, l.ID, StatusEnded); err != nil {
			s.logger.Error("Failed to mark listing ended", zap.Error(err), zap.String("listing_id", l.ID.String()))
			continue
		}
		count++
		if s.indexer != nil {
			l.Status = StatusEnded
			if err := s.indexer.IndexListing(ctx, l); err != nil {
				s.logger.Warn("Failed to reindex ended listing", zap.String("listing_id", l.ID.String()), zap.Error(err))
			}
		}
	}
	s.logger.Info("Auction expiry pass completed", zap.Int("ended_count", count), zap.Int("found_to_end", len(expired)))
	return count, nil
}
