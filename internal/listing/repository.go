// File: internal/listing/repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"satonic/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for listing data operations.
type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	FindBySlug(ctx context.Context, slug string) (*Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error)
	FindAll(ctx context.Context) ([]Listing, error)
	FindPage(ctx context.Context, status ListingStatus, offset, limit int) ([]Listing, int64, error)
	Search(ctx context.Context, query ListingSearchQuery) ([]Listing, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ListingStatus) error
	FindExpiredListings(ctx context.Context, now time.Time) ([]Listing, error)
	FindAllForSync(ctx context.Context, offset, limit int) ([]Listing, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM listing repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// Create inserts a listing. A second listing for the same inscription is a conflict.
func (r *gormRepository) Create(ctx context.Context, listing *Listing) error {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithDetails("An auction for this inscription already exists.")
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Auction not found.")
		}
		return nil, err
	}
	return &listing, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, slug string) (*Listing, error) {
	var listing Listing
	err := r.db.WithContext(ctx).Where("slug = ?", slug).Order("created_at DESC").First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Auction not found.")
		}
		return nil, err
	}
	return &listing, nil
}

// FindByIDs returns the listings in the order of ids, skipping unknown IDs.
func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error) {
	if len(ids) == 0 {
		return []Listing{}, nil
	}
	var found []Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load listings by id: %w", err)
	}
	byID := make(map[uuid.UUID]Listing, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	ordered := make([]Listing, 0, len(found))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered, nil
}

// FindAll returns every listing, newest first.
func (r *gormRepository) FindAll(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// FindPage returns one page of listings, newest first, and the total row
// count for the filter. An empty status matches every listing.
func (r *gormRepository) FindPage(ctx context.Context, status ListingStatus, offset, limit int) ([]Listing, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Listing{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	var listings []Listing
	if err := filtered().Order("created_at DESC").Offset(offset).Limit(limit).Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to page listings: %w", err)
	}
	return listings, total, nil
}

// Search matches the term against title, slug and inscription ID.
func (r *gormRepository) Search(ctx context.Context, query ListingSearchQuery) ([]Listing, error) {
	var listings []Listing
	dbQuery := r.db.WithContext(ctx).Model(&Listing{})

	if query.SearchTerm != "" {
		term := "%" + strings.ToLower(query.SearchTerm) + "%"
		dbQuery = dbQuery.Where("LOWER(title) LIKE ? OR LOWER(slug) LIKE ? OR LOWER(inscription_id) LIKE ?", term, term, term)
	}
	if query.Status != "" {
		dbQuery = dbQuery.Where("status = ?", query.Status)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = common.DefaultPageSize
	}

	if err := dbQuery.Order("created_at DESC").Limit(limit).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, nil
}

func (r *gormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ListingStatus) error {
	result := r.db.WithContext(ctx).Model(&Listing{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Auction not found.")
	}
	return nil
}

// FindExpiredListings returns active listings whose end time has passed.
func (r *gormRepository) FindExpiredListings(ctx context.Context, now time.Time) ([]Listing, error) {
	var listings []Listing
	err := r.db.WithContext(ctx).
		Where("ends_at <= ? AND status = ?", now.UTC(), StatusActive).
		Find(&listings).Error
	return listings, err
}

// FindAllForSync pages through every listing in a stable order for reindexing.
func (r *gormRepository) FindAllForSync(ctx context.Context, offset, limit int) ([]Listing, error) {
	var listings []Listing
	err := r.db.WithContext(ctx).
		Order("created_at ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&listings).Error
	return listings, err
}
