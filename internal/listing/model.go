// File: internal/listing/model.go
package listing

import (
	"time"

	"satonic/internal/common"

	"github.com/google/uuid"
)

type ListingStatus string

const (
	StatusActive ListingStatus = "active"
	StatusEnded  ListingStatus = "ended"
)

// Listing is an auction announced through the gateway. Amounts are in
// satoshis and Duration is in hours.
type Listing struct {
	common.BaseModel
	Title             string        `gorm:"type:varchar(255);not null"`
	Slug              string        `gorm:"type:varchar(320);not null;index"`
	InscriptionID     string        `gorm:"type:varchar(100);not null;uniqueIndex"`
	InscriptionNumber int64         `gorm:"not null"`
	StartingBid       int64         `gorm:"not null"`
	IncrementInterval int64         `gorm:"not null"`
	Duration          int64         `gorm:"not null"`
	SellerAddress     string        `gorm:"type:varchar(100);index"`
	Status            ListingStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	EndsAt            time.Time     `gorm:"not null;index"`
}

func (Listing) TableName() string {
	return "listings"
}

// ComputeEndsAt is CreatedAt plus Duration hours.
func (l *Listing) ComputeEndsAt() time.Time {
	return l.CreatedAt.Add(time.Duration(l.Duration) * time.Hour)
}

// --- DTOs for API ---

// CreateListingRequest keeps the camelCase keys of the web client's form.
type CreateListingRequest struct {
	Title             string `json:"title" binding:"required,max=255"`
	InscriptionID     string `json:"inscriptionId" binding:"required,max=100"`
	InscriptionNumber int64  `json:"inscriptionNumber" binding:"gte=0"`
	StartingBid       int64  `json:"startingBid" binding:"required,gt=0"`
	IncrementInterval int64  `json:"incrementInterval" binding:"required,gt=0"`
	Duration          int64  `json:"duration" binding:"required,gte=1"`
}

type ListingResponse struct {
	ID                uuid.UUID     `json:"id"`
	Title             string        `json:"title"`
	Slug              string        `json:"slug"`
	InscriptionID     string        `json:"inscriptionId"`
	InscriptionNumber int64         `json:"inscriptionNumber"`
	StartingBid       int64         `json:"startingBid"`
	IncrementInterval int64         `json:"incrementInterval"`
	Duration          int64         `json:"duration"`
	SellerAddress     string        `json:"sellerAddress,omitempty"`
	Status            ListingStatus `json:"status"`
	EndsAt            time.Time     `json:"endsAt"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

func ToListingResponse(l *Listing) ListingResponse {
	return ListingResponse{
		ID:                l.ID,
		Title:             l.Title,
		Slug:              l.Slug,
		InscriptionID:     l.InscriptionID,
		InscriptionNumber: l.InscriptionNumber,
		StartingBid:       l.StartingBid,
		IncrementInterval: l.IncrementInterval,
		Duration:          l.Duration,
		SellerAddress:     l.SellerAddress,
		Status:            l.Status,
		EndsAt:            l.EndsAt,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func ToListingResponses(ls []Listing) []ListingResponse {
	out := make([]ListingResponse, len(ls))
	for i := range ls {
		out[i] = ToListingResponse(&ls[i])
	}
	return out
}

// ListingPageQuery filters GET /api/listings; page and page_size are read separately.
type ListingPageQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=active ended"`
}

// ListingSearchQuery filters GET /api/auctions/search.
type ListingSearchQuery struct {
	SearchTerm string `form:"q"`
	Status     string `form:"status" binding:"omitempty,oneof=active ended"`
	Limit      int    `form:"limit" binding:"omitempty,gte=1,lte=100"`
}
