package esutil

import (
	"encoding/json"
	"errors"
	"fmt"

	"satonic/internal/listing"
)

// ListingToElasticsearchDoc converts a listing to its search document.
func ListingToElasticsearchDoc(l *listing.Listing) (string, error) {
	if l == nil {
		return "", errors.New("listing cannot be nil")
	}

	doc := map[string]interface{}{
		"title":              l.Title,
		"slug":               l.Slug,
		"inscription_id":     l.InscriptionID,
		"inscription_number": l.InscriptionNumber,
		"seller_address":     l.SellerAddress,
		"status":             string(l.Status),
		"starting_bid":       l.StartingBid,
		"increment_interval": l.IncrementInterval,
		"duration_hours":     l.Duration,
		"ends_at":            l.EndsAt,
		"created_at":         l.CreatedAt,
		"updated_at":         l.UpdatedAt,
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("error marshalling listing to JSON for ES: %w", err)
	}
	return string(docBytes), nil
}
