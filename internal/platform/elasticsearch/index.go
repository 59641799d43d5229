package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ListingsIndexName = "listings"

func keywordSubfield() map[string]interface{} {
	return map[string]interface{}{
		"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
	}
}

// ListingsMapping is the index body for auction listings.
func ListingsMapping() (string, error) {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title":              map[string]interface{}{"type": "text", "fields": keywordSubfield()},
				"slug":               map[string]interface{}{"type": "keyword"},
				"inscription_id":     map[string]interface{}{"type": "keyword"},
				"inscription_number": map[string]interface{}{"type": "long"},
				"seller_address":     map[string]interface{}{"type": "keyword"},
				"status":             map[string]interface{}{"type": "keyword"},
				"starting_bid":       map[string]interface{}{"type": "long"},
				"increment_interval": map[string]interface{}{"type": "long"},
				"duration_hours":     map[string]interface{}{"type": "integer"},
				"ends_at":            map[string]interface{}{"type": "date"},
				"created_at":         map[string]interface{}{"type": "date"},
				"updated_at":         map[string]interface{}{"type": "date"},
			},
		},
	}
	b, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling listings mapping to JSON: %w", err)
	}
	return string(b), nil
}

// CreateListingsIndexIfNotExists creates the listings index on first start.
func CreateListingsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{ListingsIndexName}}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error checking if listings index exists: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		log.Debug("Listings index already exists", zap.String("index_name", ListingsIndexName))
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("error checking if listings index exists: status %s", res.Status())
	}

	mappingJSON, err := ListingsMapping()
	if err != nil {
		return err
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: ListingsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error creating listings index %s: %w", ListingsIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		log.Error("Failed to create listings index",
			zap.String("status", createRes.Status()),
			zap.Any("error_details", DecodeError(createRes)))
		return fmt.Errorf("failed to create listings index %s: status %s", ListingsIndexName, createRes.Status())
	}

	log.Info("Listings index created", zap.String("index_name", ListingsIndexName))
	return nil
}
