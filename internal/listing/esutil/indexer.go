package esutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"satonic/internal/common"
	"satonic/internal/listing"
	platformElasticsearch "satonic/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Indexer keeps the listings index in step with the database.
type Indexer struct {
	client  *platformElasticsearch.ESClientWrapper
	refresh string
	logger  *zap.Logger
}

// NewIndexer returns nil when client is nil so the listing service falls
// back to database search.
func NewIndexer(client *platformElasticsearch.ESClientWrapper, logger *zap.Logger) listing.Indexer {
	if client == nil {
		return nil
	}
	return &Indexer{client: client, refresh: "false", logger: logger.Named("listing_indexer")}
}

func (ix *Indexer) IndexListing(ctx context.Context, l *listing.Listing) error {
	doc, err := ListingToElasticsearchDoc(l)
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      platformElasticsearch.ListingsIndexName,
		DocumentID: l.ID.String(),
		Body:       strings.NewReader(doc),
		Refresh:    ix.refresh,
	}.Do(ctx, ix.client.Client)
	if err != nil {
		return fmt.Errorf("index listing %s: %w", l.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		ix.logger.Error("Elasticsearch rejected listing document",
			zap.String("listing_id", l.ID.String()),
			zap.Any("error_details", platformElasticsearch.DecodeError(res)))
		return fmt.Errorf("index listing %s: status %s", l.ID, res.Status())
	}
	return nil
}

// searchQuery builds a multi_match over the text fields, filtered by status.
func searchQuery(q listing.ListingSearchQuery) ([]byte, error) {
	size := q.Limit
	if size <= 0 {
		size = common.DefaultPageSize
	}
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":     q.SearchTerm,
					"fields":    []string{"title^3", "slug", "inscription_id", "seller_address"},
					"fuzziness": "AUTO",
				},
			},
		},
	}
	if q.Status != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"status": q.Status}},
		}
	}
	return json.Marshal(map[string]interface{}{
		"size":    size,
		"_source": false,
		"query":   map[string]interface{}{"bool": boolQuery},
	})
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchListingIDs returns matching listing IDs by relevance.
func (ix *Indexer) SearchListingIDs(ctx context.Context, q listing.ListingSearchQuery) ([]uuid.UUID, error) {
	body, err := searchQuery(q)
	if err != nil {
		return nil, err
	}
	res, err := esapi.SearchRequest{
		Index: []string{platformElasticsearch.ListingsIndexName},
		Body:  bytes.NewReader(body),
	}.Do(ctx, ix.client.Client)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search listings: status %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			ix.logger.Warn("Skipping search hit with non-uuid id", zap.String("id", h.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
