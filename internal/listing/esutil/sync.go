package esutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"satonic/internal/listing"
	platformElasticsearch "satonic/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// SyncStats summarises a SyncListings run.
type SyncStats struct {
	Batches int
	Synced  int
	Failed  int
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string                 `json:"_id"`
			Status int                    `json:"status"`
			Error  map[string]interface{} `json:"error,omitempty"`
		} `json:"index"`
	} `json:"items"`
}

// BuildBulkBody renders listings as bulk index actions. Listings that fail
// to convert are skipped and counted.
func BuildBulkBody(listings []listing.Listing, logger *zap.Logger) (body string, docs int, failed int) {
	var sb strings.Builder
	for i := range listings {
		l := &listings[i]
		doc, err := ListingToElasticsearchDoc(l)
		if err != nil {
			logger.Error("Failed to convert listing to Elasticsearch document",
				zap.String("listing_id", l.ID.String()), zap.Error(err))
			failed++
			continue
		}
		fmt.Fprintf(&sb, `{"index":{"_index":"%s","_id":"%s"}}`+"\n", platformElasticsearch.ListingsIndexName, l.ID)
		sb.WriteString(doc)
		sb.WriteString("\n")
		docs++
	}
	return sb.String(), docs, failed
}

// SyncListings re-indexes every listing in batches of batchSize.
func SyncListings(
	ctx context.Context,
	repo listing.Repository,
	client *platformElasticsearch.ESClientWrapper,
	logger *zap.Logger,
	batchSize int,
	refresh string,
) (SyncStats, error) {
	var stats SyncStats
	if batchSize <= 0 {
		batchSize = 100
	}
	logger.Info("Starting listing synchronization to Elasticsearch",
		zap.Int("batch_size", batchSize), zap.String("refresh", refresh))

	for offset := 0; ; {
		listings, err := repo.FindAllForSync(ctx, offset, batchSize)
		if err != nil {
			return stats, fmt.Errorf("failed to fetch batch %d: %w", stats.Batches+1, err)
		}
		if len(listings) == 0 {
			break
		}
		stats.Batches++
		offset += len(listings)

		body, docs, convFailed := BuildBulkBody(listings, logger)
		stats.Failed += convFailed
		if docs == 0 {
			continue
		}

		synced, failed := sendBulk(ctx, client, body, docs, refresh, logger)
		stats.Synced += synced
		stats.Failed += failed
		logger.Info("Batch processed",
			zap.Int("batch", stats.Batches),
			zap.Int("synced", synced),
			zap.Int("failed", failed))
	}

	logger.Info("Listing synchronization finished",
		zap.Int("synced", stats.Synced), zap.Int("failed", stats.Failed))
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d listings failed to sync", stats.Failed)
	}
	return stats, nil
}

func sendBulk(ctx context.Context, client *platformElasticsearch.ESClientWrapper, body string, docs int, refresh string, logger *zap.Logger) (synced, failed int) {
	res, err := esapi.BulkRequest{
		Body:    strings.NewReader(body),
		Refresh: refresh,
	}.Do(ctx, client.Client)
	if err != nil {
		logger.Error("Failed to send bulk request to Elasticsearch", zap.Error(err))
		return 0, docs
	}
	defer res.Body.Close()

	if res.IsError() {
		logger.Error("Elasticsearch bulk request returned an error",
			zap.String("status", res.Status()),
			zap.Any("error_details", platformElasticsearch.DecodeError(res)))
		return 0, docs
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		logger.Error("Failed to parse Elasticsearch bulk response body", zap.Error(err))
		return 0, docs
	}
	for _, item := range parsed.Items {
		if item.Index.Error != nil {
			logger.Error("Failed to index document in bulk batch",
				zap.String("listing_id", item.Index.ID),
				zap.Any("error", item.Index.Error),
				zap.Int("status", item.Index.Status))
			failed++
			continue
		}
		synced++
	}
	return synced, failed
}
