package esutil

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"satonic/internal/common"
	"satonic/internal/listing"
	platformElasticsearch "satonic/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) *platformElasticsearch.ESClientWrapper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return &platformElasticsearch.ESClientWrapper{Client: client}
}

func sampleListing(title string) listing.Listing {
	l := listing.Listing{
		Title:             title,
		Slug:              strings.ToLower(title),
		InscriptionID:     title + "i0",
		InscriptionNumber: 7,
		StartingBid:       5000,
		IncrementInterval: 500,
		Duration:          24,
		Status:            listing.StatusActive,
	}
	l.ID = uuid.New()
	l.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.EndsAt = l.ComputeEndsAt()
	return l
}

func TestListingToElasticsearchDoc(t *testing.T) {
	l := sampleListing("Pepe")
	doc, err := ListingToElasticsearchDoc(&l)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	assert.Equal(t, "Pepe", m["title"])
	assert.Equal(t, "Pepei0", m["inscription_id"])
	assert.Equal(t, "active", m["status"])
	assert.Equal(t, "2024-03-02T12:00:00Z", m["ends_at"])

	_, err = ListingToElasticsearchDoc(nil)
	assert.Error(t, err)
}

func TestNewIndexer_NilClient(t *testing.T) {
	assert.Nil(t, NewIndexer(nil, zap.NewNop()))
}

func TestIndexer_IndexListing(t *testing.T) {
	l := sampleListing("Pepe")
	var gotPath, gotMethod string
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	ix := NewIndexer(client, zap.NewNop())
	require.NoError(t, ix.IndexListing(context.Background(), &l))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/listings/_doc/"+l.ID.String(), gotPath)
}

func TestIndexer_IndexListingRejected(t *testing.T) {
	l := sampleListing("Pepe")
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"}}`))
	})
	assert.Error(t, NewIndexer(client, zap.NewNop()).IndexListing(context.Background(), &l))
}

func TestIndexer_SearchListingIDs(t *testing.T) {
	want := uuid.New()
	var query map[string]interface{}
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listings/_search", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&query)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"` + want.String() + `"},{"_id":"junk"}]}}`))
	})

	ids, err := NewIndexer(client, zap.NewNop()).SearchListingIDs(context.Background(),
		listing.ListingSearchQuery{SearchTerm: "pepe", Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{want}, ids)
	assert.EqualValues(t, common.DefaultPageSize, query["size"])

	boolQ := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Len(t, boolQ["filter"], 1)
}

type pagedRepo struct {
	listing.Repository
	rows []listing.Listing
}

func (p *pagedRepo) FindAllForSync(_ context.Context, offset, limit int) ([]listing.Listing, error) {
	if offset >= len(p.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(p.rows) {
		end = len(p.rows)
	}
	return p.rows[offset:end], nil
}

func TestSyncListings(t *testing.T) {
	repo := &pagedRepo{rows: []listing.Listing{sampleListing("a"), sampleListing("b"), sampleListing("c")}}
	failID := repo.rows[2].ID.String()

	bulkCalls := 0
	client := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		bulkCalls++

		type item struct {
			Index map[string]interface{} `json:"index"`
		}
		var items []item
		sc := bufio.NewScanner(r.Body)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		line := 0
		for sc.Scan() {
			if line%2 == 0 {
				var action struct {
					Index struct {
						ID string `json:"_id"`
					} `json:"index"`
				}
				assert.NoError(t, json.Unmarshal(sc.Bytes(), &action))
				res := map[string]interface{}{"_id": action.Index.ID, "status": 201}
				if action.Index.ID == failID {
					res["status"] = 400
					res["error"] = map[string]interface{}{"type": "mapper_parsing_exception"}
				}
				items = append(items, item{Index: res})
			}
			line++
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"errors": true, "items": items})
	})

	stats, err := SyncListings(context.Background(), repo, client, zap.NewNop(), 2, "false")
	require.Error(t, err)
	assert.Equal(t, 2, bulkCalls)
	assert.Equal(t, SyncStats{Batches: 2, Synced: 2, Failed: 1}, stats)
}

func TestBuildBulkBody(t *testing.T) {
	body, docs, failed := BuildBulkBody([]listing.Listing{sampleListing("a")}, zap.NewNop())
	assert.Equal(t, 1, docs)
	assert.Zero(t, failed)
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"_index":"listings"`)
}
