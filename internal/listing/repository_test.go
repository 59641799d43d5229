package listing

import (
	"context"
	"net/http"
	"testing"
	"time"

	"satonic/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Listing{}))
	return db
}

func seedListing(t *testing.T, repo Repository, title, inscriptionID string, createdAt time.Time, hours int64) *Listing {
	t.Helper()
	l := &Listing{
		Title:             title,
		Slug:              title,
		InscriptionID:     inscriptionID,
		StartingBid:       1000,
		IncrementInterval: 100,
		Duration:          hours,
		Status:            StatusActive,
	}
	l.CreatedAt = createdAt
	l.UpdatedAt = createdAt
	l.EndsAt = l.ComputeEndsAt()
	require.NoError(t, repo.Create(context.Background(), l))
	return l
}

func TestRepository_CreateAssignsID(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	l := seedListing(t, repo, "first", "aaai0", fixedNow, 24)
	assert.NotEqual(t, uuid.Nil, l.ID)

	found, err := repo.FindByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, "aaai0", found.InscriptionID)
}

func TestRepository_DuplicateInscriptionIsConflict(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	seedListing(t, repo, "first", "aaai0", fixedNow, 24)

	dup := &Listing{Title: "again", Slug: "again", InscriptionID: "aaai0", Duration: 1, Status: StatusActive}
	dup.CreatedAt = fixedNow
	dup.UpdatedAt = fixedNow
	dup.EndsAt = dup.ComputeEndsAt()
	err := repo.Create(context.Background(), dup)

	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestRepository_FindByIDNotFound(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	_, err := repo.FindByID(context.Background(), uuid.New())

	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestRepository_FindAllNewestFirst(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	seedListing(t, repo, "old", "aaai0", fixedNow.Add(-2*time.Hour), 24)
	seedListing(t, repo, "new", "bbbi0", fixedNow, 24)
	seedListing(t, repo, "mid", "ccci0", fixedNow.Add(-time.Hour), 24)

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].Title)
	assert.Equal(t, "mid", all[1].Title)
	assert.Equal(t, "old", all[2].Title)
}

func TestRepository_FindByIDsKeepsOrder(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	a := seedListing(t, repo, "a", "aaai0", fixedNow, 24)
	b := seedListing(t, repo, "b", "bbbi0", fixedNow, 24)

	got, err := repo.FindByIDs(context.Background(), []uuid.UUID{b.ID, uuid.New(), a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, "a", got[1].Title)
}

func TestRepository_Search(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	seedListing(t, repo, "Rare Pepe", "aaai0", fixedNow, 24)
	seedListing(t, repo, "Bitcoin Rock", "bbbi0", fixedNow, 24)

	got, err := repo.Search(context.Background(), ListingSearchQuery{SearchTerm: "pepe"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rare Pepe", got[0].Title)

	got, err = repo.Search(context.Background(), ListingSearchQuery{SearchTerm: "bbb"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bitcoin Rock", got[0].Title)

	got, err = repo.Search(context.Background(), ListingSearchQuery{Status: string(StatusEnded)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRepository_ExpiryAndStatus(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	expired := seedListing(t, repo, "short", "aaai0", fixedNow.Add(-3*time.Hour), 2)
	seedListing(t, repo, "long", "bbbi0", fixedNow.Add(-3*time.Hour), 24)

	got, err := repo.FindExpiredListings(context.Background(), fixedNow)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)

	require.NoError(t, repo.UpdateStatus(context.Background(), expired.ID, StatusEnded))
	got, err = repo.FindExpiredListings(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, got)

	err = repo.UpdateStatus(context.Background(), uuid.New(), StatusEnded)
	assert.Error(t, err)
}

func TestRepository_FindAllForSyncPages(t *testing.T) {
	repo := NewGORMRepository(newTestDB(t))
	for i, id := range []string{"aaai0", "bbbi0", "ccci0"} {
		seedListing(t, repo, id, id, fixedNow.Add(time.Duration(i)*time.Minute), 24)
	}

	page, err := repo.FindAllForSync(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, "aaai0", page[0].InscriptionID)

	page, err = repo.FindAllForSync(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "ccci0", page[0].InscriptionID)
}

func TestRepository_FindPageAndSlug(t *testing.T) {
	ctx := context.Background()
	repo := NewGORMRepository(newTestDB(t))
	for i, title := range []string{"one", "two", "three"} {
		seedListing(t, repo, title, title+"i0", fixedNow.Add(time.Duration(i)*time.Minute), 24)
	}
	ended := seedListing(t, repo, "four", "fouri0", fixedNow.Add(time.Hour), 24)
	require.NoError(t, repo.UpdateStatus(ctx, ended.ID, StatusEnded))

	page, total, err := repo.FindPage(ctx, "", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, page, 2)
	assert.Equal(t, "four", page[0].Title)
	assert.Equal(t, "three", page[1].Title)

	page, total, err = repo.FindPage(ctx, StatusActive, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "one", page[0].Title)

	found, err := repo.FindBySlug(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, "twoi0", found.InscriptionID)

	_, err = repo.FindBySlug(ctx, "missing")
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
