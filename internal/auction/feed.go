// File: internal/auction/feed.go
package auction

import (
	"context"
	"time"

	"satonic/internal/backend"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	feedPageSize   = 10
	feedMaxRetries = 2

	// FallbackBanner is shown when the featured list falls back to sample data.
	FallbackBanner = "Using sample data - API connection failed"

	sampleSeller = "tb1qnardpcz8ry0xkt4n6w6jnve8vqw2tt7uw24mlg"
)

// ListAPI lists auctions.
type ListAPI interface {
	ListAuctions(ctx context.Context, p backend.ListAuctionsParams) (*backend.AuctionPage, error)
}

// newRetryBackOff waits 1s, 2s, 4s... between attempts and stops after
// retries retries or when ctx is done.
func newRetryBackOff(ctx context.Context, retries int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = time.Second
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Retry calls fn up to retries+1 times. A nil timer uses real time.
func Retry(ctx context.Context, name string, retries int, timer backoff.Timer, logger *zap.Logger, fn func() error) error {
	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		logger.Warn("Call failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return backoff.RetryNotifyWithTimer(fn, newRetryBackOff(ctx, retries), notify, timer)
}

// FeedResult is the featured auction list plus an optional banner.
type FeedResult struct {
	Auctions []backend.Auction `json:"auctions"`
	Banner   string            `json:"banner,omitempty"`
	Fallback bool              `json:"fallback"`
}

// Feed loads the home-page featured auctions.
type Feed struct {
	api    ListAPI
	logger *zap.Logger
	timer  backoff.Timer
	now    func() time.Time
}

func NewFeed(api ListAPI, logger *zap.Logger) *Feed {
	return &Feed{api: api, logger: logger.Named("feed"), now: time.Now}
}

// Featured returns the first page of active auctions, or sample auctions
// after the retries are exhausted. It only errors when ctx is cancelled.
func (f *Feed) Featured(ctx context.Context) (*FeedResult, error) {
	var page *backend.AuctionPage
	err := Retry(ctx, "list_auctions", feedMaxRetries, f.timer, f.logger, func() error {
		var err error
		page, err = f.api.ListAuctions(ctx, backend.ListAuctionsParams{
			Status:   string(backend.AuctionActive),
			Page:     1,
			PageSize: feedPageSize,
		})
		return err
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		f.logger.Error("Failed to load featured auctions, using sample data", zap.Error(err))
		return &FeedResult{
			Auctions: SampleAuctions(f.now()),
			Banner:   FallbackBanner,
			Fallback: true,
		}, nil
	}
	auctions := page.Auctions
	if auctions == nil {
		auctions = []backend.Auction{}
	}
	return &FeedResult{Auctions: auctions}, nil
}

// SampleAuctions is the static list shown when the backend is unreachable.
func SampleAuctions(now time.Time) []backend.Auction {
	bid := func(v int64) *int64 { return &v }
	return []backend.Auction{
		{
			AuctionID:     "sample-1",
			Title:         "Bitcoin Abstract #01",
			SellerAddress: sampleSeller,
			StartPrice:    1_000_000,
			CurrentBid:    bid(1_500_000),
			StartTime:     now.Add(-24 * time.Hour),
			EndTime:       now.Add(48 * time.Hour),
			Status:        backend.AuctionActive,
			CreatedAt:     now.Add(-24 * time.Hour),
			UpdatedAt:     now,
		},
		{
			AuctionID:     "sample-2",
			Title:         "Satoshi Legacy",
			SellerAddress: sampleSeller,
			StartPrice:    5_000_000,
			CurrentBid:    bid(7_500_000),
			StartTime:     now.Add(-12 * time.Hour),
			EndTime:       now.Add(24 * time.Hour),
			Status:        backend.AuctionActive,
			CreatedAt:     now.Add(-12 * time.Hour),
			UpdatedAt:     now,
		},
		{
			AuctionID:     "sample-3",
			Title:         "Ordinal #123",
			SellerAddress: sampleSeller,
			StartPrice:    2_000_000,
			CurrentBid:    bid(3_000_000),
			StartTime:     now.Add(-6 * time.Hour),
			EndTime:       now.Add(72 * time.Hour),
			Status:        backend.AuctionActive,
			CreatedAt:     now.Add(-6 * time.Hour),
			UpdatedAt:     now,
		},
	}
}
