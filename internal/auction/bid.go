// File: internal/auction/bid.go
package auction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"satonic/internal/backend"
	"satonic/internal/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 100_000_000

var (
	ErrInvalidBidAmount = errors.New("Please enter a valid bid amount")
	ErrBidTooLow        = errors.New("Bid must be higher than the current bid")
	ErrAuctionEnded     = errors.New("Auction has ended")
)

var (
	satsPerBTC = decimal.NewFromInt(SatsPerBTC)
	maxSats    = decimal.NewFromInt(math.MaxInt64)
)

// ParseBTC converts a decimal BTC string to satoshis, rounding down.
func ParseBTC(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidBidAmount
	}
	btc, err := decimal.NewFromString(s)
	if err != nil || !btc.IsPositive() {
		return 0, ErrInvalidBidAmount
	}
	sats := btc.Mul(satsPerBTC).Floor()
	if !sats.IsPositive() || sats.GreaterThan(maxSats) {
		return 0, ErrInvalidBidAmount
	}
	return sats.IntPart(), nil
}

// FormatBTC renders satoshis as a BTC amount with trailing zeros removed.
func FormatBTC(sats int64) string {
	return decimal.NewFromInt(sats).Div(satsPerBTC).String()
}

// ValidateBid checks a bid against the auction as last fetched.
func ValidateBid(a backend.Auction, sats int64, now time.Time) error {
	if IsEnded(a, now) {
		return ErrAuctionEnded
	}
	if sats <= CurrentBid(a) {
		return ErrBidTooLow
	}
	return nil
}

// BidAPI is the backend surface the bidder uses.
type BidAPI interface {
	GetAuction(ctx context.Context, id string) (*backend.Auction, error)
	PlaceBid(ctx context.Context, req backend.BidRequest) (*backend.Bid, error)
}

// Bidder validates bids locally before they reach the backend.
type Bidder struct {
	api    BidAPI
	logger *zap.Logger
	now    func() time.Time
}

func NewBidder(api BidAPI, logger *zap.Logger) *Bidder {
	return &Bidder{api: api, logger: logger.Named("bidder"), now: time.Now}
}

// PlaceBid refreshes the auction, validates amountBTC and submits the bid.
func (b *Bidder) PlaceBid(ctx context.Context, auctionID, amountBTC, walletAddress string) (*backend.Bid, error) {
	if strings.TrimSpace(walletAddress) == "" {
		return nil, wallet.ErrWalletNotConnected
	}
	sats, err := ParseBTC(amountBTC)
	if err != nil {
		return nil, err
	}

	a, err := b.api.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("fetch auction %s: %w", auctionID, err)
	}
	if err := ValidateBid(*a, sats, b.now()); err != nil {
		b.logger.Debug("Bid rejected locally",
			zap.String("auction_id", auctionID),
			zap.Int64("amount", sats),
			zap.Int64("current", CurrentBid(*a)),
			zap.Error(err))
		return nil, err
	}

	bid, err := b.api.PlaceBid(ctx, backend.BidRequest{
		AuctionID:     auctionID,
		Amount:        sats,
		WalletAddress: walletAddress,
	})
	if err != nil {
		return nil, err
	}
	b.logger.Info("Bid placed", zap.String("auction_id", auctionID), zap.Int64("amount", sats))
	return bid, nil
}
