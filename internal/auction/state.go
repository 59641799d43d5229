// File: internal/auction/state.go
package auction

import (
	"fmt"
	"time"

	"satonic/internal/backend"
)

// CurrentBid is the highest bid so far, or the start price when nobody has bid.
func CurrentBid(a backend.Auction) int64 {
	if a.CurrentBid != nil && *a.CurrentBid != 0 {
		return *a.CurrentBid
	}
	return a.StartPrice
}

func IsEnded(a backend.Auction, now time.Time) bool {
	return a.EndTime.Before(now)
}

func StatusLabel(a backend.Auction, now time.Time) string {
	if IsEnded(a, now) {
		return "Ended"
	}
	return "Active"
}

// TimeLeft is the detail-page countdown, in whole hours.
func TimeLeft(a backend.Auction, now time.Time) string {
	if IsEnded(a, now) {
		return "Auction ended"
	}
	return fmt.Sprintf("%dh remaining", hoursLeft(a, now))
}

// ShortTimeLeft is the card form of TimeLeft.
func ShortTimeLeft(a backend.Auction, now time.Time) string {
	if IsEnded(a, now) {
		return "Ended"
	}
	return fmt.Sprintf("%dh", hoursLeft(a, now))
}

func hoursLeft(a backend.Auction, now time.Time) int64 {
	return int64(a.EndTime.Sub(now) / time.Hour)
}

// SellerShort abbreviates a seller address for display.
func SellerShort(addr string) string {
	if len(addr) <= 8 {
		return addr + "..."
	}
	return addr[:8] + "..."
}

// View is the display projection of an auction used by the CLI and gateway.
type View struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Seller     string `json:"seller"`
	CurrentBid int64  `json:"current_bid"`
	CurrentBTC string `json:"current_btc"`
	Status     string `json:"status"`
	TimeLeft   string `json:"time_left"`
	BidCount   int    `json:"bid_count"`
}

func NewView(a backend.Auction, now time.Time) View {
	current := CurrentBid(a)
	return View{
		ID:         a.AuctionID,
		Title:      a.Title,
		Seller:     SellerShort(a.SellerAddress),
		CurrentBid: current,
		CurrentBTC: FormatBTC(current),
		Status:     StatusLabel(a, now),
		TimeLeft:   TimeLeft(a, now),
		BidCount:   len(a.Bids),
	}
}

// NFTTitle prefers the NFT's own title, then the auction title, then the NFT id.
func NFTTitle(a backend.Auction, nft *backend.NFT) string {
	if nft != nil && nft.Title != "" {
		return nft.Title
	}
	if a.Title != "" {
		return a.Title
	}
	return "NFT #" + a.NFTID
}

func NFTDescription(a backend.Auction, nft *backend.NFT) string {
	if nft != nil && nft.Description != "" {
		return nft.Description
	}
	return a.Description
}

// NFTName is the heading for an NFT without an auction.
func NFTName(nft backend.NFT) string {
	if nft.Title != "" {
		return nft.Title
	}
	id := nft.InscriptionID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Inscription #" + id
}

// InscriptionURL links to the ordinals.com page of an inscription.
func InscriptionURL(inscriptionID string) string {
	return "https://ordinals.com/inscription/" + inscriptionID
}
