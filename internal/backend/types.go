// File: internal/backend/types.go
package backend

import (
	"encoding/json"
	"time"
)

// AuctionStatus is the lifecycle state reported by the marketplace backend.
type AuctionStatus string

const (
	AuctionDraft     AuctionStatus = "draft"
	AuctionActive    AuctionStatus = "active"
	AuctionCompleted AuctionStatus = "completed"
	AuctionCancelled AuctionStatus = "cancelled"
)

type User struct {
	ID      string       `json:"id"`
	Wallets []Wallet     `json:"wallets,omitempty"`
	Emails  []Email      `json:"emails,omitempty"`
	Profile *UserProfile `json:"profile,omitempty"`
}

// PrimaryWallet returns the first linked wallet address, or "".
func (u *User) PrimaryWallet() string {
	if u == nil || len(u.Wallets) == 0 {
		return ""
	}
	return u.Wallets[0].Address
}

type UserProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Wallet struct {
	ID                        string    `json:"id"`
	UserID                    string    `json:"user_id"`
	Address                   string    `json:"address"`
	Type                      string    `json:"type"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
	BTCSatoshi                int64     `json:"btc_satoshi"`
	BTCPendingSatoshi         int64     `json:"btc_pending_satoshi"`
	BTCUTXOCount              int       `json:"btc_utxo_count"`
	InscriptionSatoshi        int64     `json:"inscription_satoshi"`
	InscriptionPendingSatoshi int64     `json:"inscription_pending_satoshi"`
	InscriptionUTXOCount      int       `json:"inscription_utxo_count"`
	Satoshi                   int64     `json:"satoshi"`
	PendingSatoshi            int64     `json:"pending_satoshi"`
	UTXOCount                 int       `json:"utxo_count"`
}

type Email struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Address   string    `json:"address"`
	Verified  bool      `json:"verified"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NFT struct {
	ID                string          `json:"id"`
	WalletID          string          `json:"wallet_id"`
	TokenID           string          `json:"token_id"`
	InscriptionID     string          `json:"inscription_id"`
	// InscriptionNumber is only set by some backend versions.
	InscriptionNumber *int64          `json:"inscription_number,omitempty"`
	ContentType       string          `json:"content_type,omitempty"`
	Collection        string          `json:"collection"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	ImageURL          string          `json:"image_url"`
	ContentURL        string          `json:"content_url"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	AuctionID         *string         `json:"auction_id,omitempty"`
	WalletAddress     string          `json:"wallet_address,omitempty"`
	Network           string          `json:"network,omitempty"`
}

// Auction amounts are in satoshis.
type Auction struct {
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	AuctionID       string        `json:"auction_id"`
	NFTID           string        `json:"nft_id"`
	SellerAddress   string        `json:"seller_address"`
	StartPrice      int64         `json:"start_price"`
	CurrentBid      *int64        `json:"current_bid,omitempty"`
	CurrentBidderID string        `json:"current_bidder_id,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Status          AuctionStatus `json:"status"`
	PSBT            string        `json:"psbt,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Bids            []Bid         `json:"bids,omitempty"`
}

type Bid struct {
	ID            string    `json:"id"`
	AuctionID     string    `json:"auction_id"`
	BidderID      string    `json:"bidder_id"`
	WalletAddress string    `json:"wallet_address"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
	Accepted      bool      `json:"accepted"`
	Signature     string    `json:"signature,omitempty"`
}

type BidRequest struct {
	AuctionID     string `json:"auction_id"`
	Amount        int64  `json:"amount"`
	WalletAddress string `json:"wallet_address"`
}

type CreateAuctionRequest struct {
	NFTID         string    `json:"nft_id"`
	SellerAddress string    `json:"seller_address,omitempty"`
	SellerPubkey  string    `json:"seller_pubkey,omitempty"`
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	StartPrice    int64     `json:"start_price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	PSBT          string    `json:"psbt,omitempty"`
}

type ImportNFTRequest struct {
	WalletAddress string          `json:"wallet_address"`
	InscriptionID string          `json:"inscription_id"`
	Collection    string          `json:"collection,omitempty"`
	Title         string          `json:"title,omitempty"`
	Description   string          `json:"description,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

type MultisigResponse struct {
	Descriptor string `json:"descriptor"`
	Address    string `json:"address"`
}

type CreateEscrowRequest struct {
	InscriptionUTXO string `json:"inscription_utxo"`
	Vout            uint32 `json:"vout"`
	MultisigAddress string `json:"multisig_address"`
	MultisigScript  string `json:"multisig_script"`
}

type CreateEscrowResponse struct {
	PSBT string `json:"psbt"`
}

type FinalizeEscrowRequest struct {
	SignedPSBT string `json:"signed_psbt"`
}

type FinalizeEscrowResponse struct {
	TxID string `json:"txid"`
}

// WalletBalanceResponse uses camelCase keys, unlike the rest of the API.
type WalletBalanceResponse struct {
	Satoshi                   int64 `json:"satoshi,omitempty"`
	PendingSatoshi            int64 `json:"pendingSatoshi,omitempty"`
	UTXOCount                 int   `json:"utxoCount,omitempty"`
	BTCSatoshi                int64 `json:"btcSatoshi,omitempty"`
	BTCPendingSatoshi         int64 `json:"btcPendingSatoshi,omitempty"`
	BTCUTXOCount              int   `json:"btcUtxoCount,omitempty"`
	InscriptionSatoshi        int64 `json:"inscriptionSatoshi,omitempty"`
	InscriptionPendingSatoshi int64 `json:"inscriptionPendingSatoshi,omitempty"`
	InscriptionUTXOCount      int   `json:"inscriptionUtxoCount,omitempty"`
}

type UserProfileUpdateRequest struct {
	Username  *string `json:"username,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type WalletLoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// AuthToken is returned by wallet-login and verify-code.
type AuthToken struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      *User  `json:"user,omitempty"`
}

type NFTPage struct {
	NFTs       []NFT `json:"nfts"`
	TotalCount int   `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

type AuctionPage struct {
	Auctions   []Auction `json:"auctions"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}

type ValidateNFTResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	NFT     *NFT   `json:"nft,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// ListAuctionsParams filters GET /auctions. Zero values are omitted from the query.
type ListAuctionsParams struct {
	Status   string
	SellerID string
	BidderID string
	Page     int
	PageSize int
}
