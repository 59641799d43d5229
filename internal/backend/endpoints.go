// File: internal/backend/endpoints.go
package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// --- NFTs ---

// GetUserNFTs lists the authenticated user's NFTs.
func (c *Client) GetUserNFTs(ctx context.Context, network string) (*NFTPage, error) {
	endpoint := "/nfts"
	if network != "" {
		endpoint += "?network=" + url.QueryEscape(network)
	}
	var page NFTPage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetNFTs lists the NFTs held by an address.
func (c *Client) GetNFTs(ctx context.Context, address, network string) (*NFTPage, error) {
	endpoint := "/nfts/address/?address=" + url.QueryEscape(address)
	if network != "" {
		endpoint += "&network=" + url.QueryEscape(network)
	}
	var page NFTPage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetNFT(ctx context.Context, id string) (*NFT, error) {
	var nft NFT
	if err := c.do(ctx, http.MethodGet, "/nfts/"+url.PathEscape(id), nil, &nft); err != nil {
		return nil, err
	}
	return &nft, nil
}

// ValidateNFT asks the backend whether an inscription can be imported.
func (c *Client) ValidateNFT(ctx context.Context, req ImportNFTRequest) (*ValidateNFTResponse, error) {
	var res ValidateNFTResponse
	if err := c.do(ctx, http.MethodPost, "/nfts/validate", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ImportNFT(ctx context.Context, req ImportNFTRequest) (*NFT, error) {
	var nft NFT
	if err := c.do(ctx, http.MethodPost, "/nfts/import", req, &nft); err != nil {
		return nil, err
	}
	return &nft, nil
}

// --- Auctions ---

// ListAuctions queries GET /auctions, encoding only the parameters that are set.
func (c *Client) ListAuctions(ctx context.Context, p ListAuctionsParams) (*AuctionPage, error) {
	q := url.Values{}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.SellerID != "" {
		q.Set("seller_id", p.SellerID)
	}
	if p.BidderID != "" {
		q.Set("bidder_id", p.BidderID)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	endpoint := "/auctions"
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var page AuctionPage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetAuction(ctx context.Context, id string) (*Auction, error) {
	var a Auction
	if err := c.do(ctx, http.MethodGet, "/auctions/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*Auction, error) {
	var a Auction
	if err := c.do(ctx, http.MethodPost, "/auctions/create", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FinalizeAuction submits the seller's settlement signature.
func (c *Client) FinalizeAuction(ctx context.Context, id, signature string) (*Auction, error) {
	body := struct {
		AuctionID string `json:"auction_id"`
		Signature string `json:"signature"`
	}{AuctionID: id, Signature: signature}

	var a Auction
	if err := c.do(ctx, http.MethodPost, "/auctions/"+url.PathEscape(id)+"/finalize", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) PlaceBid(ctx context.Context, req BidRequest) (*Bid, error) {
	var b Bid
	if err := c.do(ctx, http.MethodPost, "/auctions/"+url.PathEscape(req.AuctionID)+"/bids", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// --- Onchain escrow ---

func (c *Client) CreateMultisig(ctx context.Context) (*MultisigResponse, error) {
	var res MultisigResponse
	if err := c.do(ctx, http.MethodGet, "/onchain/create-multisig", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CreateEscrow(ctx context.Context, req CreateEscrowRequest) (*CreateEscrowResponse, error) {
	var res CreateEscrowResponse
	if err := c.do(ctx, http.MethodPost, "/onchain/create-escrow", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FinalizeEscrow broadcasts the signed escrow PSBT.
func (c *Client) FinalizeEscrow(ctx context.Context, req FinalizeEscrowRequest) (*FinalizeEscrowResponse, error) {
	var res FinalizeEscrowResponse
	if err := c.do(ctx, http.MethodPost, "/onchain/finalize-escrow", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Users ---

func (c *Client) GetProfile(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UserProfileUpdateRequest) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/users/profile", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GetWalletBalance(ctx context.Context, address string) (*WalletBalanceResponse, error) {
	var res WalletBalanceResponse
	if err := c.do(ctx, http.MethodGet, "/wallets/"+url.PathEscape(address), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Auth ---

// WalletLogin exchanges a signed login message for a session token.
// Empty parameters are rejected before any request is sent.
func (c *Client) WalletLogin(ctx context.Context, address, signature, message string) (*AuthToken, error) {
	if address == "" || signature == "" || message == "" {
		return nil, ErrMissingAuthParams
	}
	var tok AuthToken
	err := c.do(ctx, http.MethodPost, "/auth/wallet-login", WalletLoginRequest{
		Address:   address,
		Signature: signature,
		Message:   message,
	}, &tok)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tok.Token) == "" {
		c.logger.Error("Wallet login succeeded without a token")
		return nil, ErrInvalidTokenData
	}
	return &tok, nil
}

func (c *Client) EmailLogin(ctx context.Context, email string) (*MessageResponse, error) {
	var res MessageResponse
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/auth/email-login", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) VerifyEmailCode(ctx context.Context, email, code string) (*AuthToken, error) {
	var tok AuthToken
	body := map[string]string{"email": email, "code": code}
	if err := c.do(ctx, http.MethodPost, "/auth/verify-code", body, &tok); err != nil {
		return nil, err
	}
	if strings.TrimSpace(tok.Token) == "" {
		return nil, ErrInvalidTokenData
	}
	return &tok, nil
}

func (c *Client) LinkWallet(ctx context.Context, address, signature, message string) (*MessageResponse, error) {
	var res MessageResponse
	body := WalletLoginRequest{Address: address, Signature: signature, Message: message}
	if err := c.do(ctx, http.MethodPost, "/auth/link-wallet", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) LinkEmail(ctx context.Context, email string) (*MessageResponse, error) {
	var res MessageResponse
	if err := c.do(ctx, http.MethodPost, "/auth/link-email", map[string]string{"email": email}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- System ---

// HealthCheck reports whether the backend is reachable.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var res HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
