// File: internal/auction/create.go
package auction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"satonic/internal/backend"
	"satonic/internal/wallet"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/zap"
)

// Creation steps, in the order they run.
const (
	StepValidate      = "validate"
	StepMultisig      = "multisig"
	StepEscrow        = "escrow"
	StepSign          = "sign"
	StepFinalize      = "finalize_escrow"
	StepCreateAuction = "create_auction"
)

var (
	ErrInvalidStartingBid = errors.New("Please enter a valid starting bid")
	ErrInvalidDuration    = errors.New("Duration must be between 1 and 168 hours")
	ErrInvalidUTXO        = errors.New("Inscription UTXO must be in txid:vout form")
	ErrMissingNFT         = errors.New("Please select an NFT to auction")
)

// StepError reports which creation step failed. Steps before it have
// already taken effect on the backend or the chain.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// CreateInput is what the seller supplies to list an inscription.
type CreateInput struct {
	NFTID           string
	InscriptionUTXO string
	Title           string
	Description     string
	StartingBidBTC  string
	DurationHours   int
	SellerAddress   string
}

// CreateResult carries the escrow transaction and the new auction.
type CreateResult struct {
	Auction    *backend.Auction
	EscrowTxID string
	SignedPSBT string
}

// CreatorAPI is the backend surface auction creation needs.
type CreatorAPI interface {
	CreateMultisig(ctx context.Context) (*backend.MultisigResponse, error)
	CreateEscrow(ctx context.Context, req backend.CreateEscrowRequest) (*backend.CreateEscrowResponse, error)
	FinalizeEscrow(ctx context.Context, req backend.FinalizeEscrowRequest) (*backend.FinalizeEscrowResponse, error)
	CreateAuction(ctx context.Context, req backend.CreateAuctionRequest) (*backend.Auction, error)
}

// Creator escrows an inscription and opens an auction for it.
type Creator struct {
	api         CreatorAPI
	provider    wallet.Provider
	maxDuration int
	logger      *zap.Logger
	now         func() time.Time
}

func NewCreator(api CreatorAPI, provider wallet.Provider, maxDurationHours int, logger *zap.Logger) *Creator {
	if maxDurationHours <= 0 {
		maxDurationHours = 168
	}
	return &Creator{
		api:         api,
		provider:    provider,
		maxDuration: maxDurationHours,
		logger:      logger.Named("auction_creator"),
		now:         time.Now,
	}
}

// ParseOutpoint splits "txid:vout" and checks the txid is a 32-byte hash.
func ParseOutpoint(s string) (string, uint32, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", 0, ErrInvalidUTXO
	}
	txid, voutStr := s[:i], s[i+1:]
	if _, err := chainhash.NewHashFromStr(txid); err != nil || len(txid) != chainhash.MaxHashStringSize {
		return "", 0, ErrInvalidUTXO
	}
	vout, err := strconv.ParseUint(voutStr, 10, 32)
	if err != nil {
		return "", 0, ErrInvalidUTXO
	}
	return strings.ToLower(txid), uint32(vout), nil
}

func fail(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// Create runs multisig, escrow, wallet signing, escrow broadcast and finally
// the auction record. There is no rollback: a failure after the escrow
// broadcast leaves the inscription in escrow and the StepError says so.
func (c *Creator) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	startPrice, err := ParseBTC(in.StartingBidBTC)
	if err != nil {
		return nil, fail(StepValidate, ErrInvalidStartingBid)
	}
	if in.DurationHours < 1 || in.DurationHours > c.maxDuration {
		return nil, fail(StepValidate, ErrInvalidDuration)
	}
	if strings.TrimSpace(in.NFTID) == "" {
		return nil, fail(StepValidate, ErrMissingNFT)
	}
	txid, vout, err := ParseOutpoint(strings.TrimSpace(in.InscriptionUTXO))
	if err != nil {
		return nil, fail(StepValidate, err)
	}
	if c.provider == nil {
		return nil, fail(StepValidate, wallet.ErrNotInstalled)
	}

	seller := in.SellerAddress
	if seller == "" {
		seller = wallet.CurrentAddress(ctx, c.provider)
	}
	if seller == "" {
		return nil, fail(StepValidate, wallet.ErrWalletNotConnected)
	}
	pubkey, err := c.provider.GetPublicKey(ctx)
	if err != nil {
		c.logger.Warn("Could not read seller public key", zap.Error(err))
	}

	ms, err := c.api.CreateMultisig(ctx)
	if err != nil {
		return nil, fail(StepMultisig, err)
	}
	c.logger.Info("Multisig created", zap.String("address", ms.Address))

	escrow, err := c.api.CreateEscrow(ctx, backend.CreateEscrowRequest{
		InscriptionUTXO: txid,
		Vout:            vout,
		MultisigAddress: ms.Address,
		MultisigScript:  ms.Descriptor,
	})
	if err != nil {
		return nil, fail(StepEscrow, err)
	}

	unsigned, err := DecodePSBT(escrow.PSBT)
	if err != nil {
		return nil, fail(StepEscrow, fmt.Errorf("backend returned malformed psbt: %w", err))
	}
	unsignedHex, err := EncodePSBTHex(unsigned)
	if err != nil {
		return nil, fail(StepEscrow, err)
	}

	signedHex, err := c.provider.SignPsbt(ctx, unsignedHex)
	if err != nil {
		return nil, fail(StepSign, err)
	}
	signed, err := DecodePSBT(signedHex)
	if err != nil {
		return nil, fail(StepSign, fmt.Errorf("wallet returned malformed psbt: %w", err))
	}
	signedB64, err := signed.B64Encode()
	if err != nil {
		return nil, fail(StepSign, err)
	}

	fin, err := c.api.FinalizeEscrow(ctx, backend.FinalizeEscrowRequest{SignedPSBT: signedB64})
	if err != nil {
		return nil, fail(StepFinalize, err)
	}
	c.logger.Info("Escrow broadcast", zap.String("txid", fin.TxID))

	start := c.now().UTC()
	a, err := c.api.CreateAuction(ctx, backend.CreateAuctionRequest{
		NFTID:         in.NFTID,
		SellerAddress: seller,
		SellerPubkey:  pubkey,
		Title:         in.Title,
		Description:   in.Description,
		StartPrice:    startPrice,
		StartTime:     start,
		EndTime:       start.Add(time.Duration(in.DurationHours) * time.Hour),
		PSBT:          signedB64,
	})
	if err != nil {
		c.logger.Error("Auction record failed after escrow broadcast",
			zap.String("escrow_txid", fin.TxID), zap.Error(err))
		return nil, fail(StepCreateAuction, err)
	}

	return &CreateResult{Auction: a, EscrowTxID: fin.TxID, SignedPSBT: signedB64}, nil
}

// DecodePSBT accepts a base64 or hex encoded PSBT.
func DecodePSBT(s string) (*psbt.Packet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty psbt")
	}
	if raw, err := hex.DecodeString(s); err == nil {
		return psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return nil, fmt.Errorf("psbt is neither hex nor base64")
	}
	return psbt.NewFromRawBytes(strings.NewReader(s), true)
}

// EncodePSBTHex serializes a packet in the hex form the wallet signs.
func EncodePSBTHex(p *psbt.Packet) (string, error) {
	var buf bytes.Buffer
	if err := p.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
