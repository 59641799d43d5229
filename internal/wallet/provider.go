// File: internal/wallet/provider.go
package wallet

import (
	"context"
	"errors"
)

var (
	ErrNotInstalled       = errors.New("Unisat wallet not installed")
	ErrNoAccounts         = errors.New("No wallet accounts found")
	ErrSignatureRejected  = errors.New("Wallet signature rejected")
	ErrUserRejected       = errors.New("request rejected in wallet")
	ErrAuthInProgress     = errors.New("wallet authentication already in progress")
	ErrAuthCooldown       = errors.New("wallet authentication attempted too soon after previous attempt")
	ErrWalletNotConnected = errors.New("Please connect your wallet")
)

// InstallURL is shown when no wallet provider can be reached.
const InstallURL = "https://unisat.io/download"

// Balance is the wallet balance in satoshis.
type Balance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
	Total       int64 `json:"total"`
}

type Inscription struct {
	InscriptionID      string `json:"inscriptionId"`
	InscriptionNumber  int64  `json:"inscriptionNumber"`
	Address            string `json:"address"`
	OutputValue        int64  `json:"outputValue"`
	Preview            string `json:"preview"`
	Content            string `json:"content"`
	ContentType        string `json:"contentType"`
	Timestamp          int64  `json:"timestamp"`
	GenesisTransaction string `json:"genesisTransaction"`
	Location           string `json:"location"`
	Output             string `json:"output"`
	Offset             int64  `json:"offset"`
}

type InscriptionPage struct {
	Total int           `json:"total"`
	List  []Inscription `json:"list"`
}

// Provider is the set of wallet extension calls the marketplace relies on.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	GetAccounts(ctx context.Context) ([]string, error)
	GetBalance(ctx context.Context) (*Balance, error)
	GetInscriptions(ctx context.Context, cursor, size int) (*InscriptionPage, error)
	SignMessage(ctx context.Context, message string) (string, error)
	SignPsbt(ctx context.Context, psbtHex string) (string, error)
	SwitchNetwork(ctx context.Context, network Network) error
	GetNetwork(ctx context.Context) (Network, error)
	GetPublicKey(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
}

// Connect asks the wallet for account access and returns the first address.
func Connect(ctx context.Context, p Provider) (string, error) {
	if p == nil {
		return "", ErrNotInstalled
	}
	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", ErrNoAccounts
	}
	return accounts[0], nil
}

// CurrentAddress returns the connected address without prompting, or "".
func CurrentAddress(ctx context.Context, p Provider) string {
	if p == nil {
		return ""
	}
	accounts, err := p.GetAccounts(ctx)
	if err != nil || len(accounts) == 0 {
		return ""
	}
	return accounts[0]
}
