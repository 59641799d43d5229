// File: internal/wallet/network.go
package wallet

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Network is a Bitcoin network as named by the marketplace.
type Network string

const (
	Mainnet  Network = "mainnet"
	Testnet  Network = "testnet"
	Testnet4 Network = "testnet4"
)

// ParseNetwork accepts marketplace and Unisat spellings.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "livenet", "main", "bitcoin_mainnet":
		return Mainnet, nil
	case "testnet", "testnet3", "bitcoin_testnet":
		return Testnet, nil
	case "testnet4", "bitcoin_testnet4":
		return Testnet4, nil
	}
	return "", fmt.Errorf("unknown network %q", s)
}

// UnisatName is the argument the wallet's switchNetwork expects.
func (n Network) UnisatName() string {
	if n == Mainnet {
		return "livenet"
	}
	return "testnet"
}

// ChainEnum is the argument the wallet's switchChain expects.
func (n Network) ChainEnum() string {
	switch n {
	case Mainnet:
		return "BITCOIN_MAINNET"
	case Testnet4:
		return "BITCOIN_TESTNET4"
	default:
		return "BITCOIN_TESTNET"
	}
}

// ChainParams maps the network to btcd parameters. testnet4 shares the
// testnet address encoding, so TestNet3Params serves for address checks.
func (n Network) ChainParams() *chaincfg.Params {
	if n == Mainnet {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

// ValidateAddress checks that addr decodes and belongs to network n.
func ValidateAddress(addr string, n Network) error {
	params := n.ChainParams()
	decoded, err := btcutil.DecodeAddress(strings.TrimSpace(addr), params)
	if err != nil {
		return fmt.Errorf("invalid %s address %q: %w", n, addr, err)
	}
	if !decoded.IsForNet(params) {
		return fmt.Errorf("address %q is not a %s address", addr, n)
	}
	return nil
}
