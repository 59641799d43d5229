// File: internal/wallet/unisat.go
package wallet

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc/v3"
	"go.uber.org/zap"
)

// unisatRejectCode is the EIP-1193 style code the wallet returns when the
// user dismisses a prompt.
const unisatRejectCode = 4001

// UnisatBridge forwards wallet calls as JSON-RPC to a local bridge process
// that holds the Unisat session.
type UnisatBridge struct {
	url       string
	rpcClient jsonrpc.RPCClient
	logger    *zap.Logger
}

// Detect returns the configured wallet provider, or ErrNotInstalled when no
// bridge URL is set.
func Detect(bridgeURL, token string, logger *zap.Logger) (Provider, error) {
	if strings.TrimSpace(bridgeURL) == "" {
		return nil, ErrNotInstalled
	}
	return NewUnisatBridge(bridgeURL, token, logger), nil
}

// NewUnisatBridge builds a bridge client. A non-empty token is sent as a bearer header.
func NewUnisatBridge(url, token string, logger *zap.Logger) *UnisatBridge {
	opts := &jsonrpc.RPCClientOpts{
		// Signing prompts wait on the user.
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	}
	if token != "" {
		opts.CustomHeaders = map[string]string{
			"Authorization": "Bearer " + token,
		}
	}
	return &UnisatBridge{
		url:       url,
		rpcClient: jsonrpc.NewClientWithOpts(url, opts),
		logger:    logger.Named("unisat"),
	}
}

func (u *UnisatBridge) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.logger.Debug("Wallet call", zap.String("method", method))
	err := u.rpcClient.CallFor(ctx, out, method, params...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == unisatRejectCode {
		return errors.Wrap(ErrUserRejected, method)
	}
	if strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "no such host") {
		u.logger.Warn("Wallet bridge unreachable", zap.String("url", u.url), zap.Error(err))
		return ErrNotInstalled
	}
	return errors.Wrapf(err, "wallet %s", method)
}

func (u *UnisatBridge) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := u.call(ctx, &accounts, "requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (u *UnisatBridge) GetAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := u.call(ctx, &accounts, "getAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (u *UnisatBridge) GetBalance(ctx context.Context) (*Balance, error) {
	var b Balance
	if err := u.call(ctx, &b, "getBalance"); err != nil {
		return nil, err
	}
	return &b, nil
}

func (u *UnisatBridge) GetInscriptions(ctx context.Context, cursor, size int) (*InscriptionPage, error) {
	var page InscriptionPage
	if err := u.call(ctx, &page, "getInscriptions", cursor, size); err != nil {
		return nil, err
	}
	return &page, nil
}

// SignMessage signs with the wallet's default ECDSA scheme.
func (u *UnisatBridge) SignMessage(ctx context.Context, message string) (string, error) {
	var sig string
	if err := u.call(ctx, &sig, "signMessage", message, "ecdsa"); err != nil {
		return "", err
	}
	return sig, nil
}

func (u *UnisatBridge) SignPsbt(ctx context.Context, psbtHex string) (string, error) {
	var signed string
	if err := u.call(ctx, &signed, "signPsbt", psbtHex); err != nil {
		return "", err
	}
	return signed, nil
}

// SwitchNetwork prefers switchChain, which knows testnet4, and falls back to switchNetwork.
func (u *UnisatBridge) SwitchNetwork(ctx context.Context, network Network) error {
	var ignored interface{}
	err := u.call(ctx, &ignored, "switchChain", network.ChainEnum())
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotInstalled) || errors.Is(err, ErrUserRejected) {
		return err
	}
	u.logger.Debug("switchChain failed, trying switchNetwork", zap.Error(err))
	return u.call(ctx, &ignored, "switchNetwork", network.UnisatName())
}

func (u *UnisatBridge) GetNetwork(ctx context.Context) (Network, error) {
	var name string
	if err := u.call(ctx, &name, "getNetwork"); err != nil {
		return "", err
	}
	return ParseNetwork(name)
}

func (u *UnisatBridge) GetPublicKey(ctx context.Context) (string, error) {
	var pub string
	if err := u.call(ctx, &pub, "getPublicKey"); err != nil {
		return "", err
	}
	return pub, nil
}

func (u *UnisatBridge) Disconnect(ctx context.Context) error {
	var ignored interface{}
	return u.call(ctx, &ignored, "disconnect")
}
