// File: internal/wallet/authenticator.go
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"satonic/internal/backend"

	"go.uber.org/zap"
)

// AuthCooldown is the minimum gap between two sign-in attempts.
const AuthCooldown = 2 * time.Second

// LoginMessage is the text the wallet signs to prove address ownership.
func LoginMessage(address string) string {
	return "Sign this message to authenticate with Satonic: " + address
}

// SessionStore is the subset of session.Store the authenticator needs.
type SessionStore interface {
	IsAuthenticated() bool
	SetAuth(tok backend.AuthToken) error
}

// LoginAPI exchanges a signed message for a session token.
type LoginAPI interface {
	WalletLogin(ctx context.Context, address, signature, message string) (*backend.AuthToken, error)
}

// Authenticator runs wallet sign-in, allowing one attempt at a time and
// at most one attempt per cooldown window.
type Authenticator struct {
	provider Provider
	api      LoginAPI
	session  SessionStore
	network  Network
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.Mutex
	inProgress  bool
	lastAttempt time.Time
}

func NewAuthenticator(p Provider, api LoginAPI, session SessionStore, network Network, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		provider: p,
		api:      api,
		session:  session,
		network:  network,
		logger:   logger.Named("wallet_auth"),
		now:      time.Now,
	}
}

// EnsureAuthenticated signs in with the wallet unless a session is already live.
// It returns ErrAuthInProgress or ErrAuthCooldown when the attempt is skipped.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) error {
	if a.session.IsAuthenticated() {
		return nil
	}

	a.mu.Lock()
	if a.inProgress {
		a.mu.Unlock()
		a.logger.Debug("Authentication already in progress, skipping")
		return ErrAuthInProgress
	}
	now := a.now()
	if !a.lastAttempt.IsZero() && now.Sub(a.lastAttempt) < AuthCooldown {
		a.mu.Unlock()
		a.logger.Debug("Auth attempt too soon after previous attempt, skipping")
		return ErrAuthCooldown
	}
	a.inProgress = true
	a.lastAttempt = now
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inProgress = false
		a.mu.Unlock()
	}()

	return a.signIn(ctx)
}

func (a *Authenticator) signIn(ctx context.Context) error {
	if a.provider == nil {
		return ErrNotInstalled
	}

	// Network switching is best effort; the wallet may already be on the right chain.
	if err := a.provider.SwitchNetwork(ctx, a.network); err != nil {
		if errors.Is(err, ErrNotInstalled) {
			return err
		}
		a.logger.Warn("Network switch failed, continuing", zap.String("network", string(a.network)), zap.Error(err))
	}

	address, err := a.resolveAddress(ctx)
	if err != nil {
		return err
	}

	message := LoginMessage(address)
	signature, err := a.provider.SignMessage(ctx, message)
	if err != nil {
		a.logger.Warn("Wallet refused to sign login message", zap.Error(err))
		return ErrSignatureRejected
	}

	tok, err := a.api.WalletLogin(ctx, address, signature, message)
	if err != nil {
		a.logger.Error("Backend authentication failed", zap.String("address", address), zap.Error(err))
		return err
	}
	if err := a.session.SetAuth(*tok); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	a.logger.Info("Wallet authenticated", zap.String("address", address))
	return nil
}

func (a *Authenticator) resolveAddress(ctx context.Context) (string, error) {
	accounts, err := a.provider.GetAccounts(ctx)
	if errors.Is(err, ErrNotInstalled) {
		return "", err
	}
	if err != nil || len(accounts) == 0 {
		accounts, err = a.provider.RequestAccounts(ctx)
		if err != nil {
			return "", err
		}
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", ErrNoAccounts
	}
	return accounts[0], nil
}
