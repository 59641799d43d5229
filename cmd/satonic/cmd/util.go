// File: cmd/satonic/cmd/util.go
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"satonic/internal/auction"
	"satonic/internal/backend"
	"satonic/internal/wallet"

	"github.com/pkg/errors"
)

var errNotSignedIn = errors.New("Not signed in. Run 'satonic login' first.")

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error encoding output")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func intArg(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid integer %q", v)
	}
	return n, nil
}

// walletProvider returns the configured wallet bridge or wallet.ErrNotInstalled.
func walletProvider() (wallet.Provider, error) {
	return wallet.Detect(cli.cfg.WalletBridgeURL, cli.cfg.WalletBridgeToken, cli.logger)
}

// toastMessage turns a command error into the single line shown to the user.
func toastMessage(err error) string {
	var stepErr *auction.StepError
	switch {
	case errors.Is(err, wallet.ErrNotInstalled):
		return fmt.Sprintf("%v. Install it from %s and set WALLET_BRIDGE_URL.", wallet.ErrNotInstalled, wallet.InstallURL)
	case errors.As(err, &stepErr):
		if stepErr.Step == auction.StepValidate {
			return stepErr.Err.Error()
		}
		return fmt.Sprintf("Auction creation failed at step %q: %v", stepErr.Step, stepErr.Err)
	default:
		return err.Error()
	}
}

// displayName prefers the profile username over the given fallback.
func displayName(fallback string, user *backend.User) string {
	if user != nil && user.Profile != nil && user.Profile.Username != "" {
		return user.Profile.Username
	}
	if fallback == "" && user != nil {
		return user.ID
	}
	return fallback
}
