// File: cmd/satonic/cmd/auth.go
package cmd

import (
	"fmt"

	"satonic/internal/wallet"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in by signing a message with the connected wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := walletProvider()
		if err != nil {
			return err
		}
		auth := wallet.NewAuthenticator(provider, cli.api, cli.store, cli.network, cli.logger)
		if err := auth.EnsureAuthenticated(cmd.Context()); err != nil {
			return err
		}
		user := cli.store.CurrentUser()
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(user.PrimaryWallet(), user))
		return nil
	},
}

var loginEmailCmd = &cobra.Command{
	Use:   "login-email <email>",
	Short: "Request an email verification code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := cli.api.EmailLogin(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		msg := res.Message
		if msg == "" {
			msg = "Verification code sent to " + args[0]
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var verifyCodeCmd = &cobra.Command{
	Use:   "verify-code <email> <code>",
	Short: "Exchange an email verification code for a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := cli.api.VerifyEmailCode(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if err := cli.store.SetAuth(*tok); err != nil {
			return errors.Wrap(err, "error saving session")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(args[0], tok.User))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session and disconnect the wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.store.Clear(); err != nil {
			return errors.Wrap(err, "error clearing session")
		}
		if provider, err := walletProvider(); err == nil {
			if err := provider.Disconnect(cmd.Context()); err != nil {
				cli.logger.Debug("Wallet disconnect failed", zap.Error(err))
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.store.IsAuthenticated() {
			return errNotSignedIn
		}
		user, err := cli.api.GetProfile(cmd.Context())
		if err != nil {
			return err
		}
		if err := cli.store.UpdateUser(user); err != nil {
			cli.logger.Warn("Failed to cache profile", zap.Error(err))
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), user)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:       %s\n", user.ID)
		if user.Profile != nil && user.Profile.Username != "" {
			fmt.Fprintf(out, "Username: %s\n", user.Profile.Username)
		}
		for _, w := range user.Wallets {
			fmt.Fprintf(out, "Wallet:   %s\n", w.Address)
		}
		for _, e := range user.Emails {
			fmt.Fprintf(out, "Email:    %s (verified: %t)\n", e.Address, e.Verified)
		}
		if exp := cli.store.ExpiresAt(); exp != "" {
			fmt.Fprintf(out, "Expires:  %s\n", exp)
		}
		return nil
	},
}

var linkWalletCmd = &cobra.Command{
	Use:   "link-wallet",
	Short: "Link the connected wallet to the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.store.IsAuthenticated() {
			return errNotSignedIn
		}
		provider, err := walletProvider()
		if err != nil {
			return err
		}
		address, err := wallet.Connect(cmd.Context(), provider)
		if err != nil {
			return err
		}
		message := wallet.LoginMessage(address)
		signature, err := provider.SignMessage(cmd.Context(), message)
		if err != nil {
			cli.logger.Warn("Wallet refused to sign link message", zap.Error(err))
			return wallet.ErrSignatureRejected
		}
		res, err := cli.api.LinkWallet(cmd.Context(), address, signature, message)
		if err != nil {
			return err
		}
		msg := res.Message
		if msg == "" {
			msg = "Linked wallet " + address
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var linkEmailCmd = &cobra.Command{
	Use:   "link-email <email>",
	Short: "Add an email address to the signed-in account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.store.IsAuthenticated() {
			return errNotSignedIn
		}
		res, err := cli.api.LinkEmail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		msg := res.Message
		if msg == "" {
			msg = "Verification code sent to " + args[0]
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, loginEmailCmd, verifyCodeCmd, logoutCmd, whoamiCmd, linkWalletCmd, linkEmailCmd)
}
