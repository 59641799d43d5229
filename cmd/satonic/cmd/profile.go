// File: cmd/satonic/cmd/profile.go
package cmd

import (
	"fmt"

	"satonic/internal/backend"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	profileUsername  string
	profileBio       string
	profileAvatarURL string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the signed-in user's profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update username, bio or avatar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var req backend.UserProfileUpdateRequest
		flags := cmd.Flags()
		if flags.Changed("username") {
			req.Username = &profileUsername
		}
		if flags.Changed("bio") {
			req.Bio = &profileBio
		}
		if flags.Changed("avatar-url") {
			req.AvatarURL = &profileAvatarURL
		}
		if req.Username == nil && req.Bio == nil && req.AvatarURL == nil {
			return errors.New("nothing to update: pass --username, --bio or --avatar-url")
		}

		user, err := cli.api.UpdateProfile(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := cli.store.UpdateUser(user); err != nil {
			cli.logger.Warn("Failed to cache profile", zap.Error(err))
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), user)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Profile updated")
		return nil
	},
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileUsername, "username", "", "New username")
	profileUpdateCmd.Flags().StringVar(&profileBio, "bio", "", "New bio")
	profileUpdateCmd.Flags().StringVar(&profileAvatarURL, "avatar-url", "", "New avatar URL")
	profileCmd.AddCommand(profileUpdateCmd)
	rootCmd.AddCommand(profileCmd)
}
