// File: cmd/satonic/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"satonic/internal/backend"
	"satonic/internal/config"
	"satonic/internal/platform/logger"
	"satonic/internal/session"
	"satonic/internal/wallet"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose     bool
	jsonOutput  bool
	networkFlag string
	sessionFlag string
	apiURLFlag  string
)

// cli holds the clients shared by every command, built in PersistentPreRunE.
var cli struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *session.Store
	api     *backend.Client
	network wallet.Network
}

var rootCmd = &cobra.Command{
	Use:           "satonic",
	Short:         "Ordinals auction marketplace client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "invalid configuration")
		}
		if networkFlag != "" {
			cfg.BitcoinNetwork = networkFlag
		}
		if sessionFlag != "" {
			cfg.SessionFile = sessionFlag
		}
		if apiURLFlag != "" {
			cfg.APIBaseURL = apiURLFlag
		}

		network, err := wallet.ParseNetwork(cfg.BitcoinNetwork)
		if err != nil {
			return errors.Wrap(err, "invalid network")
		}

		log, err := logger.NewCLI(cfg, verbose)
		if err != nil {
			return errors.Wrap(err, "error creating logger")
		}

		store, err := session.Open(cfg.SessionFile, log)
		if err != nil {
			return errors.Wrap(err, "error opening session")
		}

		cli.cfg = cfg
		cli.logger = log
		cli.store = store
		cli.network = network
		cli.api = backend.NewClient(cfg.APIBaseURL, cfg.APITimeout, log, backend.WithTokenStore(store))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cli.logger != nil {
			_ = cli.logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON instead of tables")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "Bitcoin network (mainnet, testnet, testnet4); overrides BITCOIN_NETWORK")
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "Session file; overrides SESSION_FILE")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Marketplace API base URL; overrides API_BASE_URL")
}

// Execute runs the root command and exits non-zero with a one-line message on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, toastMessage(err))
		os.Exit(1)
	}
}
