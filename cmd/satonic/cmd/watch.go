// File: cmd/satonic/cmd/watch.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"satonic/internal/auction"
	"satonic/internal/realtime"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch <auction_id>",
	Short: "Stream live bids and updates for an auction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchAuction(ctx, cmd, realtime.New(cli.api.WebSocketURL(), cli.logger), args[0])
	},
}

func watchAuction(ctx context.Context, cmd *cobra.Command, rt *realtime.Client, auctionID string) error {
	defer rt.Close()

	out := cmd.OutOrStdout()
	if err := rt.Connect(ctx); err != nil {
		cli.logger.Warn("Initial connect failed, retrying in background", zap.Error(err))
		fmt.Fprintln(cmd.ErrOrStderr(), "Connecting...")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-rt.Events():
			switch ev.Type {
			case realtime.EventConnected:
				if err := rt.Subscribe(auctionID); err != nil {
					return errors.Wrap(err, "error subscribing")
				}
				fmt.Fprintf(out, "Watching auction %s\n", auctionID)
			case realtime.EventDisconnected:
				fmt.Fprintln(cmd.ErrOrStderr(), "Disconnected, reconnecting...")
			case realtime.EventAuctionUpdate:
				if ev.Auction.AuctionID != "" && ev.Auction.AuctionID != auctionID {
					continue
				}
				v := auction.NewView(*ev.Auction, time.Now())
				fmt.Fprintf(out, "[update] current bid %s BTC, %s, %s\n", v.CurrentBTC, v.Status, v.TimeLeft)
			case realtime.EventBidPlaced:
				if ev.Bid.AuctionID != "" && ev.Bid.AuctionID != auctionID {
					continue
				}
				fmt.Fprintf(out, "[bid] %s BTC from %s\n", auction.FormatBTC(ev.Bid.Amount), auction.SellerShort(ev.Bid.WalletAddress))
			case realtime.EventError:
				fmt.Fprintf(cmd.ErrOrStderr(), "[error] %s\n", ev.Message)
			case realtime.EventReconnectFailed:
				return errors.New("Lost connection to live updates")
			}
		}
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the marketplace API is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := cli.api.HealthCheck(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		status := res.Status
		if status == "" {
			status = "ok"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cli.cfg.APIBaseURL, status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd, healthCmd)
}
