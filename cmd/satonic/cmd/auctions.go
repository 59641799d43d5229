// File: cmd/satonic/cmd/auctions.go
package cmd

import (
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"satonic/internal/auction"
	"satonic/internal/backend"
	"satonic/internal/common"
	"satonic/internal/listing"
	"satonic/internal/wallet"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listStatus   string
	listSeller   string
	listBidder   string
	listPage     int
	listPageSize int
)

func printAuctionTable(w io.Writer, auctions []backend.Auction) error {
	now := time.Now()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSELLER\tCURRENT BID\tSTATUS\tTIME LEFT\tBIDS")
	for _, a := range auctions {
		v := auction.NewView(a, now)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s BTC\t%s\t%s\t%d\n", v.ID, v.Title, v.Seller, v.CurrentBTC, v.Status, v.TimeLeft, v.BidCount)
	}
	return tw.Flush()
}

var auctionsCmd = &cobra.Command{
	Use:   "auctions",
	Short: "List auctions",
	Long:  "Without filters this shows the featured active auctions, falling back to sample data when the API is unreachable.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		filtered := flags.Changed("status") || flags.Changed("seller") || flags.Changed("bidder") ||
			flags.Changed("page") || flags.Changed("page-size")

		var auctions []backend.Auction
		if filtered {
			page, err := cli.api.ListAuctions(cmd.Context(), backend.ListAuctionsParams{
				Status:   listStatus,
				SellerID: listSeller,
				BidderID: listBidder,
				Page:     listPage,
				PageSize: listPageSize,
			})
			if err != nil {
				return err
			}
			auctions = page.Auctions
		} else {
			feed, err := auction.NewFeed(cli.api, cli.logger).Featured(cmd.Context())
			if err != nil {
				return err
			}
			if feed.Banner != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), feed.Banner)
			}
			auctions = feed.Auctions
		}

		if jsonOutput {
			views := make([]auction.View, 0, len(auctions))
			now := time.Now()
			for _, a := range auctions {
				views = append(views, auction.NewView(a, now))
			}
			return printJSON(cmd.OutOrStdout(), views)
		}
		if len(auctions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No auctions found")
			return nil
		}
		return printAuctionTable(cmd.OutOrStdout(), auctions)
	},
}

// auctionDetail is the --json shape of the auction command.
type auctionDetail struct {
	*backend.Auction
	NFT *backend.NFT `json:"nft,omitempty"`
}

var auctionCmd = &cobra.Command{
	Use:   "auction <auction_id>",
	Short: "Show one auction and its bids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := cli.api.GetAuction(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var nft *backend.NFT
		if a.NFTID != "" {
			if nft, err = cli.api.GetNFT(cmd.Context(), a.NFTID); err != nil {
				cli.logger.Warn("Failed to fetch NFT details", zap.String("nft_id", a.NFTID), zap.Error(err))
			}
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), auctionDetail{Auction: a, NFT: nft})
		}
		now := time.Now()
		v := auction.NewView(*a, now)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", auction.NFTTitle(*a, nft))
		if desc := auction.NFTDescription(*a, nft); desc != "" {
			fmt.Fprintf(out, "  %s\n", desc)
		}
		fmt.Fprintf(out, "  ID:          %s\n", v.ID)
		fmt.Fprintf(out, "  Seller:      %s\n", a.SellerAddress)
		fmt.Fprintf(out, "  Start price: %s BTC\n", auction.FormatBTC(a.StartPrice))
		fmt.Fprintf(out, "  Current bid: %s BTC\n", v.CurrentBTC)
		fmt.Fprintf(out, "  Status:      %s\n", v.Status)
		fmt.Fprintf(out, "  Time left:   %s\n", v.TimeLeft)
		if a.NFTID != "" {
			fmt.Fprintf(out, "  NFT:         %s\n", a.NFTID)
		}
		if nft != nil && nft.InscriptionID != "" {
			fmt.Fprintf(out, "  Inscription: %s\n", nft.InscriptionID)
			fmt.Fprintf(out, "  View:        %s\n", auction.InscriptionURL(nft.InscriptionID))
		}
		if len(a.Bids) == 0 {
			fmt.Fprintln(out, "  No bids yet")
			return nil
		}
		fmt.Fprintln(out, "  Bids:")
		for _, b := range a.Bids {
			fmt.Fprintf(out, "    %s BTC from %s at %s\n", auction.FormatBTC(b.Amount), auction.SellerShort(b.WalletAddress), b.CreatedAt.Format(time.RFC3339))
		}
		return nil
	},
}

var bidAddress string

var bidCmd = &cobra.Command{
	Use:   "bid <auction_id> <amount_btc>",
	Short: "Place a bid in BTC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := bidAddress
		if address == "" {
			if provider, err := walletProvider(); err == nil {
				address = wallet.CurrentAddress(cmd.Context(), provider)
			}
		}
		if address == "" {
			address = cli.store.CurrentUser().PrimaryWallet()
		}

		bid, err := auction.NewBidder(cli.api, cli.logger).PlaceBid(cmd.Context(), args[0], args[1], address)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), bid)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Bid of %s BTC placed on %s\n", auction.FormatBTC(bid.Amount), args[0])
		return nil
	},
}

var (
	createNFTID         string
	createUTXO          string
	createTitle         string
	createDescription   string
	createStartingBid   string
	createDuration      int
	createAnnounce      bool
	createInscription   int64
	createInscriptionID string
)

var createAuctionCmd = &cobra.Command{
	Use:   "create-auction",
	Short: "Escrow an inscription and open an auction for it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := walletProvider()
		if err != nil {
			return err
		}
		seller, err := wallet.Connect(cmd.Context(), provider)
		if err != nil {
			return err
		}

		creator := auction.NewCreator(cli.api, provider, cli.cfg.MaxAuctionDurationHours, cli.logger)
		res, err := creator.Create(cmd.Context(), auction.CreateInput{
			NFTID:           createNFTID,
			InscriptionUTXO: createUTXO,
			Title:           createTitle,
			Description:     createDescription,
			StartingBidBTC:  createStartingBid,
			DurationHours:   createDuration,
			SellerAddress:   seller,
		})
		if err != nil {
			return err
		}

		if createAnnounce {
			if err := announceAuction(cmd, res.Auction); err != nil {
				// The auction exists on the backend either way.
				cli.logger.Warn("Failed to announce auction to gateway", zap.Error(err))
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: auction created but gateway announcement failed:", err)
			}
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Auction %s created\n", res.Auction.AuctionID)
		fmt.Fprintf(out, "Escrow transaction: %s\n", res.EscrowTxID)
		fmt.Fprintf(out, "Ends: %s\n", res.Auction.EndTime.Format(time.RFC3339))
		return nil
	},
}

// announceAuction registers the new auction with the gateway's search index.
func announceAuction(cmd *cobra.Command, a *backend.Auction) error {
	if a == nil {
		return errors.New("no auction to announce")
	}
	startingBid, err := auction.ParseBTC(createStartingBid)
	if err != nil {
		return err
	}
	inscriptionID := createInscriptionID
	if inscriptionID == "" {
		inscriptionID = a.NFTID
	}
	req := listing.CreateListingRequest{
		Title:             a.Title,
		InscriptionID:     inscriptionID,
		InscriptionNumber: createInscription,
		StartingBid:       startingBid,
		IncrementInterval: max(startingBid/10, 1),
		Duration:          int64(createDuration),
	}
	var res common.LegacyResult
	if err := gatewayRequest(cmd.Context(), http.MethodPost, "/auctions", req, &res); err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	cli.logger.Debug("Announced auction to gateway", zap.String("gateway_id", res.AuctionID))
	return nil
}

func init() {
	auctionsCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending, active, completed, cancelled)")
	auctionsCmd.Flags().StringVar(&listSeller, "seller", "", "Filter by seller id")
	auctionsCmd.Flags().StringVar(&listBidder, "bidder", "", "Filter by bidder id")
	auctionsCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	auctionsCmd.Flags().IntVar(&listPageSize, "page-size", 10, "Page size")

	bidCmd.Flags().StringVar(&bidAddress, "address", "", "Bidder wallet address (defaults to the connected wallet)")

	createAuctionCmd.Flags().StringVar(&createNFTID, "nft-id", "", "NFT id to auction")
	createAuctionCmd.Flags().StringVar(&createUTXO, "utxo", "", "Inscription UTXO as txid:vout")
	createAuctionCmd.Flags().StringVar(&createTitle, "title", "", "Auction title")
	createAuctionCmd.Flags().StringVar(&createDescription, "description", "", "Auction description")
	createAuctionCmd.Flags().StringVar(&createStartingBid, "starting-bid", "", "Starting bid in BTC")
	createAuctionCmd.Flags().IntVar(&createDuration, "duration", 24, "Duration in hours")
	createAuctionCmd.Flags().BoolVar(&createAnnounce, "announce", false, "Also register the auction with the gateway")
	createAuctionCmd.Flags().StringVar(&createInscriptionID, "inscription-id", "", "Inscription id sent with --announce (defaults to the NFT id)")
	createAuctionCmd.Flags().Int64Var(&createInscription, "inscription-number", 0, "Inscription number sent with --announce")
	_ = createAuctionCmd.MarkFlagRequired("nft-id")
	_ = createAuctionCmd.MarkFlagRequired("utxo")
	_ = createAuctionCmd.MarkFlagRequired("starting-bid")

	rootCmd.AddCommand(auctionsCmd, auctionCmd, bidCmd, createAuctionCmd)
}

