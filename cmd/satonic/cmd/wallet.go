// File: cmd/satonic/cmd/wallet.go
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"satonic/internal/auction"
	"satonic/internal/backend"
	"satonic/internal/wallet"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show a wallet balance",
	Long:  "Show the balance of the given address via the marketplace API, or of the connected wallet when no address is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			if err := wallet.ValidateAddress(args[0], cli.network); err != nil {
				return err
			}
			bal, err := cli.api.GetWalletBalance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out, bal)
			}
			fmt.Fprintf(out, "Confirmed:   %s BTC\n", auction.FormatBTC(bal.Satoshi))
			fmt.Fprintf(out, "Pending:     %s BTC\n", auction.FormatBTC(bal.PendingSatoshi))
			fmt.Fprintf(out, "Inscription: %s BTC\n", auction.FormatBTC(bal.InscriptionSatoshi))
			fmt.Fprintf(out, "UTXOs:       %d\n", bal.UTXOCount)
			return nil
		}

		provider, err := walletProvider()
		if err != nil {
			return err
		}
		bal, err := provider.GetBalance(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, bal)
		}
		fmt.Fprintf(out, "Confirmed:   %s BTC\n", auction.FormatBTC(bal.Confirmed))
		fmt.Fprintf(out, "Unconfirmed: %s BTC\n", auction.FormatBTC(bal.Unconfirmed))
		fmt.Fprintf(out, "Total:       %s BTC\n", auction.FormatBTC(bal.Total))
		return nil
	},
}

var nftsCmd = &cobra.Command{
	Use:   "nfts [address]",
	Short: "List NFTs owned by the signed-in user or by an address",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			page *backend.NFTPage
			err  error
		)
		if len(args) == 1 {
			page, err = cli.api.GetNFTs(cmd.Context(), args[0], string(cli.network))
		} else {
			page, err = cli.api.GetUserNFTs(cmd.Context(), string(cli.network))
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), page)
		}
		if len(page.NFTs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No NFTs found")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tINSCRIPTION\tTITLE\tAUCTION")
		for _, n := range page.NFTs {
			auctionID := "-"
			if n.AuctionID != nil {
				auctionID = *n.AuctionID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, n.InscriptionID, n.Title, auctionID)
		}
		return tw.Flush()
	},
}

var nftCmd = &cobra.Command{
	Use:   "nft <nft_id>",
	Short: "Show one NFT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nft, err := cli.api.GetNFT(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), nft)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", auction.NFTName(*nft))
		if nft.Description != "" {
			fmt.Fprintf(out, "  %s\n", nft.Description)
		}
		collection := nft.Collection
		if collection == "" {
			collection = "Uncategorized"
		}
		fmt.Fprintf(out, "  ID:          %s\n", nft.ID)
		fmt.Fprintf(out, "  Collection:  %s\n", collection)
		fmt.Fprintf(out, "  Inscription: %s\n", nft.InscriptionID)
		if nft.InscriptionNumber != nil {
			fmt.Fprintf(out, "  Number:      %d\n", *nft.InscriptionNumber)
		}
		fmt.Fprintf(out, "  View:        %s\n", auction.InscriptionURL(nft.InscriptionID))
		if nft.AuctionID != nil {
			fmt.Fprintf(out, "  Auction:     %s\n", *nft.AuctionID)
		} else {
			fmt.Fprintf(out, "  Auction:     not listed (satonic create-auction --nft-id %s)\n", nft.ID)
		}
		if len(nft.Metadata) > 0 && string(nft.Metadata) != "null" {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, nft.Metadata, "  ", "  "); err == nil {
				fmt.Fprintf(out, "  Metadata:\n  %s\n", pretty.String())
			}
		}
		return nil
	},
}

var (
	importAddress     string
	importCollection  string
	importTitle       string
	importDescription string
	importMetadata    string
)

var importNFTCmd = &cobra.Command{
	Use:   "import-nft <inscription_id>",
	Short: "Validate and import an inscription as an NFT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := importAddress
		if address == "" {
			address = cli.store.CurrentUser().PrimaryWallet()
		}
		if address == "" {
			return wallet.ErrWalletNotConnected
		}
		req := backend.ImportNFTRequest{
			WalletAddress: address,
			InscriptionID: args[0],
			Collection:    importCollection,
			Title:         importTitle,
			Description:   importDescription,
		}
		if importMetadata != "" {
			if !json.Valid([]byte(importMetadata)) {
				return errors.New("--metadata must be valid JSON")
			}
			req.Metadata = json.RawMessage(importMetadata)
		}

		check, err := cli.api.ValidateNFT(cmd.Context(), req)
		if err != nil {
			return err
		}
		if !check.Valid {
			msg := check.Message
			if msg == "" {
				msg = "NFT is not valid for import"
			}
			return errors.New(msg)
		}

		nft, err := cli.api.ImportNFT(cmd.Context(), req)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), nft)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as NFT %s\n", nft.InscriptionID, nft.ID)
		return nil
	},
}

func init() {
	importNFTCmd.Flags().StringVar(&importAddress, "address", "", "Owner wallet address (defaults to the signed-in wallet)")
	importNFTCmd.Flags().StringVar(&importCollection, "collection", "", "Collection name")
	importNFTCmd.Flags().StringVar(&importTitle, "title", "", "Title")
	importNFTCmd.Flags().StringVar(&importDescription, "description", "", "Description")
	importNFTCmd.Flags().StringVar(&importMetadata, "metadata", "", "Extra metadata as a JSON object")
	rootCmd.AddCommand(balanceCmd, nftsCmd, nftCmd, importNFTCmd)
}
