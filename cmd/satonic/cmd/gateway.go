// File: cmd/satonic/cmd/gateway.go
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"

	"satonic/internal/auction"
	"satonic/internal/listing"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// gatewayError covers the three error bodies the gateway returns.
type gatewayError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// gatewayRequest calls the listing gateway, forwarding the session token.
// out receives the decoded body on success and may be nil.
func gatewayRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "error encoding request")
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, cli.cfg.GatewayURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "error building gateway request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := cli.store.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	client := &http.Client{Timeout: cli.cfg.APITimeout}
	res, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "gateway unreachable")
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "error reading gateway response")
	}
	cli.logger.Debug("Gateway response", zap.String("method", method), zap.String("path", path), zap.Int("status", res.StatusCode))

	if res.StatusCode >= http.StatusBadRequest {
		var ge gatewayError
		_ = json.Unmarshal(data, &ge)
		switch {
		case ge.Error != "":
			return errors.New(ge.Error)
		case ge.Details != "":
			return errors.New(ge.Details)
		case ge.Message != "":
			return errors.New(ge.Message)
		}
		return errors.Errorf("gateway returned %s", res.Status)
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "error decoding gateway response")
}

var inscriptionsCmd = &cobra.Command{
	Use:   "inscriptions <address>",
	Short: "List inscriptions held by an address, via the gateway's Ordiscan proxy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw json.RawMessage
		if err := gatewayRequest(cmd.Context(), http.MethodGet, "/nfts/"+url.PathEscape(args[0]), nil, &raw); err != nil {
			return err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
		return nil
	},
}

var (
	listingsStatus string
	listingsLimit  int
)

var listingsCmd = &cobra.Command{
	Use:   "listings [query]",
	Short: "List or search auctions announced to the gateway",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/auctions"
		if len(args) == 1 || listingsStatus != "" || listingsLimit > 0 {
			q := url.Values{}
			if len(args) == 1 {
				q.Set("q", args[0])
			}
			if listingsStatus != "" {
				q.Set("status", listingsStatus)
			}
			if listingsLimit > 0 {
				q.Set("limit", strconv.Itoa(listingsLimit))
			}
			path = "/auctions/search?" + q.Encode()
		}

		var listings []listing.ListingResponse
		if err := gatewayRequest(cmd.Context(), http.MethodGet, path, nil, &listings); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), listings)
		}
		if len(listings) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No listings found")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SLUG\tINSCRIPTION\tSTARTING BID\tSTATUS\tENDS")
		for _, l := range listings {
			fmt.Fprintf(tw, "%s\t%s\t%s BTC\t%s\t%s\n", l.Slug, l.InscriptionID, auction.FormatBTC(l.StartingBid), l.Status, l.EndsAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

func init() {
	listingsCmd.Flags().StringVar(&listingsStatus, "status", "", "Filter by status (active, ended)")
	listingsCmd.Flags().IntVar(&listingsLimit, "limit", 0, "Maximum number of results")
	rootCmd.AddCommand(inscriptionsCmd, listingsCmd)
}
