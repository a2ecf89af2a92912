package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trogers1052/finfun/internal/universe"
)

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Manage the stock universe",
}

var tickersRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Scrape the S&P 500 constituents into the universe file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tickers, err := refreshTickers(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %d tickers to %s\n", len(tickers), cfg.Universe.File)
		return nil
	},
}

var tickersSearchLimit int

var tickersSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search the universe by symbol, name or sector",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tickers, err := universe.Load(cfg.Universe.File)
		if err != nil {
			return err
		}
		idx, err := universe.NewIndex(tickers)
		if err != nil {
			return err
		}
		defer idx.Close()

		results, err := idx.Search(strings.Join(args, " "), tickersSearchLimit)
		if err != nil {
			return err
		}
		for _, t := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s %-40s %s\n", t.Symbol, t.Security, t.Sector)
		}
		return nil
	},
}

func init() {
	tickersSearchCmd.Flags().IntVar(&tickersSearchLimit, "limit", 10, "Maximum number of results")

	tickersCmd.AddCommand(tickersRefreshCmd)
	tickersCmd.AddCommand(tickersSearchCmd)
}
