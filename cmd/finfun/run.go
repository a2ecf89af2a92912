package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trogers1052/finfun/internal/analysis"
	"github.com/trogers1052/finfun/internal/models"
	"github.com/trogers1052/finfun/internal/universe"
)

var runFlags struct {
	rank   int
	sink   string
	output string
	table  string
	limit  int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score the stock universe and publish the results",
	Long: `Fetches every symbol of the universe, scores each stock within its
sector, and publishes two tables: all scored stocks and the top ranked stocks
of every sector. Symbols come from fetcher.symbols when set, otherwise from
the universe file, which is scraped first when it does not exist yet.`,
	Args: cobra.NoArgs,
	RunE: runUniverse,
}

func init() {
	runCmd.Flags().IntVar(&runFlags.rank, "rank", 0, "Top ranked stocks kept per sector (default scoring.top_ranked)")
	runCmd.Flags().StringVar(&runFlags.sink, "sink", "", "Result sink: csv, sql or kafka (default publisher.sink)")
	runCmd.Flags().StringVar(&runFlags.output, "output", "", "Output directory of the csv sink (default publisher.output_dir)")
	runCmd.Flags().StringVar(&runFlags.table, "table", "", "Table name prefix of the sql sink (default run timestamp)")
	runCmd.Flags().IntVar(&runFlags.limit, "limit", 0, "Only score the first N symbols of the universe")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	symbols, err := loadSymbols(ctx, runFlags.limit)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return errors.New("no symbols to score")
	}

	opts := analysis.UniverseOptions{
		Trigger:   models.TriggerCLI,
		Rank:      runFlags.rank,
		Sink:      runFlags.sink,
		OutputDir: runFlags.output,
		TableName: runFlags.table,
	}
	if opts.Rank == 0 {
		opts.Rank = cfg.Scoring.TopRanked
	}
	if opts.Sink == "" {
		opts.Sink = cfg.Publisher.Sink
	}
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.Publisher.OutputDir
	}
	if opts.TableName == "" {
		opts.TableName = cfg.Publisher.TableName
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().
		Int("symbols", len(symbols)).
		Int("rank", opts.Rank).
		Str("sink", opts.Sink).
		Msg("starting universe run")

	result, err := a.service.RunUniverse(ctx, symbols, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: scored %d stocks\n", result.Run.ID, len(result.All.Records))
	fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d rows)\n", result.All.Name, len(result.All.Records))
	fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d rows)\n", result.TopRanked.Name, len(result.TopRanked.Records))
	return nil
}

// loadSymbols returns the configured symbols, or those of the universe file
func loadSymbols(ctx context.Context, limit int) ([]string, error) {
	if len(cfg.Fetcher.Symbols) > 0 {
		symbols := cfg.Fetcher.Symbols
		if limit > 0 && len(symbols) > limit {
			symbols = symbols[:limit]
		}
		return symbols, nil
	}

	tickers, err := loadTickers(ctx)
	if err != nil {
		return nil, err
	}
	return universe.Symbols(tickers, limit), nil
}

// loadTickers reads the universe file, scraping and saving it when missing
func loadTickers(ctx context.Context) ([]models.Ticker, error) {
	if _, err := os.Stat(cfg.Universe.File); err == nil {
		return universe.Load(cfg.Universe.File)
	}

	log.Info().Str("file", cfg.Universe.File).Msg("universe file missing, scraping constituents")
	return refreshTickers(ctx)
}

func refreshTickers(ctx context.Context) ([]models.Ticker, error) {
	scraper := universe.NewScraper(cfg.Universe.SP500URL, cfg.Universe.Timeout, log)
	tickers, err := scraper.ScrapeSP500(ctx)
	if err != nil {
		return nil, err
	}
	if err := universe.Save(cfg.Universe.File, tickers); err != nil {
		return nil, err
	}
	log.Info().Int("tickers", len(tickers)).Str("file", cfg.Universe.File).Msg("universe saved")
	return tickers, nil
}
