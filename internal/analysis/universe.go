package analysis

import (
	"context"
	"fmt"

	"github.com/trogers1052/finfun/internal/market"
	"github.com/trogers1052/finfun/internal/models"
	"github.com/trogers1052/finfun/internal/publisher"
	"github.com/trogers1052/finfun/internal/scoring"
)

// ResultPublisher writes a table to a sink
type ResultPublisher interface {
	Publish(ctx context.Context, sink string, table *publisher.Table, opts publisher.Options) error
}

// Table name suffixes of a universe run
const (
	AllStocksSuffix       = "AllStocks"
	TopRankedStocksSuffix = "TopRankedStocks"
)

// UniverseOptions configures RunUniverse
type UniverseOptions struct {
	Trigger string
	// Rank is how many records per sector go into the top ranked table
	Rank      int
	Sink      string
	OutputDir string
	// TableName prefixes both sql tables instead of the timestamp
	TableName string
}

// UniverseResult summarizes a universe run
type UniverseResult struct {
	Run       *models.AnalysisRun
	All       *publisher.Table
	TopRanked *publisher.Table
}

// RunUniverse scores every sector of the given symbols and publishes the
// full table and the per-sector top ranked table
func (s *Service) RunUniverse(ctx context.Context, symbols []string, opts UniverseOptions) (*UniverseResult, error) {
	if s.publisher == nil {
		return nil, fmt.Errorf("no publisher configured")
	}
	if opts.Rank < 1 {
		return nil, fmt.Errorf("rank must be at least 1")
	}
	if !s.tryStart() {
		return nil, ErrRunInProgress
	}
	defer s.finish()

	trigger := opts.Trigger
	if trigger == "" {
		trigger = models.TriggerCLI
	}
	run := s.startRun(ctx, trigger, models.ScopeUniverse)

	result, err := s.runUniverse(ctx, run, symbols, opts)
	if err != nil {
		s.finishRun(ctx, run, nil, err)
		return nil, err
	}

	ranked := append([]*models.ScoredRecord(nil), result.All.Records...)
	scoring.SortByTotalRank(ranked)
	s.finishRun(ctx, run, ranked, nil)
	return result, nil
}

func (s *Service) runUniverse(ctx context.Context, run *models.AnalysisRun, symbols []string, opts UniverseOptions) (*UniverseResult, error) {
	records := s.fetcher.FetchStocks(ctx, symbols)
	if len(records) == 0 {
		return nil, ErrNoData
	}

	groups := s.engine.ScoreSectors(market.GroupBySector(records))
	prefix := opts.TableName
	if prefix == "" {
		prefix = run.StartedAt.Local().Format("20060102_150405")
	}

	result := &UniverseResult{
		Run:       run,
		All:       publisher.NewTable(prefix+AllStocksSuffix, scoring.Flatten(groups)),
		TopRanked: publisher.NewTable(prefix+TopRankedStocksSuffix, scoring.TopRanked(groups, opts.Rank)),
	}
	run.StockCount = len(result.All.Records)

	pubOpts := publisher.Options{OutputDir: opts.OutputDir, RunID: run.ID}
	for _, t := range []*publisher.Table{result.All, result.TopRanked} {
		if err := s.publisher.Publish(ctx, opts.Sink, t, pubOpts); err != nil {
			return nil, err
		}
	}
	return result, nil
}
