// Package analysis runs the fetch, score and publish pipeline for the stored
// portfolio and for the ticker universe.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/cache"
	"github.com/trogers1052/finfun/internal/database"
	"github.com/trogers1052/finfun/internal/market"
	"github.com/trogers1052/finfun/internal/models"
	"github.com/trogers1052/finfun/internal/scoring"
)

// PortfolioGroup is the single group name used when scoring a portfolio
const PortfolioGroup = "Portfolio"

// latestKey is the cache key of the most recent portfolio analysis
const latestKey = "analysis:portfolio:latest"

var (
	// ErrRunInProgress is returned when a run is requested while one is active
	ErrRunInProgress = errors.New("analysis run already in progress")
	// ErrNoPortfolio is returned when no portfolio has been imported
	ErrNoPortfolio = errors.New("no portfolio imported")
	// ErrNoData is returned when no symbol could be fetched
	ErrNoData = errors.New("no market data fetched")
)

// StockFetcher fetches market records for symbols, dropping failures
type StockFetcher interface {
	FetchStocks(ctx context.Context, symbols []string) []models.StockRecord
}

// PortfolioStore reads the current portfolio
type PortfolioStore interface {
	GetCurrentPortfolio(ctx context.Context) (*models.Portfolio, error)
}

// RunStore records analysis runs
type RunStore interface {
	CreateAnalysisRun(ctx context.Context, r *models.AnalysisRun) error
	FinishAnalysisRun(ctx context.Context, r *models.AnalysisRun) error
}

// Notifier is told about finished runs
type Notifier interface {
	NotifyRun(ctx context.Context, run *models.AnalysisRun, records []*models.ScoredRecord) error
	NotifyFailure(ctx context.Context, run *models.AnalysisRun, runErr error) error
}

// Config tunes the service
type Config struct {
	CacheTTL time.Duration
	// RunTimeout bounds one background run
	RunTimeout time.Duration
}

// Service owns the analysis cache and serializes pipeline runs. At most one
// run executes at a time.
type Service struct {
	fetcher    StockFetcher
	engine     *scoring.Engine
	portfolios PortfolioStore
	runs       RunStore
	cache      cache.Store
	publisher  ResultPublisher
	notifier   Notifier
	cfg        Config
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	running bool
	// generation counts portfolio changes; a run only caches its result if
	// the generation it started on is still current
	generation uint64
	rerun      bool
	wg         sync.WaitGroup
}

// Deps are the collaborators of a Service. Notifier and Publisher may be nil.
type Deps struct {
	Fetcher    StockFetcher
	Engine     *scoring.Engine
	Portfolios PortfolioStore
	Runs       RunStore
	Cache      cache.Store
	Publisher  ResultPublisher
	Notifier   Notifier
}

// NewService creates a service
func NewService(deps Deps, cfg Config, logger zerolog.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	c := deps.Cache
	if c == nil {
		c = cache.NewMemory()
	}
	return &Service{
		fetcher:    deps.Fetcher,
		engine:     deps.Engine,
		portfolios: deps.Portfolios,
		runs:       deps.Runs,
		cache:      c,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		cfg:        cfg,
		logger:     logger.With().Str("component", "analysis").Logger(),
		now:        time.Now,
	}
}

// tryStart claims the run slot
func (s *Service) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

// finish releases the run slot and starts the follow-up run queued by
// PortfolioChanged
func (s *Service) finish() {
	s.mu.Lock()
	s.running = false
	rerun := s.rerun
	s.rerun = false
	s.mu.Unlock()

	if !rerun {
		return
	}
	if err := s.Refresh(models.TriggerImport, true); err != nil {
		s.logger.Warn().Err(err).Msg("follow-up analysis not started")
	}
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Running reports whether a run is executing
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until background runs started by Refresh have returned
func (s *Service) Wait() {
	s.wg.Wait()
}

// Latest returns the cached portfolio analysis, or nil when there is none or
// it has expired
func (s *Service) Latest(ctx context.Context) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	err := cache.GetJSON(ctx, s.cache, latestKey, &result)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Invalidate drops the cached analysis
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, latestKey)
}

// Refresh starts a portfolio analysis in the background. force drops the
// cached result first. ErrRunInProgress is returned if a run is active.
func (s *Service) Refresh(trigger string, force bool) error {
	if !s.tryStart() {
		return ErrRunInProgress
	}

	if force {
		if err := s.Invalidate(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate analysis cache")
		}
	}
	s.runBackground(trigger)
	return nil
}

// PortfolioChanged drops the cached analysis after a portfolio import and
// starts a new run. A run already executing keeps going, but its result is
// discarded and a follow-up run starts when it returns.
func (s *Service) PortfolioChanged(trigger string) {
	s.mu.Lock()
	s.generation++
	busy := s.running
	if busy {
		s.rerun = true
	} else {
		s.running = true
	}
	s.mu.Unlock()

	if err := s.Invalidate(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate analysis cache")
	}
	if busy {
		s.logger.Info().Msg("portfolio changed during a run, analysis queued")
		return
	}
	s.runBackground(trigger)
}

// runBackground runs a portfolio analysis on a goroutine. The caller must
// hold the run slot.
func (s *Service) runBackground(trigger string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
		defer cancel()

		if _, err := s.analyzePortfolio(ctx, trigger); err != nil {
			s.logger.Error().Err(err).Str("trigger", trigger).Msg("background analysis failed")
		}
	}()
}

// AnalyzePortfolio runs a portfolio analysis synchronously and caches the
// result
func (s *Service) AnalyzePortfolio(ctx context.Context, trigger string) (*models.AnalysisResult, error) {
	if !s.tryStart() {
		return nil, ErrRunInProgress
	}
	defer s.finish()
	return s.analyzePortfolio(ctx, trigger)
}

func (s *Service) analyzePortfolio(ctx context.Context, trigger string) (*models.AnalysisResult, error) {
	generation := s.currentGeneration()
	run := s.startRun(ctx, trigger, models.ScopePortfolio)

	result, err := s.scorePortfolio(ctx, run)
	if err != nil {
		s.finishRun(ctx, run, nil, err)
		return nil, err
	}

	if s.currentGeneration() != generation {
		s.logger.Info().Str("run_id", run.ID).Msg("portfolio changed during run, result not cached")
	} else if err := cache.SetJSON(ctx, s.cache, latestKey, result, s.cfg.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache analysis")
	}
	s.finishRun(ctx, run, result.Records, nil)
	return result, nil
}

func (s *Service) scorePortfolio(ctx context.Context, run *models.AnalysisRun) (*models.AnalysisResult, error) {
	p, err := s.portfolios.GetCurrentPortfolio(ctx)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNoPortfolio
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	symbols := p.Symbols()
	if len(symbols) == 0 {
		return nil, ErrNoPortfolio
	}

	records := s.fetcher.FetchStocks(ctx, symbols)
	if len(records) == 0 {
		return nil, ErrNoData
	}

	scored := s.engine.ScoreGroup(records)
	scoring.SortByTotalRank(scored)
	run.StockCount = len(scored)

	return &models.AnalysisResult{
		RunID:       run.ID,
		GeneratedAt: s.now().UTC(),
		Records:     scored,
	}, nil
}

func (s *Service) startRun(ctx context.Context, trigger, scope string) *models.AnalysisRun {
	run := &models.AnalysisRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Scope:     scope,
		Status:    models.RunRunning,
		StartedAt: s.now().UTC(),
	}
	if s.runs != nil {
		if err := s.runs.CreateAnalysisRun(ctx, run); err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record analysis run")
		}
	}
	s.logger.Info().
		Str("run_id", run.ID).
		Str("trigger", trigger).
		Str("scope", scope).
		Msg("analysis run started")
	return run
}

// finishRun records the outcome and notifies. records must be ordered by
// total rank.
func (s *Service) finishRun(ctx context.Context, run *models.AnalysisRun, records []*models.ScoredRecord, runErr error) {
	finished := s.now().UTC()
	run.FinishedAt = &finished
	run.Status = models.RunSucceeded
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}

	// outcome is recorded even when the run context has expired
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if s.runs != nil {
		if err := s.runs.FinishAnalysisRun(finishCtx, run); err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record analysis outcome")
		}
	}

	event := s.logger.Info()
	if runErr != nil {
		event = s.logger.Error().Err(runErr)
	}
	event.
		Str("run_id", run.ID).
		Str("status", run.Status).
		Int("stocks", run.StockCount).
		Dur("elapsed", finished.Sub(run.StartedAt)).
		Msg("analysis run finished")

	if s.notifier == nil {
		return
	}
	var err error
	if runErr != nil {
		err = s.notifier.NotifyFailure(finishCtx, run, runErr)
	} else {
		err = s.notifier.NotifyRun(finishCtx, run, records)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to send notification")
	}
}

// SectorStats returns per-sector metric statistics of the cached analysis
func (s *Service) SectorStats(ctx context.Context) ([]scoring.SectorStats, error) {
	latest, err := s.Latest(ctx)
	if err != nil || latest == nil {
		return nil, err
	}
	records := make([]models.StockRecord, 0, len(latest.Records))
	for _, r := range latest.Records {
		records = append(records, r.StockRecord)
	}
	return scoring.ComputeSectorStats(records), nil
}

var _ StockFetcher = (*market.Fetcher)(nil)
