package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/finfun/internal/analysis"
	"github.com/trogers1052/finfun/internal/analyst"
	"github.com/trogers1052/finfun/internal/api"
	"github.com/trogers1052/finfun/internal/database"
	"github.com/trogers1052/finfun/internal/kafka"
	"github.com/trogers1052/finfun/internal/models"
	"github.com/trogers1052/finfun/internal/portfolio"
	"github.com/trogers1052/finfun/internal/universe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the scheduled portfolio analysis",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// refreshingImporter starts a new analysis after every imported portfolio
type refreshingImporter struct {
	*portfolio.Importer
	service *analysis.Service
}

func (r refreshingImporter) ImportHoldings(ctx context.Context, holdings []*models.Holding) (*models.Portfolio, error) {
	p, err := r.Importer.ImportHoldings(ctx, holdings)
	if err != nil {
		return nil, err
	}
	r.service.PortfolioChanged(models.TriggerImport)
	return p, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	importer := portfolio.NewImporter(a.db, log)

	var marketAnalyst analyst.Analyst
	if cfg.Analyst.Enabled {
		claude, err := analyst.NewClaude(analyst.ClaudeConfig{
			APIKey:    cfg.Analyst.APIKey,
			Model:     cfg.Analyst.Model,
			MaxTokens: cfg.Analyst.MaxTokens,
			Timeout:   cfg.Analyst.Timeout,
		}, a.fetcher, log)
		if err != nil {
			return err
		}
		marketAnalyst = claude
		log.Info().Str("model", cfg.Analyst.Model).Msg("market analyst enabled")
	}

	var tickers api.TickerSearcher
	if list, err := universe.Load(cfg.Universe.File); err != nil {
		log.Warn().Err(err).Msg("ticker search disabled")
	} else {
		idx, err := universe.NewIndex(list)
		if err != nil {
			return err
		}
		defer idx.Close()
		tickers = idx
		log.Info().Int("tickers", idx.Len()).Msg("ticker index built")
	}

	if cfg.Kafka.Enabled && cfg.Kafka.PortfolioTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.PortfolioTopic, cfg.Kafka.GroupID,
			refreshingImporter{Importer: importer, service: a.service}, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("portfolio consumer stopped")
			}
		}()
	}

	var scheduler *analysis.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = analysis.NewScheduler(a.service, log)
		if err := scheduler.Start(cfg.Scheduler.Cron); err != nil {
			return err
		}
	}

	// warm the cache when a portfolio is already stored
	if _, err := a.db.GetCurrentPortfolio(ctx); err == nil {
		if err := a.service.Refresh(models.TriggerStartup, false); err != nil {
			log.Warn().Err(err).Msg("startup analysis not started")
		}
	} else if !errors.Is(err, database.ErrNotFound) {
		log.Warn().Err(err).Msg("failed to read portfolio")
	}

	handler := api.NewHandler(a.db, a.service, importer, marketAnalyst, tickers, log)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.SetupRoutes(handler, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	a.service.Wait()

	log.Info().Msg("server stopped")
	return nil
}
