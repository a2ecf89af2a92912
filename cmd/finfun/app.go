package main

import (
	"context"
	"fmt"

	"github.com/trogers1052/finfun/internal/analysis"
	"github.com/trogers1052/finfun/internal/cache"
	"github.com/trogers1052/finfun/internal/database"
	"github.com/trogers1052/finfun/internal/kafka"
	"github.com/trogers1052/finfun/internal/market"
	"github.com/trogers1052/finfun/internal/publisher"
	"github.com/trogers1052/finfun/internal/scoring"
	"github.com/trogers1052/finfun/internal/telegram"
)

// app holds the components shared by the subcommands
type app struct {
	db       *database.DB
	producer *kafka.Producer
	redis    *cache.Redis
	fetcher  *market.Fetcher
	service  *analysis.Service
}

// newApp opens the database and builds the analysis service from cfg.
// Kafka, Redis and Telegram are only connected when enabled.
func newApp(ctx context.Context) (*app, error) {
	a := &app{}

	db, err := database.New(cfg.Database.Driver, cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := db.RunMigrations(); err != nil {
		a.Close()
		return nil, err
	}

	var events publisher.EventPublisher
	if cfg.Kafka.Enabled {
		a.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		events = a.producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka producer initialized")
	}

	var store cache.Store
	if cfg.Redis.Enabled {
		a.redis, err = cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		store = a.redis
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis cache connected")
	}

	var notifier analysis.Notifier
	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.TopN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize telegram client: %w", err)
		}
		notifier = client
		log.Info().Msg("telegram notifications enabled")
	}

	engine, err := scoring.NewEngine(cfg.Scoring.LabelPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	summary := market.NewSummaryClient(cfg.Fetcher.RequestTimeout, market.WithRateLimit(cfg.Fetcher.SummaryRateLimit))
	a.fetcher = market.NewFetcher(market.NewYahooProvider(summary, log), market.FetcherConfig{
		MinDelay:       cfg.Fetcher.MinDelay,
		MaxDelay:       cfg.Fetcher.MaxDelay,
		RequestTimeout: cfg.Fetcher.RequestTimeout,
	}, log)

	a.service = analysis.NewService(analysis.Deps{
		Fetcher:    a.fetcher,
		Engine:     engine,
		Portfolios: db,
		Runs:       db,
		Cache:      store,
		Publisher:  publisher.New(db, events, log),
		Notifier:   notifier,
	}, analysis.Config{CacheTTL: cfg.Cache.TTL}, log)

	return a, nil
}

// Close releases every connection opened by newApp
func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}
