// Package publisher writes scored tables to spreadsheet files, SQL tables or
// Kafka.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/database"
	"github.com/trogers1052/finfun/internal/models"
)

// Sink names
const (
	SinkCSV          = "csv"
	SinkSQL          = "sql"
	SinkKafka        = "kafka"
	SinkGoogleSheets = "google_sheets"
)

var (
	// ErrUnsupportedSink is returned for unknown or unimplemented sinks
	ErrUnsupportedSink = errors.New("unsupported sink")
	// ErrMissingParameter is returned when a sink-specific option is absent
	ErrMissingParameter = errors.New("missing sink parameter")
)

// PublishError reports a failed publish to one sink
type PublishError struct {
	Sink string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Sink, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// TableWriter appends rows to a SQL table
type TableWriter interface {
	WriteResultTable(ctx context.Context, t *database.ResultTable) error
}

// EventPublisher emits one event per scored record
type EventPublisher interface {
	PublishScores(ctx context.Context, runID string, records []*models.ScoredRecord) error
}

// Options carries the sink-specific parameters
type Options struct {
	// Path of the csv file. When empty, OutputDir/<table name>.csv is used.
	Path      string
	OutputDir string
	// TableName of the sql sink. Defaults to the table's name.
	TableName string
	RunID     string
}

// Publisher dispatches tables to sinks. A nil TableWriter or EventPublisher
// disables the sql or kafka sink respectively.
type Publisher struct {
	db     TableWriter
	events EventPublisher
	logger zerolog.Logger
}

// New creates a publisher
func New(db TableWriter, events EventPublisher, logger zerolog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		events: events,
		logger: logger.With().Str("component", "publisher").Logger(),
	}
}

// Publish writes table to sink. Any failure is returned as a *PublishError.
func (p *Publisher) Publish(ctx context.Context, sink string, table *Table, opts Options) error {
	sink = strings.ToLower(strings.TrimSpace(sink))

	var err error
	switch sink {
	case SinkCSV:
		err = p.publishCSV(table, opts)
	case SinkSQL:
		err = p.publishSQL(ctx, table, opts)
	case SinkKafka:
		err = p.publishKafka(ctx, table, opts)
	case SinkGoogleSheets:
		err = fmt.Errorf("%w: google_sheets publishing is not available", ErrUnsupportedSink)
	default:
		err = fmt.Errorf("%w: %q (choose csv, sql or kafka)", ErrUnsupportedSink, sink)
	}
	if err != nil {
		return &PublishError{Sink: sink, Err: err}
	}

	p.logger.Info().
		Str("sink", sink).
		Str("table", table.Name).
		Int("rows", len(table.Records)).
		Msg("published results")
	return nil
}

func (p *Publisher) publishCSV(table *Table, opts Options) error {
	path := opts.Path
	if path == "" && table.Name != "" {
		path = filepath.Join(opts.OutputDir, table.Name+".csv")
	}
	if path == "" {
		return fmt.Errorf("%w: path", ErrMissingParameter)
	}
	return WriteCSV(path, table.Records)
}

func (p *Publisher) publishSQL(ctx context.Context, table *Table, opts Options) error {
	if p.db == nil {
		return fmt.Errorf("%w: database", ErrMissingParameter)
	}
	name := opts.TableName
	if name == "" {
		name = table.Name
	}
	if name == "" {
		return fmt.Errorf("%w: table_name", ErrMissingParameter)
	}
	if !database.ValidIdentifier(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return p.db.WriteResultTable(ctx, table.ResultTable(name))
}

func (p *Publisher) publishKafka(ctx context.Context, table *Table, opts Options) error {
	if p.events == nil {
		return fmt.Errorf("%w: kafka producer", ErrMissingParameter)
	}
	return p.events.PublishScores(ctx, opts.RunID, table.Records)
}
