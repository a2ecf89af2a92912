package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/analysis"
	"github.com/trogers1052/finfun/internal/analyst"
	"github.com/trogers1052/finfun/internal/database"
	"github.com/trogers1052/finfun/internal/models"
	"github.com/trogers1052/finfun/internal/portfolio"
	"github.com/trogers1052/finfun/internal/scoring"
)

// maxUploadSize bounds a portfolio upload
const maxUploadSize = 10 << 20

// Analyzer serves and refreshes the cached portfolio analysis
type Analyzer interface {
	Latest(ctx context.Context) (*models.AnalysisResult, error)
	Refresh(trigger string, force bool) error
	PortfolioChanged(trigger string)
	Running() bool
	SectorStats(ctx context.Context) ([]scoring.SectorStats, error)
}

// Store is the persistence the handlers read from
type Store interface {
	GetCurrentPortfolio(ctx context.Context) (*models.Portfolio, error)
	ListAnalysisRuns(ctx context.Context, limit int) ([]*models.AnalysisRun, error)
	Ping(ctx context.Context) error
}

// Importer imports an uploaded portfolio file
type Importer interface {
	Import(ctx context.Context, filename string, r io.Reader) (*models.Portfolio, error)
}

// TickerSearcher looks up universe tickers
type TickerSearcher interface {
	Search(query string, limit int) ([]models.Ticker, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store    Store
	analyzer Analyzer
	importer Importer
	analyst  analyst.Analyst
	tickers  TickerSearcher
	logger   zerolog.Logger
}

// NewHandler creates a new Handler. analyst and tickers may be nil; the
// endpoints depending on them then answer 503.
func NewHandler(store Store, analyzer Analyzer, importer Importer, a analyst.Analyst, tickers TickerSearcher, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		analyzer: analyzer,
		importer: importer,
		analyst:  a,
		tickers:  tickers,
		logger:   logger,
	}
}

type dashboard struct {
	Portfolio    *models.Portfolio      `json:"portfolio"`
	Analysis     *models.AnalysisResult `json:"analysis"`
	AnalysisTime *time.Time             `json:"analysis_time"`
	Refreshing   bool                   `json:"refreshing"`
}

// Dashboard handles GET /
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.store.GetCurrentPortfolio(ctx)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	latest, err := h.analyzer.Latest(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// a missing or expired analysis is rebuilt in the background
	if latest == nil && p != nil {
		if err := h.analyzer.Refresh(models.TriggerManual, false); err != nil && !errors.Is(err, analysis.ErrRunInProgress) {
			h.logger.Error().Err(err).Msg("failed to start analysis")
		}
	}

	resp := dashboard{
		Portfolio:  p,
		Analysis:   latest,
		Refreshing: h.analyzer.Running(),
	}
	if latest != nil {
		resp.AnalysisTime = &latest.GeneratedAt
	}
	respondJSON(w, http.StatusOK, resp)
}

// AnalyzeNow handles GET /analyze_now
func (h *Handler) AnalyzeNow(w http.ResponseWriter, r *http.Request) {
	err := h.analyzer.Refresh(models.TriggerManual, true)
	if errors.Is(err, analysis.ErrRunInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "analysis started"})
}

// UploadForm handles GET /upload_portfolio
func (h *Handler) UploadForm(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"field":      "file",
		"extensions": []string{".csv", ".txt"},
		"columns":    []string{portfolio.ColumnSymbol, portfolio.ColumnAllocation},
		"total":      "allocation_percentage must sum to 100 (+/- 0.5)",
	})
}

// UploadPortfolio handles POST /upload_portfolio
func (h *Handler) UploadPortfolio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		http.Error(w, "no selected file", http.StatusBadRequest)
		return
	}
	if !portfolio.SupportedExtension(header.Filename) {
		http.Error(w, "file must be .csv or .txt", http.StatusBadRequest)
		return
	}

	p, err := h.importer.Import(r.Context(), header.Filename, file)
	if err != nil {
		var verr *portfolio.ValidationError
		if errors.As(err, &verr) || errors.Is(err, portfolio.ErrUnsupportedFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.analyzer.PortfolioChanged(models.TriggerImport)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"portfolio_id": p.ID,
		"holdings":     p.Holdings,
	})
}

// AnalyzeSymbol handles GET /analyze/{symbol}
func (h *Handler) AnalyzeSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	analysisType, err := analyst.NormalizeType(r.URL.Query().Get("analysis_type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.analyst == nil {
		http.Error(w, "market analyst is not configured", http.StatusServiceUnavailable)
		return
	}

	report, err := h.analyst.Analyze(r.Context(), symbol, analysisType)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("analysis failed")
		http.Error(w, "analysis failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// SearchTickers handles GET /api/v1/tickers/search
func (h *Handler) SearchTickers(w http.ResponseWriter, r *http.Request) {
	if h.tickers == nil {
		http.Error(w, "ticker index is not loaded", http.StatusServiceUnavailable)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	tickers, err := h.tickers.Search(q, queryInt(r, "limit", 10))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tickers == nil {
		tickers = []models.Ticker{}
	}
	respondJSON(w, http.StatusOK, tickers)
}

// ListRuns handles GET /api/v1/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListAnalysisRuns(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*models.AnalysisRun{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// SectorStats handles GET /api/v1/sectors/stats
func (h *Handler) SectorStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analyzer.SectorStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stats == nil {
		http.Error(w, "no analysis available", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	if v > 100 {
		return 100
	}
	return v
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
