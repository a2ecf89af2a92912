package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))

	r.HandleFunc("/", handler.Dashboard).Methods("GET")
	r.HandleFunc("/analyze_now", handler.AnalyzeNow).Methods("GET")
	r.HandleFunc("/upload_portfolio", handler.UploadForm).Methods("GET")
	r.HandleFunc("/upload_portfolio", handler.UploadPortfolio).Methods("POST")
	r.HandleFunc("/analyze/{symbol}", handler.AnalyzeSymbol).Methods("GET")

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tickers/search", handler.SearchTickers).Methods("GET")
	api.HandleFunc("/runs", handler.ListRuns).Methods("GET")
	api.HandleFunc("/sectors/stats", handler.SectorStats).Methods("GET")

	return r
}
