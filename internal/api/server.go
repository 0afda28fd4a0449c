package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opintel/pkg/config"
	"opintel/pkg/logging"
	"opintel/pkg/version"
)

// NewServer creates and configures the HTTP server.
func NewServer(cfg config.ServerConfig, catalogH *CatalogHandler, analysisH *AnalysisHandler, hub *Hub) *http.Server {
	mux := http.NewServeMux()

	// 1. Health, version, logs, metrics
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.Handle("GET /metrics", promhttp.Handler())

	// 2. Catalog
	mux.HandleFunc("GET /api/catalog", catalogH.HandleLayers)
	mux.HandleFunc("GET /api/fires", catalogH.HandleFires)
	mux.HandleFunc("GET /api/fires/{year}", catalogH.HandleFireLayer)

	// 3. Selection and analysis
	mux.HandleFunc("POST /api/fires/{year}/{index}/select", analysisH.HandleSelectFire)
	mux.HandleFunc("POST /api/selection", analysisH.HandleSelection)
	mux.HandleFunc("GET /api/mode", analysisH.HandleGetMode)
	mux.HandleFunc("POST /api/mode", analysisH.HandleSetMode)
	mux.HandleFunc("GET /api/analysis", analysisH.HandleAnalysis)
	mux.HandleFunc("GET /api/analysis/buffer", analysisH.HandleBuffer)

	// 4. Map push channel
	if hub != nil {
		mux.Handle("GET /api/events", hub)
	}

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  time.Duration(cfg.ReadTimeout),
		WriteTimeout: time.Duration(cfg.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
