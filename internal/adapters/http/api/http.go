// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/nutriscore/internal/domain/types"
	"github.com/okian/nutriscore/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	NutritionDependencies
	ImageDependencies
	HistoryDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	nutritionHandler *NutritionHandler
	imageHandler     *ImageHandler
	historyHandler   *HistoryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}

	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		nutritionHandler: NewNutritionHandler(deps, cfg.maxBodyBytes, cfg.logger),
		imageHandler:     NewImageHandler(deps, cfg.maxUploadBytes, cfg.logger),
		historyHandler:   NewHistoryHandler(deps, cfg.defaultLimit, cfg.maxLimit, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /get_food_suggestions", MetricsMiddleware(s.nutritionHandler.HandleSuggestions, "get_food_suggestions"))
	mux.HandleFunc("POST /calculate_nutrition", MetricsMiddleware(s.nutritionHandler.HandleCalculate, "calculate_nutrition"))
	mux.HandleFunc("POST /health_score", MetricsMiddleware(s.nutritionHandler.HandleHealthScore, "health_score"))
	mux.HandleFunc("POST /analyze_image", MetricsMiddleware(s.imageHandler.HandleAnalyze, "analyze_image"))
	mux.HandleFunc("GET /history", MetricsMiddleware(s.historyHandler.HandleList, "history"))
	mux.HandleFunc("GET /history/{id}", MetricsMiddleware(s.historyHandler.HandleGet, "history_entry"))
	mux.HandleFunc("GET /top_foods", MetricsMiddleware(s.historyHandler.HandleTopFoods, "top_foods"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err and writes the error envelope. Server-side
// failures are logged; client mistakes are not.
func writeError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error, upstream problem) {
	p := classify(err, upstream)
	if p.status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.Int("status", p.status), logger.String("error_type", p.errorType), logger.Error(err))
	}
	writeJSON(w, p.status, types.NewErrorBody(p.errorType, p.message))
}
