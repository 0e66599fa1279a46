package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/internal/domain/types"
	"github.com/okian/nutriscore/pkg/logger"
)

// NutritionDependencies defines the text analysis operations.
type NutritionDependencies interface {
	Suggestions(ctx context.Context) ([]string, error)
	CalculateNutrition(ctx context.Context, q model.FoodQuery) (*model.Analysis, error)
	ScoreRecord(ctx context.Context, rec scoring.Record) scoring.Report
}

// NutritionHandler serves suggestions, text analysis and direct scoring.
type NutritionHandler struct {
	deps         NutritionDependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewNutritionHandler creates a new nutrition handler.
func NewNutritionHandler(deps NutritionDependencies, maxBodyBytes int64, log logger.Logger) *NutritionHandler {
	return &NutritionHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: log}
}

// HandleSuggestions handles GET /get_food_suggestions requests.
func (h *NutritionHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_food_suggestions"
	list, err := h.deps.Suggestions(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), suggestionsUpstream)
		return
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, types.Suggestions{Suggestions: list})
}

// HandleCalculate handles POST /calculate_nutrition requests.
func (h *NutritionHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculate_nutrition"
	var q model.FoodQuery
	if err := h.decode(w, r, &q); err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	a, err := h.deps.CalculateNutrition(r.Context(), q)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleHealthScore handles POST /health_score requests. The posted
// nutrition record is scored without calling the language model.
func (h *NutritionHandler) HandleHealthScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.health_score"
	var rec scoring.Record
	if err := h.decode(w, r, &rec); err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	rep := h.deps.ScoreRecord(r.Context(), rec)
	writeJSON(w, http.StatusOK, types.ScoreResponse{HealthScore: rep, Status: types.StatusSuccess})
}

// decode reads a JSON object body into v. Empty bodies, null and {} are
// reported as missing data.
func (h *NutritionHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind("api.decode", ErrTooLarge, err)
		}
		return WrapKind("api.decode", ErrBadRequest, err)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return NewKind("api.decode", ErrNoData)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return WrapKind("api.decode", ErrInvalidJSON, err)
	}
	if len(probe) == 0 {
		return NewKind("api.decode", ErrNoData)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return WrapKind("api.decode", ErrInvalidJSON, err)
	}
	return nil
}
