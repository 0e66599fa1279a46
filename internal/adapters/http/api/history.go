package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/types"
	"github.com/okian/nutriscore/pkg/logger"
)

// HistoryDependencies defines the interface for history reads.
type HistoryDependencies interface {
	History(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	HistoryEntry(ctx context.Context, id string) (model.HistoryEntry, error)
	TopFoods(ctx context.Context, limit int) ([]model.FoodRank, error)
}

// HistoryHandler handles history and top food requests.
type HistoryHandler struct {
	deps         HistoryDependencies
	defaultLimit int
	maxLimit     int
	logger       logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, defaultLimit, maxLimit int, log logger.Logger) *HistoryHandler {
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &HistoryHandler{
		deps:         deps,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       log,
	}
}

// HandleList handles GET /history?limit=N requests.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	n, err := h.limit(r)
	if err != nil {
		writeError(r.Context(), w, h.logger, WrapKind(op, model.ErrInvalidLimit, err), nutritionUpstream)
		return
	}
	entries, err := h.deps.History(r.Context(), n)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, types.History{Entries: entries, Status: types.StatusSuccess})
}

// HandleGet handles GET /history/{id} requests.
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history_entry"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(r.Context(), w, h.logger, NewKind(op, model.ErrNotFound), nutritionUpstream)
		return
	}
	entry, err := h.deps.HistoryEntry(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleTopFoods handles GET /top_foods?limit=N requests.
func (h *HistoryHandler) HandleTopFoods(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top_foods"
	n, err := h.limit(r)
	if err != nil {
		writeError(r.Context(), w, h.logger, WrapKind(op, model.ErrInvalidLimit, err), nutritionUpstream)
		return
	}
	foods, err := h.deps.TopFoods(r.Context(), n)
	if err != nil {
		writeError(r.Context(), w, h.logger, Wrap(op, err), nutritionUpstream)
		return
	}
	if foods == nil {
		foods = []model.FoodRank{}
	}
	writeJSON(w, http.StatusOK, types.TopFoods{Foods: foods, Status: types.StatusSuccess})
}

// limit reads ?limit=, falling back to the default when absent.
func (h *HistoryHandler) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse limit %q: %w", raw, err)
	}
	if n < 1 || n > h.maxLimit {
		return 0, fmt.Errorf("limit %d outside [1, %d]", n, h.maxLimit)
	}
	return n, nil
}
