// Package repository persists analysis history.
package repository

import (
	"context"

	"github.com/okian/nutriscore/internal/domain/model"
)

// Summary aggregates the whole history.
type Summary struct {
	Analyses     int     `json:"analyses"`
	Foods        int     `json:"foods"`
	Recipes      int     `json:"recipes"`
	InvalidFoods int     `json:"invalid_foods"`
	AverageScore float64 `json:"average_score"`
}

// Store provides read/write access to analysis history.
type Store interface {
	// Save records an analysis summary. Saving an existing ID is a no-op.
	Save(ctx context.Context, e model.HistoryEntry) error

	// Get returns one entry. Returns ErrNotFound if the ID is unknown.
	Get(ctx context.Context, id string) (model.HistoryEntry, error)

	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error)

	// TopFoods returns valid foods ordered by their best score, then name.
	TopFoods(ctx context.Context, limit int) ([]model.FoodRank, error)

	// Summary aggregates every stored entry.
	Summary(ctx context.Context) (Summary, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	Close() error
}
