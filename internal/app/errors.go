package service

import (
	"fmt"

	"github.com/okian/nutriscore/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrNoNutritionSource = fmt.Errorf("nutrition source not configured: %w", model.ErrUpstream)
	ErrHistoryDisabled   = fmt.Errorf("analysis history: %w", model.ErrUnavailable)
)
