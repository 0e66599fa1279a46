package repository

import (
	"fmt"

	"github.com/okian/nutriscore/internal/domain/model"
)

// Sentinel kinds for history errors.
var (
	ErrNotFound     = fmt.Errorf("history: %w", model.ErrNotFound)
	ErrInvalidLimit = fmt.Errorf("history: %w", model.ErrInvalidLimit)
)
