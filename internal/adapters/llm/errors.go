package llm

import (
	"errors"
	"fmt"

	"github.com/okian/nutriscore/internal/domain/model"
)

// Sentinel kinds for upstream model errors.
var (
	ErrUpstream      = fmt.Errorf("language model: %w", model.ErrUpstream)
	ErrEmptyResponse = errors.New("language model returned no choices")
	ErrMissingAPIKey = errors.New("openai api key is not configured")
)
