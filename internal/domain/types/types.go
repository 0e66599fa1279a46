// Package types contains the response envelopes shared by the HTTP API and
// its clients.
package types

import (
	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
)

// Status values carried by every envelope.
const (
	StatusSuccess = model.StatusSuccess
	StatusError   = "error"
)

// Error types reported to clients.
const (
	ErrorTypeValidation  = "validation_error"
	ErrorTypeSuggestions = "food_suggestions_error"
	ErrorTypeUpstream    = "openai_api_error"
	ErrorTypeNotFound    = "not_found"
	ErrorTypeTooLarge    = "payload_too_large"
	ErrorTypeUnavailable = "history_unavailable"
	ErrorTypeServer      = "server_error"
)

// Suggestions is the GET /get_food_suggestions body.
type Suggestions struct {
	Suggestions []string `json:"suggestions"`
}

// History is the GET /history body.
type History struct {
	Entries []model.HistoryEntry `json:"entries"`
	Status  string               `json:"status"`
}

// TopFoods is the GET /top_foods body.
type TopFoods struct {
	Foods  []model.FoodRank `json:"foods"`
	Status string           `json:"status"`
}

// ScoreResponse is the POST /health_score body.
type ScoreResponse struct {
	HealthScore scoring.Report `json:"health_score"`
	Status      string         `json:"status"`
}

// ErrorBody is returned for every failed request.
type ErrorBody struct {
	Error     string `json:"error"`
	Status    string `json:"status"`
	ErrorType string `json:"error_type"`
}

// NewErrorBody builds an error envelope.
func NewErrorBody(errorType, msg string) ErrorBody {
	return ErrorBody{Error: msg, Status: StatusError, ErrorType: errorType}
}
