package model

import "errors"

// ErrInvalidQuery is matched by every ValidationError.
var ErrInvalidQuery = errors.New("invalid food query")

// Client-facing validation messages.
const (
	MsgNoData          = "No data provided"
	MsgFoodRequired    = "Food item is required"
	MsgInvalidQuantity = "Invalid quantity value"
	MsgUnitRequired    = "Please select a unit of measurement"
	MsgInvalidUnit     = "Invalid unit of measurement"

	MsgNoFoodIdentified = "Could not identify a food item in the image"
)

// ValidationError carries a message safe to return to API clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets errors.Is match ErrInvalidQuery.
func (e *ValidationError) Unwrap() error { return ErrInvalidQuery }

// Failure kinds shared by the adapters and the service. Adapters wrap these
// so callers can classify errors without importing the adapter.
var (
	ErrUpstream     = errors.New("upstream nutrition source unavailable")
	ErrNotFound     = errors.New("analysis not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrUnavailable  = errors.New("not configured")
)
