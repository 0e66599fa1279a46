package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrNoData        = errors.New("no data provided")
	ErrInvalidJSON   = errors.New("invalid json body")
	ErrNoImage       = errors.New("no image file provided")
	ErrEmptyFilename = errors.New("no selected image file")
	ErrNotImage      = errors.New("uploaded file is not an image")
	ErrTooLarge      = errors.New("upload too large")
)

// Client-facing messages.
const (
	msgInvalidJSON    = "Invalid JSON body"
	msgBadRequest     = "Invalid request body"
	msgNoImage        = "No image file provided"
	msgEmptyFilename  = "No selected image file"
	msgNotImage       = "Uploaded file is not an image"
	msgTooLarge       = "Uploaded file is too large"
	msgInvalidLimit   = "Invalid limit"
	msgNotFound       = "Analysis not found"
	msgUnavailable    = "Analysis history is not available"
	msgSuggestionsErr = "Failed to fetch food suggestions"
	msgUpstreamErr    = "Failed to get nutrition information from OpenAI"
	msgServerErr      = "An unexpected error occurred"
)

// Error records the operation and kind of a failed request.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind tags err with a kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with the operation.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// problem is how a failure is shown to clients.
type problem struct {
	status    int
	errorType string
	message   string
}

// classify maps err to a status, error type and message. upstream is used
// for language model failures, which each endpoint reports differently.
func classify(err error, upstream problem) problem {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, verr.Message}
	case errors.Is(err, ErrNoData):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, model.MsgNoData}
	case errors.Is(err, ErrInvalidJSON):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, msgInvalidJSON}
	case errors.Is(err, ErrBadRequest):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, msgBadRequest}
	case errors.Is(err, ErrNoImage):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, msgNoImage}
	case errors.Is(err, ErrEmptyFilename):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, msgEmptyFilename}
	case errors.Is(err, ErrNotImage):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, msgNotImage}
	case errors.Is(err, ErrTooLarge):
		return problem{http.StatusRequestEntityTooLarge, types.ErrorTypeTooLarge, msgTooLarge}
	case errors.Is(err, model.ErrInvalidLimit):
		return problem{http.StatusBadRequest, types.ErrorTypeValidation, msgInvalidLimit}
	case errors.Is(err, model.ErrNotFound):
		return problem{http.StatusNotFound, types.ErrorTypeNotFound, msgNotFound}
	case errors.Is(err, model.ErrUnavailable):
		return problem{http.StatusServiceUnavailable, types.ErrorTypeUnavailable, msgUnavailable}
	case errors.Is(err, model.ErrUpstream):
		return upstream
	default:
		return problem{http.StatusInternalServerError, types.ErrorTypeServer, msgServerErr}
	}
}

var (
	nutritionUpstream   = problem{http.StatusServiceUnavailable, types.ErrorTypeUpstream, msgUpstreamErr}
	suggestionsUpstream = problem{http.StatusInternalServerError, types.ErrorTypeSuggestions, msgSuggestionsErr}
)
