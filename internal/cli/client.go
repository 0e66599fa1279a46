package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/internal/domain/types"
)

// ErrRequestFailed is matched by every non-2xx response.
var ErrRequestFailed = errors.New("request failed")

// APIError is a decoded error envelope.
type APIError struct {
	StatusCode int
	Body       types.ErrorBody
}

func (e *APIError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Body.ErrorType, e.Body.Error)
}

// Unwrap lets errors.Is match ErrRequestFailed.
func (e *APIError) Unwrap() error { return ErrRequestFailed }

// Client talks to a running nutriscore server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks that the server answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Analyze posts q to /calculate_nutrition.
func (c *Client) Analyze(ctx context.Context, q model.FoodQuery) (*model.Analysis, error) {
	var a model.Analysis
	if err := c.do(ctx, http.MethodPost, "/calculate_nutrition", q, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Score posts rec to /health_score.
func (c *Client) Score(ctx context.Context, rec scoring.Record) (scoring.Report, error) {
	var resp types.ScoreResponse
	if err := c.do(ctx, http.MethodPost, "/health_score", rec, &resp); err != nil {
		return scoring.Report{}, err
	}
	return resp.HealthScore, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, &apiErr.Body)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
