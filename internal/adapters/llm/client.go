// Package llm asks an OpenAI-compatible chat model for food suggestions,
// nutrition records and photo identification.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/logger"
	"github.com/okian/nutriscore/pkg/metrics"
)

const defaultModel = openai.GPT4o

// Operation labels used for metrics and logs.
const (
	opSuggestions = "suggestions"
	opNutrition   = "nutrition"
	opIdentify    = "identify"
)

// Client wraps the chat completion API.
type Client struct {
	api     *openai.Client
	model   string
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

// New creates a client for apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("llm")
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.http != nil {
		cfg.HTTPClient = c.http
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c, nil
}

// Model returns the configured chat model.
func (c *Client) Model() string { return c.model }

// FoodSuggestions returns popular dishes to offer as input hints.
func (c *Client) FoodSuggestions(ctx context.Context) ([]string, error) {
	content, err := c.complete(ctx, opSuggestions, suggestionsTemperature,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: suggestionsPrompt},
	)
	if err != nil {
		return nil, err
	}

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, c.decodeFailed(ctx, opSuggestions, err)
	}

	suggestions := make([]string, 0, len(out.Suggestions))
	for _, s := range out.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions, nil
}

// NutritionInfo returns the nutrition record for a normalized, validated
// query.
func (c *Client) NutritionInfo(ctx context.Context, q model.FoodQuery) (scoring.Record, error) {
	content, err := c.complete(ctx, opNutrition, nutritionTemperature,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: nutritionSystemPrompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: nutritionUserPrompt(q.FoodItem, q.Amount(), q.Unit)},
	)
	if err != nil {
		return scoring.Record{}, err
	}

	var rec scoring.Record
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return scoring.Record{}, c.decodeFailed(ctx, opNutrition, err)
	}
	return rec, nil
}

// IdentifyFood asks the vision model what the photo shows. The returned
// query is not validated.
func (c *Client) IdentifyFood(ctx context.Context, image []byte, contentType string) (model.FoodQuery, error) {
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)

	content, err := c.complete(ctx, opIdentify, identifyTemperature,
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf(identifySystemPrompt, strings.Join(model.ValidUnits(), ", ")),
		},
		openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: "What food is in this photo and how much of it is there?"},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailLow,
				}},
			},
		},
	)
	if err != nil {
		return model.FoodQuery{}, err
	}

	var q model.FoodQuery
	if err := json.Unmarshal([]byte(content), &q); err != nil {
		return model.FoodQuery{}, c.decodeFailed(ctx, opIdentify, err)
	}
	return q, nil
}

// complete runs one JSON-mode chat completion and returns the first choice.
func (c *Client) complete(ctx context.Context, op string, temperature float32, msgs ...openai.ChatCompletionMessage) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	metrics.RecordLLMLatency(op, float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordLLMRequest(op, "error")
		c.logger.Error(ctx, "chat completion failed", logger.String("operation", op), logger.Error(err))
		return "", fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordLLMRequest(op, "empty")
		return "", fmt.Errorf("%w: %s: %w", ErrUpstream, op, ErrEmptyResponse)
	}

	metrics.RecordLLMRequest(op, "ok")
	return stripFences(resp.Choices[0].Message.Content), nil
}

func (c *Client) decodeFailed(ctx context.Context, op string, err error) error {
	metrics.RecordLLMRequest(op, "malformed")
	c.logger.Warn(ctx, "model returned malformed JSON", logger.String("operation", op), logger.Error(err))
	return fmt.Errorf("%w: %s: decode response: %w", ErrUpstream, op, err)
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
