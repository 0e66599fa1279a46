// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/nutriscore/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory history queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of history writers.
	WorkerCount int `koanf:"worker_count"`

	// CacheSize bounds the nutrition lookup cache.
	CacheSize int `koanf:"cache_size"`

	// MaxUploadBytes caps POST /analyze_image bodies.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// RequestTimeoutMS bounds each upstream call.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxHistoryLimit caps GET /history?limit and GET /top_foods?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// OpenAI chat completion settings.
	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIModel   string `koanf:"openai_model"`
	OpenAIBaseURL string `koanf:"openai_base_url"`

	// YouTube Data API settings. An empty key disables video lookups.
	YouTubeAPIKey     string `koanf:"youtube_api_key"`
	YouTubeRegion     string `koanf:"youtube_region"`
	YouTubeMaxResults int    `koanf:"youtube_max_results"`

	// HistoryDBPath is the sqlite file for analysis history.
	HistoryDBPath string `koanf:"history_db_path"`

	// ImageBucket enables photo archiving to S3 when set.
	ImageBucket string `koanf:"image_bucket"`
	ImageRegion string `koanf:"image_region"`

	// NutrientRanges overrides the reference scoring ranges per nutrient.
	NutrientRanges map[string]scoring.Range `koanf:"nutrient_ranges"`
}

// New creates a Config with defaults. Context is accepted first to follow the
// project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":5000",
		QueueSize:         10_000,
		WorkerCount:       runtime.NumCPU(),
		CacheSize:         1_000,
		MaxUploadBytes:    16 << 20,
		RequestTimeoutMS:  30_000,
		MaxHistoryLimit:   100,
		OpenAIModel:       "gpt-4o",
		YouTubeRegion:     "IN",
		YouTubeMaxResults: 10,
		HistoryDBPath:     "nutriscore.db",
		NutrientRanges:    scoring.DefaultRangeMap(),
	}
}

// Validate checks the fields the service cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	if _, err := c.RangeTable(); err != nil {
		return err
	}
	return nil
}

// RangeTable builds the immutable scoring ranges from NutrientRanges.
func (c *Config) RangeTable() (*scoring.RangeTable, error) {
	t, err := scoring.NewRangeTable(c.NutrientRanges)
	if err != nil {
		return nil, fmt.Errorf("%w: nutrient_ranges: %w", ErrInvalidConfig, err)
	}
	return t, nil
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
