package api

import "github.com/okian/nutriscore/pkg/logger"

// Handler limits.
const (
	defaultMaxBodyBytes   = 1 << 20
	defaultMaxUploadBytes = 16 << 20
	defaultHistoryLimit   = 20
	defaultMaxLimit       = 100
)

type options struct {
	maxBodyBytes   int64
	maxUploadBytes int64
	defaultLimit   int
	maxLimit       int
	logger         logger.Logger
}

func defaultOptions() options {
	return options{
		maxBodyBytes:   defaultMaxBodyBytes,
		maxUploadBytes: defaultMaxUploadBytes,
		defaultLimit:   defaultHistoryLimit,
		maxLimit:       defaultMaxLimit,
	}
}

// Option configures the Server.
type Option func(*options)

// WithMaxUploadBytes caps POST /analyze_image bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithMaxBodyBytes caps JSON request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

// WithMaxLimit caps the limit query parameter of list endpoints.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithDefaultLimit is used when a list request has no limit.
func WithDefaultLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultLimit = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
