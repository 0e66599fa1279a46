package video

import (
	"net/http"

	"github.com/okian/nutriscore/pkg/logger"
)

// Option applies a configuration option to the YouTube client.
type Option func(*YouTube)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(y *YouTube) {
		if u != "" {
			y.baseURL = u
		}
	}
}

// WithRegion sets the regionCode search parameter.
func WithRegion(region string) Option {
	return func(y *YouTube) {
		if region != "" {
			y.region = region
		}
	}
}

// WithMaxResults caps the number of videos returned.
func WithMaxResults(n int) Option {
	return func(y *YouTube) {
		if n > 0 {
			y.maxResults = n
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(y *YouTube) {
		if c != nil {
			y.client = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(y *YouTube) {
		if l != nil {
			y.logger = l
		}
	}
}
