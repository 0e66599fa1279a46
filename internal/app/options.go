package service

import (
	"time"

	"github.com/okian/nutriscore/internal/adapters/repository"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of history writers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the history queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheSize sets the number of cached nutrition lookups. Zero disables
// eviction.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.cacheSize = size
		}
	}
}

// WithRequestTimeout bounds each upstream call.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithEngine sets the scoring engine.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithNutritionSource sets the upstream model client.
func WithNutritionSource(src NutritionSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithVideoFinder sets the recipe video lookup.
func WithVideoFinder(v VideoFinder) Option {
	return func(s *Service) {
		s.videos = v
	}
}

// WithImageArchive enables photo archiving.
func WithImageArchive(a ImageArchive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithHistoryStore enables analysis history. The service closes it on Stop.
func WithHistoryStore(st repository.Store) Option {
	return func(s *Service) {
		s.history = st
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides analysis ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
