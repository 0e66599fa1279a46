// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	historyqueue "github.com/okian/nutriscore/internal/adapters/mq/queue"
	workerpool "github.com/okian/nutriscore/internal/adapters/mq/worker"
	"github.com/okian/nutriscore/internal/adapters/repository"
	"github.com/okian/nutriscore/internal/domain/cache"
	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/logger"
	"github.com/okian/nutriscore/pkg/metrics"
)

// NutritionSource produces nutrition records from a language model.
type NutritionSource interface {
	FoodSuggestions(ctx context.Context) ([]string, error)
	NutritionInfo(ctx context.Context, q model.FoodQuery) (scoring.Record, error)
	IdentifyFood(ctx context.Context, image []byte, contentType string) (model.FoodQuery, error)
}

// VideoFinder looks up recipe videos. It never fails; no videos is nil.
type VideoFinder interface {
	RecipeVideos(ctx context.Context, food string, isRecipe bool) []model.Video
}

// ImageArchive stores uploaded photos and returns their key.
type ImageArchive interface {
	Archive(ctx context.Context, id string, data []byte, contentType string) (string, error)
}

// Fallbacks for image identifications the model got partly wrong.
const (
	fallbackQuantity = "1"
	fallbackUnit     = "units"
)

// Service implements the API dependencies for nutrition analysis.
type Service struct {
	mu sync.RWMutex

	// Core components
	engine  *scoring.Engine
	source  NutritionSource
	videos  VideoFinder
	archive ImageArchive
	history repository.Store
	lookups cache.Cache
	queue   *historyqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	cacheSize      int
	requestTimeout time.Duration

	// State
	started bool

	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      10_000,
		cacheSize:      1_000,
		requestTimeout: 30 * time.Second,
		now:            time.Now,
		newID:          uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.engine == nil {
		s.engine = scoring.NewEngine(scoring.WithLogger(s.logger.Named("scoring")))
	}
	s.lookups = cache.NewInMemoryCache(cache.WithMaxSize(s.cacheSize))

	return s
}

// Start starts the history writers. Without a history store it only marks
// the service as started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting nutrition service...")

	if s.history != nil {
		s.queue = historyqueue.NewInMemoryQueue(
			historyqueue.WithCapacity(s.queueSize),
			historyqueue.WithBufferSize(s.queueSize),
		)
		s.pool = workerpool.NewPool(s.workerCount, s.queue, s.history,
			workerpool.WithLogger(s.logger.Named("history")),
		)
		// Writers outlive the caller's context; Stop drains them.
		s.pool.Start(context.WithoutCancel(ctx))
	} else {
		s.logger.Warn(ctx, "history store not configured; analyses will not be recorded")
	}

	s.started = true
	s.logger.Info(ctx, "nutrition service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("cacheSize", s.cacheSize),
		logger.String("policy", s.engine.Policy().Version),
		logger.Bool("nutritionSource", s.source != nil),
		logger.Bool("history", s.history != nil),
		logger.Bool("imageArchive", s.archive != nil),
	)
	return nil
}

// Stop drains pending history writes and closes the history store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping nutrition service...")

	var firstErr error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close history: %w", err)
		}
	}

	s.started = false
	s.logger.Info(ctx, "nutrition service stopped")
	return firstErr
}

// Suggestions returns popular dishes from the model.
func (s *Service) Suggestions(ctx context.Context) ([]string, error) {
	if s.source == nil {
		return nil, ErrNoNutritionSource
	}
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	return s.source.FoodSuggestions(ctx)
}

// CalculateNutrition validates q, looks up its nutrition and scores it.
// Videos are attached for recipes.
func (s *Service) CalculateNutrition(ctx context.Context, q model.FoodQuery) (*model.Analysis, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	a, err := s.analyze(ctx, s.newID(), q, model.SourceText)
	if err != nil {
		return nil, err
	}
	if a.IsRecipe && s.videos != nil {
		a.RecipeURLs = s.videos.RecipeVideos(ctx, a.FoodItem, true)
	}

	s.record(ctx, a, model.SourceText)
	return a, nil
}

// AnalyzeImage identifies the food in a photo, then scores it like
// CalculateNutrition. Videos are attached for every valid food.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte, contentType string) (*model.Analysis, error) {
	if s.source == nil {
		return nil, ErrNoNutritionSource
	}
	metrics.RecordImageUpload(int64(len(image)))

	id := s.newID()
	identifyCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	q, err := s.source.IdentifyFood(identifyCtx, image, contentType)
	cancel()
	if err != nil {
		return nil, err
	}
	q = q.Normalize()
	if q.FoodItem == "" {
		return nil, &model.ValidationError{Message: model.MsgNoFoodIdentified}
	}
	q = s.repairIdentified(ctx, q)
	if err := q.Validate(); err != nil {
		return nil, err
	}

	a, err := s.analyze(ctx, id, q, model.SourceImage)
	if err != nil {
		return nil, err
	}
	if a.IsValidFood && s.videos != nil {
		a.RecipeURLs = s.videos.RecipeVideos(ctx, a.FoodItem, a.IsRecipe)
	}
	a.ImageKey = s.archiveImage(ctx, id, image, contentType)

	s.record(ctx, a, model.SourceImage)
	return a, nil
}

// ScoreRecord scores a nutrition record directly.
func (s *Service) ScoreRecord(ctx context.Context, rec scoring.Record) scoring.Report {
	return s.evaluate(ctx, rec, model.SourceDirect)
}

// History returns the newest recorded analyses.
func (s *Service) History(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Recent(ctx, limit)
}

// HistoryEntry returns one recorded analysis.
func (s *Service) HistoryEntry(ctx context.Context, id string) (model.HistoryEntry, error) {
	if s.history == nil {
		return model.HistoryEntry{}, ErrHistoryDisabled
	}
	return s.history.Get(ctx, id)
}

// TopFoods returns the best scoring foods seen so far.
func (s *Service) TopFoods(ctx context.Context, limit int) ([]model.FoodRank, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.TopFoods(ctx, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"cacheSize":    s.cacheSize,
		"cacheEntries": s.lookups.Size(),
		"policy":       s.engine.Policy().Version,
		"nutrients":    s.engine.Ranges().Len(),
	}

	if s.started && s.queue != nil {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	if s.history != nil && s.started {
		if sum, err := s.history.Summary(ctx); err == nil {
			stats["history"] = sum
			metrics.UpdateHistoryEntries(sum.Analyses)
		} else {
			s.logger.Warn(ctx, "history summary failed", logger.Error(err))
		}
	}

	return stats
}

// analyze looks up (or reuses) the nutrition record for q and scores it.
func (s *Service) analyze(ctx context.Context, id string, q model.FoodQuery, src model.Source) (*model.Analysis, error) {
	rec, err := s.lookup(ctx, q)
	if err != nil {
		return nil, err
	}

	rep := s.evaluate(ctx, rec, src)
	return &model.Analysis{
		ID:            id,
		FoodItem:      q.FoodItem,
		Quantity:      q.Amount(),
		Unit:          q.Unit,
		NutritionInfo: rec,
		Insight:       rec.Insight,
		IsRecipe:      rec.IsRecipe,
		IsValidFood:   rec.Valid(),
		HealthScore:   rep.HealthScore,
		Status:        model.StatusSuccess,
	}, nil
}

func (s *Service) lookup(ctx context.Context, q model.FoodQuery) (scoring.Record, error) {
	if s.source == nil {
		return scoring.Record{}, ErrNoNutritionSource
	}

	key := q.CacheKey()
	if rec, ok := s.lookups.Get(ctx, key); ok {
		return rec, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	rec, err := s.source.NutritionInfo(ctx, q)
	if err != nil {
		return scoring.Record{}, err
	}
	s.lookups.Put(ctx, key, rec)
	return rec, nil
}

func (s *Service) evaluate(ctx context.Context, rec scoring.Record, src model.Source) scoring.Report {
	start := time.Now()
	rep := s.engine.Evaluate(ctx, rec)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)

	metrics.RecordAnalysis(string(src), string(rep.Outcome))
	if rep.Outcome != scoring.OutcomeInvalid {
		metrics.RecordHealthScore(rep.Score)
	}
	for _, name := range rep.Unparsable {
		metrics.RecordUnparsableNutrient(name)
	}
	return rep
}

// repairIdentified fills in what the vision model left out so a recognized
// food is still scored.
func (s *Service) repairIdentified(ctx context.Context, q model.FoodQuery) model.FoodQuery {
	if _, ok := q.Quantity.Float(); !ok {
		s.logger.Debug(ctx, "identified quantity unusable", logger.String("quantity", string(q.Quantity)))
		q.Quantity = fallbackQuantity
	}
	if !model.ValidUnit(q.Unit) {
		s.logger.Debug(ctx, "identified unit unusable", logger.String("unit", q.Unit))
		q.Unit = fallbackUnit
	}
	return q
}

func (s *Service) archiveImage(ctx context.Context, id string, image []byte, contentType string) string {
	if s.archive == nil {
		metrics.RecordImageArchive("skipped")
		return ""
	}
	key, err := s.archive.Archive(ctx, id, image, contentType)
	if err != nil {
		metrics.RecordImageArchive("error")
		s.logger.Warn(ctx, "photo archive failed", logger.String("analysis_id", id), logger.Error(err))
		return ""
	}
	metrics.RecordImageArchive("ok")
	return key
}

// record hands the analysis to the history writers. A full queue drops it.
func (s *Service) record(ctx context.Context, a *model.Analysis, src model.Source) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.queue == nil {
		return
	}
	if !s.queue.Enqueue(ctx, a.Entry(src, s.now())) {
		metrics.RecordHistoryError()
		s.logger.Warn(ctx, "history queue rejected analysis",
			logger.String("analysis_id", a.ID),
			logger.Int("queue_len", s.queue.Len(ctx)),
		)
	}
}
