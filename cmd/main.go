package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/nutriscore/internal/adapters/http/api"
	"github.com/okian/nutriscore/internal/adapters/http/swagger"
	"github.com/okian/nutriscore/internal/adapters/imagestore"
	"github.com/okian/nutriscore/internal/adapters/llm"
	"github.com/okian/nutriscore/internal/adapters/repository"
	"github.com/okian/nutriscore/internal/adapters/video"
	app "github.com/okian/nutriscore/internal/app"
	"github.com/okian/nutriscore/internal/config"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/logger"
	"github.com/okian/nutriscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 15 * time.Second
	writeTimeout              = 90 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(shutdownCtx, "server stopped")
}

// newService wires the adapters selected by cfg into the service. Optional
// collaborators are skipped with a warning when not configured.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	ranges, err := cfg.RangeTable()
	if err != nil {
		return nil, err
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithEngine(scoring.NewEngine(
			scoring.WithRanges(ranges),
			scoring.WithLogger(log.Named("scoring")),
		)),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithCacheSize(cfg.CacheSize),
		app.WithRequestTimeout(cfg.RequestTimeout()),
		app.WithVideoFinder(video.NewYouTube(cfg.YouTubeAPIKey,
			video.WithRegion(cfg.YouTubeRegion),
			video.WithMaxResults(cfg.YouTubeMaxResults),
			video.WithLogger(log.Named("video")),
		)),
	}

	source, err := llm.New(cfg.OpenAIAPIKey,
		llm.WithModel(cfg.OpenAIModel),
		llm.WithBaseURL(cfg.OpenAIBaseURL),
		llm.WithLogger(log.Named("llm")),
	)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		log.Warn(ctx, "openai_api_key not set; nutrition lookups will fail")
	case err != nil:
		return nil, fmt.Errorf("language model client: %w", err)
	default:
		opts = append(opts, app.WithNutritionSource(source))
	}

	if cfg.ImageBucket != "" {
		archive, err := imagestore.NewS3Archive(ctx, cfg.ImageBucket, cfg.ImageRegion)
		if err != nil {
			return nil, fmt.Errorf("image archive: %w", err)
		}
		opts = append(opts, app.WithImageArchive(archive))
	}

	if cfg.HistoryDBPath != "" {
		store, err := repository.NewSQLiteStore(ctx, cfg.HistoryDBPath, repository.WithMaxLimit(cfg.MaxHistoryLimit))
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		opts = append(opts, app.WithHistoryStore(store))
	}

	return app.New(opts...), nil
}

// newMux registers the API and documentation routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithMaxLimit(cfg.MaxHistoryLimit),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if cacheEntries, ok := stats["cacheEntries"].(int); ok {
		metrics.UpdateCacheSize(cacheEntries)
	}
}
