package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/pkg/metrics"
)

const (
	defaultMaxLimit              = 100
	defaultMetricsUpdateInterval = 5 * time.Second

	// Fixed width keeps lexical order equal to time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLiteStore is a Store backed by a single sqlite file.
type SQLiteStore struct {
	db *sql.DB

	maxLimit              int
	metricsUpdateInterval time.Duration

	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and starts the
// metrics updater, which stops with ctx or Close.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:                    db,
		maxLimit:              defaultMaxLimit,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	s.updateMetrics(ctx)
	s.startMetricsUpdater(ctx)
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS analyses (
        id TEXT PRIMARY KEY,
        food_item TEXT NOT NULL,
        quantity REAL NOT NULL,
        unit TEXT NOT NULL,
        score REAL NOT NULL,
        message TEXT NOT NULL,
        color TEXT NOT NULL,
        is_recipe INTEGER NOT NULL,
        is_valid_food INTEGER NOT NULL,
        source TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
    CREATE INDEX IF NOT EXISTS idx_analyses_food_item ON analyses(food_item);
    `

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save implements Store.Save.
func (s *SQLiteStore) Save(ctx context.Context, e model.HistoryEntry) error { //nolint:gocritic // hugeParam: value type shared with the queue
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
        INSERT INTO analyses (id, food_item, quantity, unit, score, message, color, is_recipe, is_valid_food, source, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO NOTHING
    `
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.FoodItem, e.Quantity, e.Unit, e.Score, e.Message, e.Color,
		e.IsRecipe, e.IsValidFood, string(e.Source), createdAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const entryColumns = `id, food_item, quantity, unit, score, message, color, is_recipe, is_valid_food, source, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (model.HistoryEntry, error) {
	var (
		e         model.HistoryEntry
		source    string
		createdAt string
	)
	err := row.Scan(&e.ID, &e.FoodItem, &e.Quantity, &e.Unit, &e.Score, &e.Message, &e.Color,
		&e.IsRecipe, &e.IsValidFood, &source, &createdAt)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	e.Source = model.Source(source)
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("parse created_at: %w", err)
	}
	return e, nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.HistoryEntry, error) {
	defer s.observeQuery(time.Now())

	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM analyses WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.HistoryEntry{}, ErrNotFound
	}
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return e, nil
}

// Recent implements Store.Recent.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if err := s.checkLimit(limit); err != nil {
		return nil, err
	}
	defer s.observeQuery(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent analyses: %w", err)
	}
	defer rows.Close()

	out := make([]model.HistoryEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TopFoods implements Store.TopFoods.
func (s *SQLiteStore) TopFoods(ctx context.Context, limit int) ([]model.FoodRank, error) {
	if err := s.checkLimit(limit); err != nil {
		return nil, err
	}
	defer s.observeQuery(time.Now())

	query := `
        SELECT food_item, MAX(score) AS best, COUNT(*)
        FROM analyses
        WHERE is_valid_food = 1
        GROUP BY food_item
        ORDER BY best DESC, food_item ASC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top foods: %w", err)
	}
	defer rows.Close()

	out := make([]model.FoodRank, 0, limit)
	for rows.Next() {
		var r model.FoodRank
		if err := rows.Scan(&r.FoodItem, &r.BestScore, &r.Analyses); err != nil {
			return nil, fmt.Errorf("scan top food: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary implements Store.Summary.
func (s *SQLiteStore) Summary(ctx context.Context) (Summary, error) {
	defer s.observeQuery(time.Now())

	query := `
        SELECT
            COUNT(*),
            COUNT(DISTINCT food_item),
            COALESCE(SUM(is_recipe), 0),
            COALESCE(SUM(CASE WHEN is_valid_food = 0 THEN 1 ELSE 0 END), 0),
            COALESCE(AVG(CASE WHEN is_valid_food = 1 THEN score END), 0)
        FROM analyses
    `
	var sum Summary
	err := s.db.QueryRowContext(ctx, query).Scan(
		&sum.Analyses, &sum.Foods, &sum.Recipes, &sum.InvalidFoods, &sum.AverageScore)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize analyses: %w", err)
	}
	return sum, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

// Close stops the metrics updater and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) checkLimit(limit int) error {
	if limit < 1 || limit > s.maxLimit {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidLimit, limit, s.maxLimit)
	}
	return nil
}

func (s *SQLiteStore) observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
}

// startMetricsUpdater publishes the entry count periodically.
func (s *SQLiteStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *SQLiteStore) updateMetrics(ctx context.Context) {
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateHistoryEntries(n)
	}
}
