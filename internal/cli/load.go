package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/logger"
)

// LoadConfig controls a load run against /health_score.
type LoadConfig struct {
	Requests int
	Workers  int
	// ProgressEvery logs progress at this interval; zero disables it.
	ProgressEvery time.Duration
}

// LoadStats summarizes a load run.
type LoadStats struct {
	Submitted  int64         `json:"submitted"`
	Succeeded  int64         `json:"succeeded"`
	Failed     int64         `json:"failed"`
	Mismatched int64         `json:"mismatched"`
	Duration   time.Duration `json:"duration"`
	PerSecond  float64       `json:"requests_per_second"`
}

// Sample records used by load runs, covering each scoring outcome.
var sampleRecords = []string{
	`{"calories":"165kcal","protein":"31g","fat":{"total":"3.6g"},"carbohydrates":{"total":"0g"},"fiber":"0g","sodium":"74mg","is_recipe":false,"is_valid_food":true}`,
	`{"calories":"230kcal","protein":"18g","fat":{"total":"1g"},"carbohydrates":{"total":"40g"},"fiber":"15g","sugar":"4g","sodium":"400mg","is_recipe":true,"is_valid_food":true}`,
	`{"calories":"540kcal","protein":"6g","fat":{"total":"32g","saturated":"19g"},"sugar":"48g","sodium":"90mg","is_recipe":true}`,
	`{"calories":"0kcal","is_valid_food":false}`,
	`{"vitamin_c":"12mg","is_recipe":false}`,
}

// SampleRecords decodes the built-in load records.
func SampleRecords() ([]scoring.Record, error) {
	out := make([]scoring.Record, 0, len(sampleRecords))
	for i, raw := range sampleRecords {
		var rec scoring.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("sample record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RunLoad posts records round-robin from a pool of workers and checks every
// answer against the local engine. Scores must match exactly.
func RunLoad(ctx context.Context, c *Client, engine *scoring.Engine, records []scoring.Record, cfg LoadConfig, log logger.Logger) (LoadStats, error) {
	if len(records) == 0 {
		return LoadStats{}, fmt.Errorf("no records to submit")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	expected := make([]scoring.HealthScore, len(records))
	for i, rec := range records {
		expected[i] = engine.CalculateHealthScore(ctx, rec)
	}

	var submitted, succeeded, failed, mismatched atomic.Int64
	start := time.Now()

	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				idx := i % len(records)
				submitted.Add(1)
				rep, err := c.Score(ctx, records[idx])
				switch {
				case err != nil:
					failed.Add(1)
					log.Debug(ctx, "score request failed", logger.Int("request", i), logger.Error(err))
				case rep.HealthScore != expected[idx]:
					mismatched.Add(1)
					log.Warn(ctx, "score mismatch",
						logger.Int("request", i),
						logger.Float64("got", rep.Score),
						logger.Float64("want", expected[idx].Score))
				default:
					succeeded.Add(1)
				}
			}
		}()
	}

	stopProgress := make(chan struct{})
	if cfg.ProgressEvery > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ProgressEvery)
			defer ticker.Stop()
			for {
				select {
				case <-stopProgress:
					return
				case <-ticker.C:
					log.Info(ctx, "progress",
						logger.Int64("submitted", submitted.Load()),
						logger.Int("total", cfg.Requests))
				}
			}
		}()
	}

feed:
	for i := 0; i < cfg.Requests; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	close(stopProgress)

	stats := LoadStats{
		Submitted:  submitted.Load(),
		Succeeded:  succeeded.Load(),
		Failed:     failed.Load(),
		Mismatched: mismatched.Load(),
		Duration:   time.Since(start),
	}
	if stats.Duration > 0 {
		stats.PerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	return stats, ctx.Err()
}
