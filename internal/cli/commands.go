// Package cli implements the nutriscore command line client.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/nutriscore/internal/config"
	"github.com/okian/nutriscore/internal/domain/model"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/okian/nutriscore/pkg/logger"
)

// Defaults for the global flags.
const (
	defaultURL     = "http://localhost:5000"
	defaultTimeout = 30 * time.Second
)

// ErrLoadFailures is returned when a load run saw failed or mismatched scores.
var ErrLoadFailures = errors.New("load run had failures")

type rootFlags struct {
	url        string
	timeout    time.Duration
	logLevel   string
	configPath string
}

// NewRootCommand builds the nutriscore-cli command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "nutriscore-cli",
		Short:         "Score foods locally or against a nutriscore server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logger.SetLevelString(flags.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&flags.url, "url", defaultURL, "base URL of the nutriscore server")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"server YAML config whose nutrient_ranges drive local scoring; reference ranges when empty")

	root.AddCommand(newScoreCommand(flags), newAnalyzeCommand(flags), newLoadCommand(flags))
	return root
}

func newScoreCommand(flags *rootFlags) *cobra.Command {
	var breakdown bool
	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score a nutrition record JSON file, or stdin when no file or - is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open record: %w", err)
				}
				defer f.Close()
				in = f
			}

			var rec scoring.Record
			if err := json.NewDecoder(in).Decode(&rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}

			engine, err := localEngine(cmd.Context(), flags.configPath, commandLogger(cmd))
			if err != nil {
				return err
			}
			rep := engine.Evaluate(cmd.Context(), rec)
			if breakdown {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			return printJSON(cmd.OutOrStdout(), rep.HealthScore)
		},
	}
	cmd.Flags().BoolVar(&breakdown, "breakdown", false, "include outcome and per-nutrient contributions")
	return cmd
}

func newAnalyzeCommand(flags *rootFlags) *cobra.Command {
	var (
		quantity string
		unit     string
	)
	cmd := &cobra.Command{
		Use:   "analyze <food item>",
		Short: "Ask a running server for the nutrition and score of a food",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := model.FoodQuery{FoodItem: args[0], Quantity: model.Quantity(quantity), Unit: unit}
			if err := q.Normalize().Validate(); err != nil {
				return err
			}
			c := NewClient(flags.url, flags.timeout)
			a, err := c.Analyze(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
	cmd.Flags().StringVarP(&quantity, "quantity", "q", "1", "amount of food")
	cmd.Flags().StringVarP(&unit, "unit", "u", "units", "unit: "+fmt.Sprint(model.ValidUnits()))
	return cmd
}

func newLoadCommand(flags *rootFlags) *cobra.Command {
	cfg := LoadConfig{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fire concurrent /health_score requests and verify every score",
		Long: "Fire concurrent /health_score requests and verify every score against the local engine.\n" +
			"Pass the server's --config when it runs with custom nutrient_ranges, otherwise every\n" +
			"score is checked against the reference ranges.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := commandLogger(cmd)
			c := NewClient(flags.url, flags.timeout)
			if err := c.Health(ctx); err != nil {
				return fmt.Errorf("service health check failed: %w", err)
			}

			records, err := SampleRecords()
			if err != nil {
				return err
			}
			engine, err := localEngine(ctx, flags.configPath, logger.Nop())
			if err != nil {
				return err
			}

			log.Info(ctx, "starting load run",
				logger.String("url", flags.url),
				logger.Int("requests", cfg.Requests),
				logger.Int("workers", cfg.Workers))
			stats, err := RunLoad(ctx, c, engine, records, cfg, log)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), stats); err != nil {
				return err
			}
			if stats.Failed > 0 || stats.Mismatched > 0 {
				return fmt.Errorf("%w: %d failed, %d mismatched", ErrLoadFailures, stats.Failed, stats.Mismatched)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&cfg.Requests, "requests", "n", 1000, "number of requests to send")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU()*2, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.ProgressEvery, "progress", time.Second, "progress log interval, 0 to disable")
	return cmd
}

// localEngine builds the engine used for local scoring. An empty path keeps
// the reference ranges.
func localEngine(ctx context.Context, path string, log logger.Logger) (*scoring.Engine, error) {
	if path == "" {
		return scoring.NewEngine(scoring.WithLogger(log)), nil
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	table, err := cfg.RangeTable()
	if err != nil {
		return nil, err
	}
	return scoring.NewEngine(scoring.WithRanges(table), scoring.WithLogger(log)), nil
}

// commandLogger logs to the command's stderr so stdout stays machine readable.
func commandLogger(cmd *cobra.Command) logger.Logger {
	return logger.New(cmd.ErrOrStderr()).Named("cli")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
