package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/nutriscore/internal/config"
	"github.com/okian/nutriscore/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		_ = os.Setenv("NUTRISCORE_DOTENV", filepath.Join(t.TempDir(), "missing.env"))
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.YouTubeMaxResults, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("NUTRISCORE_ADDR", ":8080")
			_ = os.Setenv("NUTRISCORE_QUEUE_SIZE", "500")
			_ = os.Setenv("NUTRISCORE_WORKER_COUNT", "3")
			_ = os.Setenv("NUTRISCORE_OPENAI_MODEL", "gpt-4o-mini")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.OpenAIModel, convey.ShouldEqual, "gpt-4o-mini")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
cache_size: 42
youtube_region: "GB"
nutrient_ranges:
  protein:
    min: 10
    max: 40
    weight: 3
`
			_ = os.Setenv("NUTRISCORE_CONFIG", createTempConfigFile(t, yamlContent))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.CacheSize, convey.ShouldEqual, 42)
				convey.So(cfg.YouTubeRegion, convey.ShouldEqual, "GB")
			})

			convey.Convey("Then ranges merge over the reference table", func() {
				convey.So(cfg.NutrientRanges["protein"], convey.ShouldResemble, scoring.Range{Min: 10, Max: 40, Weight: 3})
				convey.So(cfg.NutrientRanges["calories"], convey.ShouldResemble, scoring.DefaultRangeMap()["calories"])
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
worker_count: 24
`
			_ = os.Setenv("NUTRISCORE_CONFIG", createTempConfigFile(t, yamlContent))
			_ = os.Setenv("NUTRISCORE_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
			})
		})

		convey.Convey("When a .env file is present", func() {
			dotenv := filepath.Join(t.TempDir(), "test.env")
			err := os.WriteFile(dotenv, []byte("NUTRISCORE_YOUTUBE_API_KEY=yt-key\nNUTRISCORE_CACHE_SIZE=7\n"), 0o600)
			convey.So(err, convey.ShouldBeNil)
			_ = os.Setenv("NUTRISCORE_DOTENV", dotenv)
			_ = os.Setenv("NUTRISCORE_CACHE_SIZE", "9")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills unset variables only", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.YouTubeAPIKey, convey.ShouldEqual, "yt-key")
				convey.So(cfg.CacheSize, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("NUTRISCORE_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("NUTRISCORE_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file clears addr", func() {
			_ = os.Setenv("NUTRISCORE_CONFIG", createTempConfigFile(t, `addr: ""`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file sets a single range field", func() {
			yamlContent := `
nutrient_ranges:
  sugar:
    max: 25
`
			_ = os.Setenv("NUTRISCORE_CONFIG", createTempConfigFile(t, yamlContent))

			cfg, err := config.Load(ctx)

			convey.Convey("Then the other fields keep their reference values", func() {
				convey.So(err, convey.ShouldBeNil)
				sugar := scoring.DefaultRangeMap()[scoring.Sugar]
				sugar.Max = 25
				convey.So(cfg.NutrientRanges[scoring.Sugar], convey.ShouldResemble, sugar)
				convey.So(cfg.NutrientRanges[scoring.Sodium], convey.ShouldResemble, scoring.DefaultRangeMap()[scoring.Sodium])

				table, err := cfg.RangeTable()
				convey.So(err, convey.ShouldBeNil)
				r, ok := table.Lookup(scoring.Sugar)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(r.Weight, convey.ShouldEqual, sugar.Weight)
			})
		})

		convey.Convey("When loading an explicit file path", func() {
			path := createTempConfigFile(t, "nutrient_ranges:\n  fiber:\n    min: 5\n")

			cfg, err := config.LoadFile(ctx, path)

			convey.Convey("Then the file is layered without NUTRISCORE_CONFIG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.NutrientRanges[scoring.Fiber].Min, convey.ShouldEqual, 5)
				convey.So(cfg.NutrientRanges[scoring.Fiber].Max, convey.ShouldEqual, scoring.DefaultRangeMap()[scoring.Fiber].Max)
			})
		})

		convey.Convey("When a configured range is invalid", func() {
			yamlContent := `
nutrient_ranges:
  sodium:
    min: 400
    max: 0
    weight: -1
`
			_ = os.Setenv("NUTRISCORE_CONFIG", createTempConfigFile(t, yamlContent))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("NUTRISCORE_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "NUTRISCORE_") {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nutriscore-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
