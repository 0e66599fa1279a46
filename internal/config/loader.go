package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/nutriscore/internal/domain/scoring"
)

const (
	envPrefix     = "NUTRISCORE_"
	envConfigFile = "NUTRISCORE_CONFIG"
	envDotenvFile = "NUTRISCORE_DOTENV"
	defaultDotenv = ".env"
	rangesKey     = "nutrient_ranges"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if NUTRISCORE_CONFIG is set
//  3. env (prefix NUTRISCORE_), including values from a .env file
//
// The .env file (NUTRISCORE_DOTENV, default ./.env) never overrides variables
// that are already set in the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}
	return LoadFile(ctx, os.Getenv(envConfigFile))
}

// LoadFile layers defaults, the YAML file at path and env vars. An empty path
// skips the file layer. Unlike Load it does not read a .env file.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)
	defaults := maps.Clone(base.NutrientRanges)
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// NUTRISCORE_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	ranges, err := mergeRanges(k, defaults)
	if err != nil {
		return nil, err
	}
	cfg.NutrientRanges = ranges

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeRanges overlays each configured nutrient field by field on its
// reference range, so a file may set only sugar.max.
func mergeRanges(k *koanf.Koanf, defaults map[string]scoring.Range) (map[string]scoring.Range, error) {
	ranges := maps.Clone(defaults)
	for _, name := range k.MapKeys(rangesKey) {
		r := ranges[name]
		if err := k.UnmarshalWithConf(rangesKey+"."+name, &r, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", ErrLoadConfig, rangesKey, name, err)
		}
		ranges[name] = r
	}
	return ranges, nil
}

func loadDotenv() error {
	path := os.Getenv(envDotenvFile)
	if path == "" {
		path = defaultDotenv
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}
