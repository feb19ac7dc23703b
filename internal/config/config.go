// Package config loads pyinfer.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"github.com/jward/pyinfer/internal/logging"
)

// FileName is the configuration file looked up in a project root.
const FileName = "pyinfer.toml"

// Config is the decoded pyinfer.toml.
type Config struct {
	// MaxInferableValues bounds the results of a single node.
	MaxInferableValues int `toml:"max_inferable_values"`
	// MaxInferred bounds the fan-out of one top-level inference.
	MaxInferred int      `toml:"max_inferred"`
	LogLevel    string   `toml:"log_level"`
	DBPath      string   `toml:"db_path"`
	Exclude     []string `toml:"exclude"`
	Watch       Watch    `toml:"watch"`

	excludes []glob.Glob
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads the file at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse decodes TOML text, applies defaults and validates the result.
func Parse(text string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxInferableValues == 0 {
		cfg.MaxInferableValues = 42
	}
	if cfg.MaxInferred == 0 {
		cfg.MaxInferred = 100
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join(".pyinfer", "index.db")
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
}

func validate(cfg *Config) error {
	if cfg.MaxInferableValues < 1 {
		return fmt.Errorf("max_inferable_values must be >= 1, got %d", cfg.MaxInferableValues)
	}
	if cfg.MaxInferred < 1 {
		return fmt.Errorf("max_inferred must be >= 1, got %d", cfg.MaxInferred)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	cfg.excludes = cfg.excludes[:0]
	for i, pattern := range cfg.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("exclude[%d]: %q: %w", i, pattern, err)
		}
		cfg.excludes = append(cfg.excludes, g)
	}
	return nil
}

// Excluded reports whether the slash-separated path rel, relative to the
// project root, matches an exclude pattern. A pattern matching a directory
// excludes everything below it.
func (c *Config) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range c.excludes {
		if g.Match(rel) {
			return true
		}
		for dir := rel; ; {
			i := strings.LastIndexByte(dir, '/')
			if i < 0 {
				break
			}
			dir = dir[:i]
			if g.Match(dir) {
				return true
			}
		}
	}
	return false
}
