// Package config holds the deployment settings of a dependency store.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/viant/afs"
	"github.com/viant/depview/mappings"
	"gopkg.in/yaml.v3"
)

// Config is the YAML document configuring a store and its source scanning.
type Config struct {
	// StorePath is the directory holding the persisted indexes.
	StorePath string `yaml:"storePath"`
	// InMemory keeps every index in memory; StorePath is still used for deltas when persistent.
	InMemory bool `yaml:"inMemory,omitempty"`
	// CacheSize bounds the decoded entries cached per persistent index.
	CacheSize int `yaml:"cacheSize"`
	// TransientDelta keeps round overlays in memory.
	TransientDelta bool `yaml:"transientDelta"`
	// ProcessConstantsIncrementally affects recorded constant reads instead of widening the round.
	ProcessConstantsIncrementally bool `yaml:"processConstantsIncrementally"`
	SyncWrites                    bool `yaml:"syncWrites"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// SourceRoot is the base URL sources are resolved against.
	SourceRoot string   `yaml:"sourceRoot,omitempty"`
	SkipDirs   []string `yaml:"skipDirs,omitempty"`
}

// DefaultConfig returns the settings used for absent keys.
func DefaultConfig() *Config {
	return &Config{
		StorePath: ".depview",
		CacheSize: 1024,
		LogLevel:  "info",
		SkipDirs:  []string{".git", "build", "target", "out"},
	}
}

// Load reads the YAML document at URL over defaults.
func Load(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	var errs []error
	if c.StorePath == "" && !c.InMemory {
		errs = append(errs, errors.New("storePath is required"))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cacheSize must not be negative: %d", c.CacheSize))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var ret slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := ret.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return ret, fmt.Errorf("invalid logLevel %q: %w", c.LogLevel, err)
	}
	return ret, nil
}

// Logger creates a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Options converts the settings into store options.
func (c *Config) Options(fs afs.Service, logger *slog.Logger) []mappings.Option {
	ret := []mappings.Option{
		mappings.WithLogger(logger),
		mappings.WithTransientDelta(c.TransientDelta),
		mappings.WithSyncWrites(c.SyncWrites),
		mappings.WithInMemory(c.InMemory),
	}
	if c.CacheSize > 0 {
		ret = append(ret, mappings.WithCacheSize(c.CacheSize))
	}
	if c.SourceRoot != "" {
		ret = append(ret, mappings.WithFileSystem(fs, c.SourceRoot))
	}
	return ret
}

// Request creates a differentiation request carrying the configured constant mode.
func (c *Config) Request() *mappings.Request {
	return &mappings.Request{ProcessConstantsIncrementally: c.ProcessConstantsIncrementally}
}
