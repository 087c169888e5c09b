// Package config manages seqarc configuration. It locates and loads the optional
// .seqarc.toml file and supplies defaults for everything it leaves out.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/seqarc/internal/engine"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the configuration file looked up from the working directory upwards.
const FileName = ".seqarc.toml"

// ErrNoConfig is returned by Find when no configuration file exists.
var ErrNoConfig = errors.New("no " + FileName + " found (or any parent up to root)")

// Config represents the seqarc configuration
type Config struct {
	Prefetch    bool        `toml:"prefetch"`     // Open archives eagerly by default
	CacheBlocks int         `toml:"cache_blocks"` // Decoded blocks kept per lazily opened archive
	LogLevel    string      `toml:"log_level"`
	LineWidth   int         `toml:"line_width"` // FASTA output wrap width, 0 disables wrapping
	Build       BuildConfig `toml:"build"`
	path        string      // file the config was loaded from, empty for defaults
}

// BuildConfig holds defaults for writing new archives
type BuildConfig struct {
	Format    string `toml:"format"`
	BlockSize int    `toml:"block_size"`
	Level     string `toml:"level"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Prefetch:    false,
		CacheBlocks: engine.DefaultCacheBlocks,
		LogLevel:    "warn",
		LineWidth:   60,
		Build: BuildConfig{
			Format:    string(engine.FormatBolt),
			BlockSize: engine.DefaultBlockSize,
			Level:     "default",
		},
	}
}

// Find finds the configuration file by walking up from the current directory
func Find() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		cfgPath := filepath.Join(dir, FileName)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return cfgPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoConfig
		}
		dir = parent
	}
}

// Load reads the configuration at path. An empty path searches with Find and
// falls back to Default when nothing is found.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := Find()
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		if err != nil {
			return nil, err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.path = path
	return cfg, nil
}

// Save writes the configuration to path
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	c.path = path
	return nil
}

// Path returns the file the configuration was loaded from, or "" for defaults
func (c *Config) Path() string {
	return c.path
}

// Validate rejects values the engine cannot use
func (c *Config) Validate() error {
	if c.CacheBlocks <= 0 {
		return fmt.Errorf("cache_blocks must be positive, got %d", c.CacheBlocks)
	}
	if c.LineWidth < 0 {
		return fmt.Errorf("line_width must not be negative, got %d", c.LineWidth)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if _, err := engine.ParseFormat(c.Build.Format); err != nil {
		return fmt.Errorf("build.format: %w", err)
	}
	if c.Build.BlockSize <= 0 {
		return fmt.Errorf("build.block_size must be positive, got %d", c.Build.BlockSize)
	}
	if _, err := engine.ParseLevel(c.Build.Level); err != nil {
		return fmt.Errorf("build.level: %w", err)
	}
	return nil
}

// BuildOptions converts the build section into engine options
func (c *Config) BuildOptions() engine.BuildOptions {
	format, _ := engine.ParseFormat(c.Build.Format)
	return engine.BuildOptions{
		Format:    format,
		BlockSize: c.Build.BlockSize,
		Level:     c.Build.Level,
	}
}
