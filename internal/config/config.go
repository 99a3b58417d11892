// Package config provides configuration management for treesync.
// It supports YAML or TOML configuration files, environment variables, and
// sensible defaults. Command-line flags override all of them.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/klauern/treesync/internal/erase"
	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/model"
	"github.com/klauern/treesync/internal/pattern"
	"github.com/klauern/treesync/internal/util"
)

// Config represents the complete treesync configuration.
type Config struct {
	// Sync configures the worker pool and comparison.
	Sync SyncConfig `yaml:"sync" toml:"sync"`

	// Retry configures retries of failing actions.
	Retry RetryConfig `yaml:"retry" toml:"retry"`

	// Match configures file name patterns.
	Match MatchConfig `yaml:"match" toml:"match"`

	// Erase configures secure deletion.
	Erase EraseConfig `yaml:"erase" toml:"erase"`

	// Log configures the run log.
	Log LogConfig `yaml:"log" toml:"log"`

	// Output configures console display.
	Output OutputConfig `yaml:"output" toml:"output"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// Threads is the number of concurrent workers
	Threads int `yaml:"threads" toml:"threads"`
	// MTimeWindow is the largest modification time difference still
	// treated as equal (e.g. 2s for FAT destinations)
	MTimeWindow time.Duration `yaml:"mtime_window" toml:"mtime_window"`
}

// RetryConfig holds retry settings.
type RetryConfig struct {
	// Retries is the number of retries after the first attempt
	Retries int `yaml:"retries" toml:"retries"`
	// Wait is the pause between attempts
	Wait time.Duration `yaml:"wait" toml:"wait"`
	// Restartable resumes interrupted copies
	Restartable bool `yaml:"restartable" toml:"restartable"`
}

// MatchConfig holds pattern settings.
type MatchConfig struct {
	// Patterns are the default include patterns; empty matches all files
	Patterns []string `yaml:"patterns,omitempty" toml:"patterns,omitempty"`
	// IgnoreCase overrides the platform default when set
	IgnoreCase *bool `yaml:"ignore_case,omitempty" toml:"ignore_case,omitempty"`
}

// EraseConfig holds secure-delete settings.
type EraseConfig struct {
	// Passes lists overwrite passes: zero, one, random or a byte like 0xAA
	Passes []string `yaml:"passes" toml:"passes"`
}

// LogConfig holds run log settings.
type LogConfig struct {
	// Level is the console log level (debug, info, warn, error)
	Level string `yaml:"level" toml:"level"`
	// File is a log file that receives every record plus the run summary
	File string `yaml:"file,omitempty" toml:"file,omitempty"`
	// JSON switches the console to JSON records
	JSON bool `yaml:"json" toml:"json"`
	// MaxSizeMB rotates the log file at this size
	MaxSizeMB int `yaml:"max_size_mb" toml:"max_size_mb"`
	// MaxBackups is the number of rotated log files kept
	MaxBackups int `yaml:"max_backups" toml:"max_backups"`
	// MaxAgeDays removes rotated log files older than this
	MaxAgeDays int `yaml:"max_age_days" toml:"max_age_days"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color" toml:"color"`
	// Progress shows the percent-complete bar
	Progress bool `yaml:"progress" toml:"progress"`
	// FileList prints one line per completed file
	FileList bool `yaml:"file_list" toml:"file_list"`
}

// Default returns the default configuration.
func Default() *Config {
	rotation := logging.DefaultFileOptions()
	return &Config{
		Sync: SyncConfig{
			Threads: model.DefaultWorkers,
		},
		Retry: RetryConfig{
			Retries: model.DefaultMaxRetries,
			Wait:    model.DefaultRetryWait,
		},
		Erase: EraseConfig{
			Passes: []string{"zero", "one", "random"},
		},
		Log: LogConfig{
			Level:      "warn",
			MaxSizeMB:  rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			MaxAgeDays: rotation.MaxAgeDays,
		},
		Output: OutputConfig{
			Color:    "auto",
			Progress: true,
			FileList: true,
		},
	}
}

// File names searched in the config directory, in order.
const (
	yamlFileName = "config.yaml"
	tomlFileName = "config.toml"
)

// FilePath returns the path of the config file Load reads: the first of
// config.yaml and config.toml that exists, or config.yaml.
func FilePath() string {
	dir := util.ConfigDir()
	for _, name := range []string{yamlFileName, tomlFileName} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, yamlFileName)
}

// Load loads the configuration from the config directory, merging with
// defaults. If no config file exists, returns the default configuration.
func Load() (*Config, error) {
	path := FilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnvironment()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific path. Files ending in
// .toml are decoded as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if isTOML(path) {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// #nosec G304 - path is provided by caller
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// SaveToPath writes the configuration to a specific path, as TOML when the
// path ends in .toml and as YAML otherwise.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := c.Marshal(isTOML(path))
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// Marshal encodes the configuration as TOML or YAML.
func (c *Config) Marshal(asTOML bool) ([]byte, error) {
	if !asTOML {
		return yaml.Marshal(c)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern TREESYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Sync settings
	if v := os.Getenv("TREESYNC_SYNC_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sync.Threads = n
		}
	}
	if v := os.Getenv("TREESYNC_SYNC_MTIME_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sync.MTimeWindow = d
		}
	}

	// Retry settings
	if v := os.Getenv("TREESYNC_RETRY_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.Retries = n
		}
	}
	if v := os.Getenv("TREESYNC_RETRY_WAIT"); v != "" {
		if d, ok := parseWait(v); ok {
			c.Retry.Wait = d
		}
	}
	if v := os.Getenv("TREESYNC_RETRY_RESTARTABLE"); v != "" {
		c.Retry.Restartable = parseBool(v)
	}

	// Match settings
	if v := os.Getenv("TREESYNC_MATCH_PATTERNS"); v != "" {
		c.Match.Patterns = strings.Fields(v)
	}
	if v := os.Getenv("TREESYNC_MATCH_IGNORE_CASE"); v != "" {
		b := parseBool(v)
		c.Match.IgnoreCase = &b
	}

	// Erase settings
	if v := os.Getenv("TREESYNC_ERASE_PASSES"); v != "" {
		c.Erase.Passes = splitList(v)
	}

	// Log settings
	if v := os.Getenv("TREESYNC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TREESYNC_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("TREESYNC_LOG_JSON"); v != "" {
		c.Log.JSON = parseBool(v)
	}

	// Output settings
	if v := os.Getenv("TREESYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("TREESYNC_OUTPUT_PROGRESS"); v != "" {
		c.Output.Progress = parseBool(v)
	}
	if v := os.Getenv("TREESYNC_OUTPUT_FILE_LIST"); v != "" {
		c.Output.FileList = parseBool(v)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseWait accepts a Go duration or a bare number of seconds.
func parseWait(s string) (time.Duration, bool) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

// splitList splits a comma- or space-separated list. Empty items are
// dropped.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs model.ArgumentErrors
	add := func(field, msg string) {
		errs = append(errs, &model.ArgumentError{Field: field, Message: msg})
	}

	if c.Sync.Threads < 1 || c.Sync.Threads > model.MaxWorkers {
		add("sync.threads", fmt.Sprintf("must be between 1 and %d, got %d", model.MaxWorkers, c.Sync.Threads))
	}
	if c.Sync.MTimeWindow < 0 {
		add("sync.mtime_window", "must not be negative")
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := pattern.Compile(c.Match.Patterns, c.IgnoreCase()); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ErasePasses(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Output.Color) {
	case "", "auto", "always", "never":
	default:
		add("output.color", fmt.Sprintf("unknown value %q (want auto, always or never)", c.Output.Color))
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() model.RetryPolicy {
	return model.RetryPolicy{
		MaxRetries:  c.Retry.Retries,
		Wait:        c.Retry.Wait,
		Restartable: c.Retry.Restartable,
	}
}

// IgnoreCase returns whether patterns match case-insensitively, falling
// back to the platform default.
func (c *Config) IgnoreCase() bool {
	if c.Match.IgnoreCase != nil {
		return *c.Match.IgnoreCase
	}
	return pattern.PlatformIgnoresCase()
}

// ErasePasses parses the configured overwrite passes.
func (c *Config) ErasePasses() ([]erase.Pass, error) {
	if len(c.Erase.Passes) == 0 {
		return erase.DefaultPasses(), nil
	}
	return erase.ParsePasses(c.Erase.Passes)
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, &model.ArgumentError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", s)}
	}
}
