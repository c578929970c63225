// Package config provides configuration management for fleetdash.
//
// Configuration is loaded from multiple sources with the following precedence
// (highest to lowest):
//  1. CLI flags (set via SetOverride)
//  2. Environment variables with the FLEETDASH_ prefix
//  3. Project config: ./fleetdash.yaml
//  4. Global config: ~/.config/fleetdash/config.yaml
//  5. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ProjectFile is the per-directory config file name.
const ProjectFile = "fleetdash.yaml"

// Config represents the fleetdash.yaml configuration file.
type Config struct {
	// Version is the configuration schema version (currently "1")
	Version string `yaml:"version" mapstructure:"version" validate:"required,eq=1"`

	// Server locates the device manager
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Intervals are the poll periods of the dashboard
	Intervals IntervalsConfig `yaml:"intervals" mapstructure:"intervals"`

	Logs LogsConfig `yaml:"logs" mapstructure:"logs"`

	// Logging configures fleetdash's own log output
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Journal configures the local action history
	Journal JournalConfig `yaml:"journal" mapstructure:"journal"`

	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig specifies how to reach the device manager.
type ServerConfig struct {
	// URL is the base URL, e.g. "http://localhost:5000"
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`

	// Timeout bounds every request
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
}

// IntervalsConfig holds the three poll periods.
type IntervalsConfig struct {
	Devices time.Duration `yaml:"devices" mapstructure:"devices" validate:"gte=100ms"`
	Logs    time.Duration `yaml:"logs" mapstructure:"logs" validate:"gte=100ms"`
	Stats   time.Duration `yaml:"stats" mapstructure:"stats" validate:"gte=100ms"`
}

// LogsConfig controls the log modal.
type LogsConfig struct {
	// AutoScroll pins the view to the newest line on every refresh.
	// When false the view follows only while already near the bottom.
	AutoScroll bool `yaml:"auto_scroll" mapstructure:"auto_scroll"`
}

// LoggingConfig controls fleetdash's own logging.
type LoggingConfig struct {
	// Level is a zerolog level name
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`

	// File receives dashboard logs. Empty uses the default state directory.
	File string `yaml:"file,omitempty" mapstructure:"file"`
}

// JournalConfig controls the SQLite action journal.
type JournalConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Path is the database file. Empty uses the default state directory.
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:9464". Empty disables it.
	Addr string `yaml:"addr,omitempty" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// ValidationError represents a configuration validation error with field details.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, "; ")
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v         *viper.Viper
	validator *validator.Validate
	overrides map[string]interface{}
	dir       string
	home      string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FLEETDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	home, _ := os.UserHomeDir()

	return &Loader{
		v:         v,
		validator: validator.New(),
		overrides: make(map[string]interface{}),
		dir:       ".",
		home:      home,
	}
}

// SetOverride sets a CLI override value that takes highest precedence.
// Use dot notation for nested keys (e.g., "server.url").
func (l *Loader) SetOverride(key string, value interface{}) {
	l.overrides[key] = value
}

// SetDirs changes where the project and global configs are looked up.
func (l *Loader) SetDirs(projectDir, homeDir string) {
	l.dir = projectDir
	l.home = homeDir
}

// Load reads configuration from all sources and returns the merged result.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	if globalPath := l.globalConfigPath(); globalPath != "" && fileExists(globalPath) {
		if err := l.loadConfigFile(globalPath); err != nil {
			return nil, fmt.Errorf("failed to load global config %s: %w", globalPath, err)
		}
	}

	if projectPath := l.findProjectConfig(); projectPath != "" {
		if err := l.loadConfigFile(projectPath); err != nil {
			return nil, fmt.Errorf("failed to load project config %s: %w", projectPath, err)
		}
	}

	return l.finish()
}

// LoadFromPath loads configuration from a specific file path.
func (l *Loader) LoadFromPath(path string) (*Config, error) {
	l.setDefaults()

	if err := l.loadConfigFile(path); err != nil {
		return nil, err
	}

	return l.finish()
}

func (l *Loader) finish() (*Config, error) {
	for key, value := range l.overrides {
		l.v.Set(key, value)
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against the schema.
// Returns ValidationErrors with detailed information about any issues.
func (l *Loader) Validate(cfg *Config) error {
	var errs ValidationErrors

	err := l.validator.Struct(cfg)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, e := range validationErrs {
				errs = append(errs, ValidationError{
					Field:   e.Namespace(),
					Tag:     e.Tag(),
					Value:   e.Value(),
					Message: formatValidationError(e),
				})
			}
		} else {
			return fmt.Errorf("validation error: %w", err)
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("version", defaults.Version)
	l.v.SetDefault("server.url", defaults.Server.URL)
	l.v.SetDefault("server.timeout", defaults.Server.Timeout)
	l.v.SetDefault("intervals.devices", defaults.Intervals.Devices)
	l.v.SetDefault("intervals.logs", defaults.Intervals.Logs)
	l.v.SetDefault("intervals.stats", defaults.Intervals.Stats)
	l.v.SetDefault("logs.auto_scroll", defaults.Logs.AutoScroll)
	l.v.SetDefault("logging.level", defaults.Logging.Level)
	l.v.SetDefault("logging.file", defaults.Logging.File)
	l.v.SetDefault("journal.enabled", defaults.Journal.Enabled)
	l.v.SetDefault("journal.path", defaults.Journal.Path)
	l.v.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

func (l *Loader) loadConfigFile(path string) error {
	l.v.SetConfigFile(path)
	return l.v.MergeInConfig()
}

func (l *Loader) globalConfigPath() string {
	if l.home == "" {
		return ""
	}
	return filepath.Join(l.home, ".config", "fleetdash", "config.yaml")
}

func (l *Loader) findProjectConfig() string {
	path := filepath.Join(l.dir, ProjectFile)
	if fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func formatValidationError(e validator.FieldError) string {
	field := e.Namespace()
	// Remove the "Config." prefix for cleaner messages
	field = strings.TrimPrefix(field, "Config.")

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "eq":
		return fmt.Sprintf("'%s' must be '%s' (got '%v')", field, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("'%s' must be greater than %s (got '%v')", field, e.Param(), e.Value())
	case "gte":
		return fmt.Sprintf("'%s' must be at least %s (got '%v')", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of [%s] (got '%v')", field, e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("'%s' must be a URL (got '%v')", field, e.Value())
	case "hostname_port":
		return fmt.Sprintf("'%s' must be host:port (got '%v')", field, e.Value())
	default:
		return fmt.Sprintf("'%s' failed validation '%s'", field, e.Tag())
	}
}

// DefaultConfig returns a new Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			URL:     "http://localhost:5000",
			Timeout: 10 * time.Second,
		},
		Intervals: IntervalsConfig{
			Devices: 3 * time.Second,
			Logs:    time.Second,
			Stats:   2 * time.Second,
		},
		Logs: LogsConfig{
			AutoScroll: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Enabled: true,
		},
	}
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	return Write(cfg, path)
}

// Write writes the configuration to the specified path.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(fileView(cfg))
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0600)
}

// fileView renders cfg with human-readable durations ("3s" rather than
// nanoseconds), which viper decodes back into time.Duration.
func fileView(cfg *Config) map[string]interface{} {
	logging := map[string]interface{}{"level": cfg.Logging.Level}
	if cfg.Logging.File != "" {
		logging["file"] = cfg.Logging.File
	}
	journal := map[string]interface{}{"enabled": cfg.Journal.Enabled}
	if cfg.Journal.Path != "" {
		journal["path"] = cfg.Journal.Path
	}

	out := map[string]interface{}{
		"version": cfg.Version,
		"server": map[string]interface{}{
			"url":     cfg.Server.URL,
			"timeout": cfg.Server.Timeout.String(),
		},
		"intervals": map[string]interface{}{
			"devices": cfg.Intervals.Devices.String(),
			"logs":    cfg.Intervals.Logs.String(),
			"stats":   cfg.Intervals.Stats.String(),
		},
		"logs":    map[string]interface{}{"auto_scroll": cfg.Logs.AutoScroll},
		"logging": logging,
		"journal": journal,
	}
	if cfg.Metrics.Addr != "" {
		out["metrics"] = map[string]interface{}{"addr": cfg.Metrics.Addr}
	}
	return out
}

// Load is a convenience function that creates a Loader and loads the config.
func Load() (*Config, error) {
	return NewLoader().Load()
}

// Exists checks if a configuration file exists at the given path.
func Exists(path string) bool {
	return fileExists(path)
}

// GlobalConfigPath returns the path to the global configuration file.
func GlobalConfigPath() string {
	return NewLoader().globalConfigPath()
}
