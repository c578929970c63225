package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1" {
		t.Errorf("expected version '1', got '%s'", cfg.Version)
	}

	if cfg.Server.URL != "http://localhost:5000" {
		t.Errorf("expected server url 'http://localhost:5000', got '%s'", cfg.Server.URL)
	}

	if cfg.Intervals.Devices != 3*time.Second {
		t.Errorf("expected devices interval 3s, got %v", cfg.Intervals.Devices)
	}

	if cfg.Intervals.Logs != time.Second {
		t.Errorf("expected logs interval 1s, got %v", cfg.Intervals.Logs)
	}

	if cfg.Intervals.Stats != 2*time.Second {
		t.Errorf("expected stats interval 2s, got %v", cfg.Intervals.Stats)
	}

	if cfg.Logs.AutoScroll {
		t.Error("expected auto_scroll to default to false")
	}

	if !cfg.Journal.Enabled {
		t.Error("expected journal to be enabled by default")
	}
}

func TestWriteAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "fleetdash.yaml")
	if err := WriteDefault(configPath); err != nil {
		t.Fatalf("failed to write default config: %v", err)
	}

	if !Exists(configPath) {
		t.Fatal("config file should exist after writing")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if !strings.Contains(string(data), "devices: 3s") {
		t.Errorf("expected human-readable durations, got:\n%s", data)
	}

	cfg, err := NewLoader().LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	defaults := DefaultConfig()
	if cfg.Server != defaults.Server {
		t.Errorf("loaded server %+v != default %+v", cfg.Server, defaults.Server)
	}
	if cfg.Intervals != defaults.Intervals {
		t.Errorf("loaded intervals %+v != default %+v", cfg.Intervals, defaults.Intervals)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "fleetdash.yaml")
	if err := WriteDefault(configPath); err != nil {
		t.Fatalf("failed to write default config: %v", err)
	}

	loader := NewLoader()
	loader.SetOverride("server.url", "http://10.0.0.5:5000")
	loader.SetOverride("logs.auto_scroll", true)

	cfg, err := loader.LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.URL != "http://10.0.0.5:5000" {
		t.Errorf("expected server url override, got '%s'", cfg.Server.URL)
	}

	if !cfg.Logs.AutoScroll {
		t.Error("expected auto_scroll override to be true")
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()

	global := "version: \"1\"\nserver:\n  url: http://global:5000\n  timeout: 4s\nintervals:\n  logs: 500ms\n"
	globalPath := filepath.Join(home, ".config", "fleetdash", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(globalPath), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(globalPath, []byte(global), 0600); err != nil {
		t.Fatal(err)
	}

	local := "server:\n  url: http://project:5000\n"
	if err := os.WriteFile(filepath.Join(project, ProjectFile), []byte(local), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FLEETDASH_LOGGING_LEVEL", "debug")

	loader := NewLoader()
	loader.SetDirs(project, home)
	loader.SetOverride("intervals.stats", "5s")

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"project beats global", cfg.Server.URL, "http://project:5000"},
		{"global beats default", cfg.Server.Timeout, 4 * time.Second},
		{"global interval", cfg.Intervals.Logs, 500 * time.Millisecond},
		{"default kept", cfg.Intervals.Devices, 3 * time.Second},
		{"env applied", cfg.Logging.Level, "debug"},
		{"override applied", cfg.Intervals.Stats, 5 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_NoFiles(t *testing.T) {
	loader := NewLoader()
	loader.SetDirs(t.TempDir(), t.TempDir())

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.URL != DefaultConfig().Server.URL {
		t.Errorf("expected default url, got '%s'", cfg.Server.URL)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
		errorField  string
	}{
		{
			name:        "valid config",
			modify:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "wrong version",
			modify:      func(c *Config) { c.Version = "2" },
			expectError: true,
			errorField:  "Config.Version",
		},
		{
			name:        "missing server url",
			modify:      func(c *Config) { c.Server.URL = "" },
			expectError: true,
			errorField:  "Config.Server.URL",
		},
		{
			name:        "bad server url",
			modify:      func(c *Config) { c.Server.URL = "not a url" },
			expectError: true,
			errorField:  "Config.Server.URL",
		},
		{
			name:        "zero timeout",
			modify:      func(c *Config) { c.Server.Timeout = 0 },
			expectError: true,
			errorField:  "Config.Server.Timeout",
		},
		{
			name:        "interval too short",
			modify:      func(c *Config) { c.Intervals.Logs = 10 * time.Millisecond },
			expectError: true,
			errorField:  "Config.Intervals.Logs",
		},
		{
			name:        "unknown log level",
			modify:      func(c *Config) { c.Logging.Level = "loud" },
			expectError: true,
			errorField:  "Config.Logging.Level",
		},
		{
			name:        "metrics addr",
			modify:      func(c *Config) { c.Metrics.Addr = "localhost:9464" },
			expectError: false,
		},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := loader.Validate(cfg)
			if !tt.expectError {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.errorField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.errorField, verrs)
			}
		})
	}
}

func TestValidationErrorMessages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.URL = ""

	err := NewLoader().Validate(cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); got != "'Server.URL' is required" {
		t.Errorf("message = %q", got)
	}
}

func TestValidationErrors_Empty(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "no validation errors" {
		t.Errorf("Error() = %q", got)
	}
}
