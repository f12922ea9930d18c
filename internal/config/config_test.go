package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shopsync/internal/controller"
	"shopsync/internal/rest"
	"shopsync/internal/transport"
)

// clearEnv unsets every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key := strings.SplitN(kv, "=", 2)[0]
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "CORS_ORIGINS",
		"GCP_PROJECT", "SECRET_ID",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPSYNC_PORT", "9090")
	t.Setenv("SHOPSYNC_LOG_LEVEL", "debug")
	t.Setenv("SHOPSYNC_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SHOPSYNC_STORE_BASE_URL", "http://127.0.0.1:8000")
	t.Setenv("SHOPSYNC_STORE_PATHS", "django")
	t.Setenv("SHOPSYNC_STORE_TIMEOUT", "5s")
	t.Setenv("SHOPSYNC_SYNC_REFETCH_AFTER_TOGGLE", "true")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.Store.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("Store.BaseURL = %s", cfg.Store.BaseURL)
	}
	if cfg.Store.Paths != "django" {
		t.Errorf("Store.Paths = %s, want django", cfg.Store.Paths)
	}
	if cfg.Store.Timeout.Duration != 5*time.Second {
		t.Errorf("Store.Timeout = %v, want 5s", cfg.Store.Timeout)
	}
	if !cfg.Sync.RefetchAfterToggle {
		t.Error("Sync.RefetchAfterToggle = false, want true")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPSYNC_STORE_BASE_URL", "https://shop.example.com")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %s, want development", cfg.Environment)
	}
	if cfg.Store.AuthScheme != "Token" {
		t.Errorf("Store.AuthScheme = %s, want Token", cfg.Store.AuthScheme)
	}
	if cfg.Store.Timeout.Duration != 30*time.Second {
		t.Errorf("Store.Timeout = %v, want 30s", cfg.Store.Timeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
	if got := cfg.Policy(); got != controller.DefaultPolicy() {
		t.Errorf("Policy() = %+v, want %+v", got, controller.DefaultPolicy())
	}
}

func TestLoadUnprefixedFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("SHOPSYNC_STORE_BASE_URL", "https://shop.example.com")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %s, want 7070", cfg.Port)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing base url",
			env:     map[string]string{},
			wantErr: "base_url",
		},
		{
			name: "unknown path preset",
			env: map[string]string{
				"SHOPSYNC_STORE_BASE_URL": "https://shop.example.com",
				"SHOPSYNC_STORE_PATHS":    "graphql",
			},
			wantErr: "paths",
		},
		{
			name: "unknown transport",
			env: map[string]string{
				"SHOPSYNC_STORE_BASE_URL":  "https://shop.example.com",
				"SHOPSYNC_STORE_TRANSPORT": "firefox",
			},
			wantErr: "transport",
		},
		{
			name: "bad log level",
			env: map[string]string{
				"SHOPSYNC_STORE_BASE_URL": "https://shop.example.com",
				"SHOPSYNC_LOG_LEVEL":      "verbose",
			},
			wantErr: "log_level",
		},
		{
			name: "bad timeout",
			env: map[string]string{
				"SHOPSYNC_STORE_BASE_URL": "https://shop.example.com",
				"SHOPSYNC_STORE_TIMEOUT":  "soon",
			},
			wantErr: "duration",
		},
		{
			name: "production without project",
			env: map[string]string{
				"SHOPSYNC_ENVIRONMENT": "production",
			},
			wantErr: "GCP_PROJECT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPSYNC_PORT", "9000")

	content := `{
		"log_level": "warn",
		"store": {
			"base_url": "http://127.0.0.1:8000",
			"paths": "django",
			"transport": "chrome",
			"timeout": "10s"
		},
		"sync": {
			"refetch_after_increment": true,
			"tolerate_toggle_race": false
		}
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %s, want 9000 from env", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn from file", cfg.LogLevel)
	}
	if cfg.Store.Transport != "chrome" {
		t.Errorf("Store.Transport = %s, want chrome", cfg.Store.Transport)
	}
	if cfg.Store.AuthScheme != "Token" {
		t.Errorf("Store.AuthScheme = %s, want default Token", cfg.Store.AuthScheme)
	}

	policy := cfg.Policy()
	if !policy.RefetchAfterIncrement {
		t.Error("RefetchAfterIncrement = false, want true from file")
	}
	if !policy.RefetchAfterDecrement {
		t.Error("RefetchAfterDecrement = false, want default true")
	}
	if policy.TolerateToggleRace {
		t.Error("TolerateToggleRace = true, want false from file")
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.json"))
		if _, err := Load(context.Background()); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.json")
		os.WriteFile(path, []byte("{not json"), 0644)
		t.Setenv("CONFIG_FILE", path)
		if _, err := Load(context.Background()); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestRestConfig(t *testing.T) {
	cfg := &Config{Store: StoreConfig{
		BaseURL:    "http://127.0.0.1:8000",
		AuthScheme: "Bearer",
		Paths:      "django",
		Transport:  "chrome",
		Timeout:    Duration{15 * time.Second},
	}}

	rc, err := cfg.RestConfig()
	if err != nil {
		t.Fatalf("RestConfig() error: %v", err)
	}
	if rc.Paths != rest.DjangoPaths {
		t.Errorf("Paths = %+v, want DjangoPaths", rc.Paths)
	}
	if rc.Transport != transport.KindChrome {
		t.Errorf("Transport = %s, want chrome", rc.Transport)
	}
	if rc.AuthScheme != "Bearer" || rc.Timeout != 15*time.Second {
		t.Errorf("RestConfig = %+v", rc)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("SHOPSYNC_STORE_BASE_URL=https://dotenv.example.com\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("SHOPSYNC_STORE_BASE_URL") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.BaseURL != "https://dotenv.example.com" {
		t.Errorf("Store.BaseURL = %s", cfg.Store.BaseURL)
	}
}
