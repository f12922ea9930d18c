// Package config handles loading and validation of service configuration.
// Supports both development (env vars, .env, CONFIG_FILE) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"shopsync/internal/controller"
	"shopsync/internal/rest"
	"shopsync/internal/transport"
)

// EnvPrefix namespaces environment variables: SHOPSYNC_PORT, SHOPSYNC_STORE_BASE_URL.
// Unprefixed names (PORT, LOG_LEVEL) are honored as a fallback.
const EnvPrefix = "SHOPSYNC"

// Config holds all service configuration.
// Environment determines whether the store settings load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string   `envconfig:"PORT" default:"8080" json:"port" validate:"required,numeric"`
	Environment string   `envconfig:"ENVIRONMENT" default:"development" json:"environment" validate:"oneof=development production"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info" json:"log_level" validate:"oneof=debug info warn error"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*" json:"cors_origins"`

	// GCP settings (required in production)
	GCPProject string `envconfig:"GCP_PROJECT" json:"gcp_project" validate:"required_if=Environment production"`
	SecretID   string `envconfig:"SECRET_ID" default:"shopsync-store" json:"secret_id"`

	Store StoreConfig `json:"store"`
	Sync  SyncConfig  `json:"sync"`
}

// StoreConfig describes the backend store.
// In production, this is loaded from Secret Manager as JSON.
type StoreConfig struct {
	BaseURL    string   `envconfig:"BASE_URL" json:"base_url" validate:"required,url"`
	AuthScheme string   `envconfig:"AUTH_SCHEME" default:"Token" json:"auth_scheme" validate:"required"`
	Paths      string   `envconfig:"PATHS" default:"rest" json:"paths" validate:"oneof=rest django"`
	Transport  string   `envconfig:"TRANSPORT" default:"standard" json:"transport" validate:"oneof=standard chrome"`
	Timeout    Duration `envconfig:"TIMEOUT" default:"30s" json:"timeout"`
}

// SyncConfig selects the controller's refetch policy.
type SyncConfig struct {
	RefetchAfterIncrement bool `envconfig:"REFETCH_AFTER_INCREMENT" default:"false" json:"refetch_after_increment"`
	RefetchAfterDecrement bool `envconfig:"REFETCH_AFTER_DECREMENT" default:"true" json:"refetch_after_decrement"`
	RefetchAfterRemove    bool `envconfig:"REFETCH_AFTER_REMOVE" default:"true" json:"refetch_after_remove"`
	RefetchAfterToggle    bool `envconfig:"REFETCH_AFTER_TOGGLE" default:"false" json:"refetch_after_toggle"`
	TolerateToggleRace    bool `envconfig:"TOLERATE_TOGGLE_RACE" default:"true" json:"tolerate_toggle_race"`
}

// Duration is a time.Duration written as "30s" in env vars and JSON.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadDotEnv loads a .env file into the environment if one exists.
// Variables already set are left alone.
func LoadDotEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}

// Load reads configuration from the environment, then CONFIG_FILE if set, then
// Secret Manager in production. Later sources override earlier ones.
// Validates all fields and returns an error if any are missing or malformed.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, err
		}
	}

	if cfg.IsProduction() {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading store config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFromFile overlays a JSON file onto cfg.
// Used for local development to avoid multiple ENV vars.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
// Fields absent from the secret keep their current values.
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

var validate = newValidator()

// newValidator reports fields by their JSON name so errors match the config file.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// validate checks that all configuration fields are present and well-formed.
func (c *Config) validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validating config: %w", err)
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// IsProduction reports whether secrets come from Secret Manager.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RestConfig builds the store client configuration.
func (c *Config) RestConfig() (rest.Config, error) {
	paths, err := rest.PathsFor(c.Store.Paths)
	if err != nil {
		return rest.Config{}, err
	}
	return rest.Config{
		BaseURL:    c.Store.BaseURL,
		AuthScheme: c.Store.AuthScheme,
		Paths:      paths,
		Transport:  transport.Kind(c.Store.Transport),
		Timeout:    c.Store.Timeout.Duration,
	}, nil
}

// Policy converts the sync settings to a controller policy.
func (c *Config) Policy() controller.Policy {
	return controller.Policy{
		RefetchAfterIncrement: c.Sync.RefetchAfterIncrement,
		RefetchAfterDecrement: c.Sync.RefetchAfterDecrement,
		RefetchAfterRemove:    c.Sync.RefetchAfterRemove,
		RefetchAfterToggle:    c.Sync.RefetchAfterToggle,
		TolerateToggleRace:    c.Sync.TolerateToggleRace,
	}
}
