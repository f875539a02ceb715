package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// defaultSearchFile is the search database location inside the vault. The
// leading dot keeps it out of note listings and the watcher.
const defaultSearchFile = ".vaultgraph/search.db"

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Search SearchConfig      `yaml:"search"`
	Graph  GraphConfig       `yaml:"graph"`
	Events EventsConfig      `yaml:"events"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// SearchPath returns the search database path. An empty search.path places
// it in a hidden directory inside the vault.
func (c *Config) SearchPath() string {
	if c.Search.Path != "" {
		return c.Search.Path
	}
	return filepath.Join(c.Vault.Path, filepath.FromSlash(defaultSearchFile))
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the Markdown vault and how it is indexed.
type VaultConfig struct {
	Path string `yaml:"path"`
	// Watch enables the file watcher that keeps the index in sync with edits
	// made outside the server.
	Watch bool `yaml:"watch"`
	// IndexWorkers bounds concurrent reads during a full index. Zero means GOMAXPROCS.
	IndexWorkers int           `yaml:"index_workers"`
	Debounce     time.Duration `yaml:"debounce"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.IndexWorkers, validation.Min(0)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// SearchConfig holds full-text search configuration.
type SearchConfig struct {
	Path         string `yaml:"path"`
	DefaultLimit int    `yaml:"default_limit"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Min(0), validation.Max(1000)),
	)
}

// GraphConfig holds link graph query defaults.
type GraphConfig struct {
	LocalDepth int `yaml:"local_depth"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LocalDepth, validation.Min(0), validation.Max(10)),
	)
}

// EventsConfig tunes the Server-Sent Events stream.
type EventsConfig struct {
	// GraphThrottle is the minimum interval between graph.updated events.
	GraphThrottle time.Duration `yaml:"graph_throttle"`
	// Heartbeat is the keep-alive interval for idle connections; zero disables it.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.GraphThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.Heartbeat, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:     "./vault",
			Watch:    true,
			Debounce: 100 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
		},
		Graph: GraphConfig{
			LocalDepth: 2,
		},
		Events: EventsConfig{
			GraphThrottle: 2 * time.Second,
			Heartbeat:     30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
