package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Library  LibraryConfig     `yaml:"library"`
	Designs  DesignsConfig     `yaml:"designs"`
	Previews PreviewsConfig    `yaml:"previews"`
	Exports  ExportsConfig     `yaml:"exports"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.Designs.Validate(); err != nil {
		return err
	}
	if err := c.Previews.Validate(); err != nil {
		return err
	}
	if err := c.Exports.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// LibraryConfig describes the template-image directory.
//
// MaxTemplates caps how many images are surfaced regardless of how many
// exist on disk. Watch enables an fsnotify watcher that regenerates previews
// when template images change at runtime.
type LibraryConfig struct {
	Path         string `yaml:"path"`
	MaxTemplates int    `yaml:"max_templates"`
	Watch        bool   `yaml:"watch"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxTemplates, validation.Required, validation.Min(1)),
	)
}

// DesignsConfig holds the path to the designs directory (one JSON file per
// design, filename-addressed).
type DesignsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the designs configuration.
func (c *DesignsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PreviewsConfig describes preview generation output.
type PreviewsConfig struct {
	Path    string `yaml:"path"`
	Width   int    `yaml:"width"`
	Quality int    `yaml:"quality"`
}

// Validate validates the previews configuration.
func (c *PreviewsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Width, validation.Required, validation.Min(1)),
		validation.Field(&c.Quality, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// ExportsConfig holds the path to the exported-artifact directory.
type ExportsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the exports configuration.
func (c *ExportsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite design-index configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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
	// Normalise empty mode to "disabled" for backward compatibility.
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
				Port: 8000,
			},
		},
		Library: LibraryConfig{
			Path:         "./templates_images",
			MaxTemplates: 8,
		},
		Designs: DesignsConfig{
			Path: "./designs",
		},
		Previews: PreviewsConfig{
			Path:    "./previews",
			Width:   300,
			Quality: 85,
		},
		Exports: ExportsConfig{
			Path: "./exports",
		},
		SQLite: SQLiteConfig{
			Path: "./easel.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
