package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults applied before the config file and the environment are read.
const (
	DefaultBaseURL     = "https://gitlab.com/api/v4"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxInFlight = 16
	DefaultLogLevel    = "info"
)

// Config represents the server configuration.
// Values are layered: defaults, then the optional YAML file, then environment variables.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	GitLab    GitLabConfig    `yaml:"gitlab"`
	Server    ServerConfig    `yaml:"server"`
}

// TransportConfig defines transport settings.
// Specifies whether to use stdio or HTTP transport.
type TransportConfig struct {
	Type string     `yaml:"type" env:"GITLAB_MCP_TRANSPORT"` // "stdio" or "http"
	HTTP HTTPConfig `yaml:"http,omitempty"`
}

// HTTPConfig defines HTTP transport settings.
// Only used when transport type is "http".
type HTTPConfig struct {
	Host string `yaml:"host" env:"GITLAB_MCP_HTTP_HOST"`
	Port int    `yaml:"port" env:"GITLAB_MCP_HTTP_PORT"`
}

// GitLabConfig holds the upstream API location and credential.
type GitLabConfig struct {
	BaseURL string        `yaml:"base_url" env:"GITLAB_API_URL"`
	Token   string        `yaml:"token" env:"GITLAB_API_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env:"GITLAB_TIMEOUT"`
}

// ServerConfig holds dispatch and logging settings.
type ServerConfig struct {
	MaxInFlight int    `yaml:"max_in_flight" env:"GITLAB_MCP_MAX_IN_FLIGHT"`
	LogLevel    string `yaml:"log_level" env:"GITLAB_MCP_LOG_LEVEL"`
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{Type: "stdio"},
		GitLab: GitLabConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Server: ServerConfig{
			MaxInFlight: DefaultMaxInFlight,
			LogLevel:    DefaultLogLevel,
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and the environment. environ overrides the
// process environment when non-nil, which keeps tests hermetic.
// Returns an error if the file is unreadable, has invalid syntax, or the
// resulting configuration fails validation.
func LoadConfig(path string, environ map[string]string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("invalid YAML syntax in configuration file: %w", err)
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for completeness and correctness.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateTransport(); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.GitLab.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Server.MaxInFlight <= 0 {
		errs = append(errs, fmt.Sprintf("invalid max_in_flight %d: must be positive", c.Server.MaxInFlight))
	}

	if _, err := ParseLogLevel(c.Server.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateTransport validates the transport configuration.
func (c *Config) validateTransport() error {
	var errs []string

	if c.Transport.Type == "" {
		errs = append(errs, "transport type is required")
	} else if c.Transport.Type != "stdio" && c.Transport.Type != "http" {
		errs = append(errs, fmt.Sprintf("invalid transport type '%s': must be 'stdio' or 'http'", c.Transport.Type))
	}

	if c.Transport.Type == "http" {
		if c.Transport.HTTP.Host == "" {
			errs = append(errs, "HTTP host is required when transport type is 'http'")
		}
		if c.Transport.HTTP.Port <= 0 || c.Transport.HTTP.Port > 65535 {
			errs = append(errs, fmt.Sprintf("invalid HTTP port %d: must be between 1 and 65535", c.Transport.HTTP.Port))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates the GitLab section. A missing token is fatal: the
// server must not start without a credential.
func (g *GitLabConfig) Validate() error {
	var errs []string

	if g.Token == "" {
		errs = append(errs, "GitLab access token is required (set GITLAB_API_TOKEN or gitlab.token)")
	}

	if g.BaseURL == "" {
		errs = append(errs, "GitLab base_url is required")
	} else {
		parsedURL, err := url.Parse(g.BaseURL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("GitLab base_url is invalid: %v", err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errs = append(errs, "GitLab base_url must use http or https scheme")
		} else if parsedURL.Host == "" {
			errs = append(errs, "GitLab base_url must include a host")
		}
	}

	if g.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid GitLab timeout %s: must be positive", g.Timeout))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// ParseLogLevel maps a config level name onto a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", level)
	}
}
