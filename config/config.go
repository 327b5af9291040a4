// Package config loads the optional rplace YAML configuration file.
//
// Every setting can also be given on the command line; a flag that is
// explicitly set wins over the file.
package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"

	"github.com/bodgit/rplace/place"
	"gopkg.in/yaml.v3"
)

// Config is the contents of the configuration file.
type Config struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// X and Y are the canvas position of the top-left corner of the image
	X int `yaml:"x"`
	Y int `yaml:"y"`

	// Opaque disables transparency, every pixel of the image is drawn
	Opaque bool `yaml:"opaque"`

	// Journal is the path of the SQLite journal, empty for none
	Journal string `yaml:"journal"`

	// MaxAttempts bounds pixel read retries, zero retries forever
	MaxAttempts int `yaml:"max_attempts"`

	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BaseURL:   place.DefaultBaseURL,
		UserAgent: place.DefaultUserAgent,
	}
}

// ValidationError represents an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError returns true if err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Load reads the configuration file at path, applying defaults for missing
// fields. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all config values are valid.
func Validate(cfg *Config) error {
	if cfg.X < 0 {
		return ValidationError{Field: "x", Message: "must not be negative"}
	}
	if cfg.Y < 0 {
		return ValidationError{Field: "y", Message: "must not be negative"}
	}
	if cfg.MaxAttempts < 0 {
		return ValidationError{Field: "max_attempts", Message: "must not be negative"}
	}
	if cfg.BaseURL == "" {
		return ValidationError{Field: "base_url", Message: "required field is empty"}
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: "base_url", Message: "must be an absolute http(s) URL"}
	}
	return nil
}
