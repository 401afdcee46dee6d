// Package config provides configuration loading and management for the
// respondent journey service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/journey"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Sessions SessionsConfig    `yaml:"sessions"`
	Fees     FeesConfig        `yaml:"fees"`
	IDAM     IDAMConfig        `yaml:"idam"`
	Cases    CasesConfig       `yaml:"cases"`
	Content  ContentConfig     `yaml:"content"`
	Features FeaturesConfig    `yaml:"features"`
	Paths    map[string]string `yaml:"paths,omitempty"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	// Addr is the listen address (default: :3000)
	Addr string `yaml:"addr"`
	// APIPrefix mounts the journey API, with leading and trailing slash
	APIPrefix string `yaml:"api_prefix"`
	// DefaultLocale is the locale used when a request names none
	DefaultLocale string `yaml:"default_locale"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SessionsConfig configures the session store
type SessionsConfig struct {
	// NATSURL is the NATS server URL (empty = in-memory store)
	NATSURL string `yaml:"nats_url"`
	// TTL expires idle sessions
	TTL time.Duration `yaml:"ttl"`
}

// FeesConfig configures the fee service client
type FeesConfig struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// IDAMConfig configures authentication
type IDAMConfig struct {
	// APIURL is the IDAM API (empty = accept DevTokens only)
	APIURL string `yaml:"api_url"`
	// LoginURL receives unauthenticated respondents
	LoginURL   string `yaml:"login_url"`
	CookieName string `yaml:"cookie_name"`
	// DevTokens maps a token to a user ID for local runs without IDAM
	DevTokens map[string]string `yaml:"dev_tokens,omitempty"`
}

// CasesConfig configures the case record database
type CasesConfig struct {
	// Path is the SQLite database file
	Path string `yaml:"path"`
}

// ContentConfig configures the text catalogs
type ContentConfig struct {
	// Dir holds <locale>/<Step>.yaml files (empty = embedded catalogs)
	Dir string `yaml:"dir"`
	// Watch reloads Dir on change
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// FeaturesConfig holds the runtime toggles
type FeaturesConfig struct {
	RespSolicitorDetails bool `yaml:"resp_solicitor_details"`
	Welsh                bool `yaml:"welsh"`
}

// Journey returns the toggles in the form steps consume.
func (f FeaturesConfig) Journey() journey.Features {
	return journey.Features{SolicitorDetails: f.RespSolicitorDetails, Welsh: f.Welsh}
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	retry := fees.DefaultRetryConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			APIPrefix:       "/api/",
			DefaultLocale:   content.LocaleEnglish,
			ShutdownTimeout: 10 * time.Second,
		},
		Sessions: SessionsConfig{
			NATSURL: "", // In-memory
			TTL:     24 * time.Hour,
		},
		Fees: FeesConfig{
			URL:         "http://localhost:4411",
			Timeout:     5 * time.Second,
			MaxAttempts: retry.MaxAttempts,
			BackoffBase: retry.BackoffBase,
		},
		IDAM: IDAMConfig{
			LoginURL:   "http://localhost:3501/login",
			CookieName: "__auth-token",
		},
		Cases: CasesConfig{
			Path: "aos-cases.db",
		},
		Content: ContentConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") || !strings.HasSuffix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("server.api_prefix must start and end with /")
	}
	if c.Server.DefaultLocale != content.LocaleEnglish && c.Server.DefaultLocale != content.LocaleWelsh {
		return fmt.Errorf("server.default_locale must be en or cy")
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be positive")
	}
	if c.Fees.URL == "" {
		return fmt.Errorf("fees.url is required")
	}
	if c.Fees.MaxAttempts < 1 {
		return fmt.Errorf("fees.max_attempts must be at least 1")
	}
	if c.IDAM.APIURL == "" && len(c.IDAM.DevTokens) == 0 {
		return fmt.Errorf("idam.api_url or idam.dev_tokens is required")
	}
	if c.IDAM.LoginURL == "" {
		return fmt.Errorf("idam.login_url is required")
	}
	if c.Cases.Path == "" {
		return fmt.Errorf("cases.path is required")
	}
	if c.Content.Watch && c.Content.Dir == "" {
		return fmt.Errorf("content.watch requires content.dir")
	}
	for step, path := range c.Paths {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("paths.%s must start with /", step)
		}
	}
	return nil
}

// RetryConfig returns the fee client retry policy.
func (c *Config) RetryConfig() fees.RetryConfig {
	retry := fees.DefaultRetryConfig()
	retry.MaxAttempts = c.Fees.MaxAttempts
	if c.Fees.BackoffBase > 0 {
		retry.BackoffBase = c.Fees.BackoffBase
	}
	return retry
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.APIPrefix != "" {
		c.Server.APIPrefix = other.Server.APIPrefix
	}
	if other.Server.DefaultLocale != "" {
		c.Server.DefaultLocale = other.Server.DefaultLocale
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	// Sessions
	if other.Sessions.NATSURL != "" {
		c.Sessions.NATSURL = other.Sessions.NATSURL
	}
	if other.Sessions.TTL != 0 {
		c.Sessions.TTL = other.Sessions.TTL
	}

	// Fees
	if other.Fees.URL != "" {
		c.Fees.URL = other.Fees.URL
	}
	if other.Fees.Timeout != 0 {
		c.Fees.Timeout = other.Fees.Timeout
	}
	if other.Fees.MaxAttempts != 0 {
		c.Fees.MaxAttempts = other.Fees.MaxAttempts
	}
	if other.Fees.BackoffBase != 0 {
		c.Fees.BackoffBase = other.Fees.BackoffBase
	}

	// IDAM
	if other.IDAM.APIURL != "" {
		c.IDAM.APIURL = other.IDAM.APIURL
	}
	if other.IDAM.LoginURL != "" {
		c.IDAM.LoginURL = other.IDAM.LoginURL
	}
	if other.IDAM.CookieName != "" {
		c.IDAM.CookieName = other.IDAM.CookieName
	}
	if len(other.IDAM.DevTokens) > 0 {
		c.IDAM.DevTokens = other.IDAM.DevTokens
	}

	// Cases
	if other.Cases.Path != "" {
		c.Cases.Path = other.Cases.Path
	}

	// Content
	if other.Content.Dir != "" {
		c.Content.Dir = other.Content.Dir
	}
	if other.Content.Watch {
		c.Content.Watch = true
	}
	if other.Content.Debounce != 0 {
		c.Content.Debounce = other.Content.Debounce
	}

	// Features
	if other.Features.RespSolicitorDetails {
		c.Features.RespSolicitorDetails = true
	}
	if other.Features.Welsh {
		c.Features.Welsh = true
	}

	// Paths
	for step, path := range other.Paths {
		if c.Paths == nil {
			c.Paths = make(map[string]string)
		}
		c.Paths[step] = path
	}
}
