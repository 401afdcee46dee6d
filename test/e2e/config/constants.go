// Package config provides configuration constants for e2e tests.
package config

import "time"

// Default connection URLs.
const (
	DefaultBaseURL     = "http://localhost:3000"
	DefaultNATSURL     = "nats://localhost:4222"
	DefaultMockFeesURL = "http://localhost:4411"
	DefaultAPIPrefix   = "/api/"
)

// Default timeouts.
const (
	DefaultStageTimeout = 30 * time.Second
	DefaultEventTimeout = 10 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
)

// E2E identity. The service under test must accept DefaultToken as a dev
// token for DefaultUserID.
const (
	DefaultToken      = "e2e-token"
	DefaultUserID     = "e2e-user"
	DefaultCookieName = "__auth-token"
)

// Config holds the e2e test configuration.
type Config struct {
	BaseURL      string        `json:"base_url"`
	APIPrefix    string        `json:"api_prefix"`
	NATSURL      string        `json:"nats_url"`
	MockFeesURL  string        `json:"mock_fees_url,omitempty"`
	Token        string        `json:"token"`
	CookieName   string        `json:"cookie_name"`
	UserID       string        `json:"user_id"`
	Locale       string        `json:"locale,omitempty"`
	StageTimeout time.Duration `json:"stage_timeout"`
	EventTimeout time.Duration `json:"event_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		APIPrefix:    DefaultAPIPrefix,
		NATSURL:      DefaultNATSURL,
		MockFeesURL:  DefaultMockFeesURL,
		Token:        DefaultToken,
		CookieName:   DefaultCookieName,
		UserID:       DefaultUserID,
		StageTimeout: DefaultStageTimeout,
		EventTimeout: DefaultEventTimeout,
	}
}
