package journeyapi

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/semstreams/component"
)

// journeyAPISchema defines the configuration schema.
var journeyAPISchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the journey-api component.
type Config struct {
	// DefaultLocale is used when a request names no locale.
	DefaultLocale string `json:"default_locale" yaml:"default_locale" schema:"type:string,description:Locale used when a request names none (en or cy),category:basic,default:en"`

	// MaxBodyBytes limits submission bodies.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" schema:"type:int,description:Maximum submission body size in bytes,category:advanced,default:65536"`

	// SessionTTL expires idle sessions in the KV bucket. Only used when the
	// component opens the bucket itself.
	SessionTTL string `json:"session_ttl" yaml:"session_ttl" schema:"type:string,description:Idle lifetime of a session in the KV bucket,category:basic,default:24h"`

	// Features are the runtime toggles passed to steps.
	Features journey.Features `json:"features" yaml:"features" schema:"type:object,description:Journey feature toggles (respSolicitorDetails and welsh),category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLocale: content.LocaleEnglish,
		MaxBodyBytes:  64 << 10,
		SessionTTL:    "24h",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.DefaultLocale {
	case content.LocaleEnglish, content.LocaleWelsh:
	default:
		return fmt.Errorf("default_locale must be %q or %q", content.LocaleEnglish, content.LocaleWelsh)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	if _, err := c.sessionTTL(); err != nil {
		return err
	}
	return nil
}

func (c *Config) sessionTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("session_ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("session_ttl must be positive")
	}
	return ttl, nil
}
