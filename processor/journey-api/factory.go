package journeyapi

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// ComponentName is the registered name of the journey-api component.
const ComponentName = "journey-api"

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the journey-api component with the given registry. The
// factory is bound to d, the collaborators configuration cannot describe.
func Register(registry RegistryInterface, d Deps) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        ComponentName,
		Factory:     d.NewComponent,
		Schema:      journeyAPISchema,
		Type:        "processor",
		Protocol:    "http",
		Domain:      "aos",
		Description: "HTTP endpoints for the divorce respondent journey",
		Version:     "0.1.0",
	})
}

// NewComponent creates a journey-api component from its JSON configuration.
// The framework supplies the NATS client and logger; a nil Sessions or Events
// in d is opened over that client when the component starts.
func (d Deps) NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if d.NATSClient == nil {
		d.NATSClient = deps.NATSClient
	}
	if d.Logger == nil {
		d.Logger = deps.GetLogger()
	}
	return New(config, d)
}
