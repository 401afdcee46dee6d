package journeyapi

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/idam"
	"github.com/c360studio/aos/steps"
	"github.com/c360studio/aos/storage"
	"github.com/c360studio/semstreams/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	registry, err := steps.NewRegistry(nil)
	require.NoError(t, err)
	catalog, err := content.LoadEmbedded(nil)
	require.NoError(t, err)
	return Deps{
		Registry: registry,
		Sessions: storage.NewMemorySessionStore(),
		Cases:    &fakeCases{},
		Fees:     &fakeFees{},
		Catalog:  catalog,
		Gate:     idam.NewGate(idam.NewStaticAuthenticator(nil), "", "https://idam.example/login", nil),
	}
}

func TestNewComponent_ValidConfig(t *testing.T) {
	rawConfig := json.RawMessage(`{
		"default_locale": "cy",
		"session_ttl": "2h",
		"features": {"welsh": true}
	}`)

	comp, err := testDeps(t).NewComponent(rawConfig, component.Dependencies{Logger: slog.Default()})
	require.NoError(t, err)

	c, ok := comp.(*Component)
	require.True(t, ok, "NewComponent() did not return *Component")
	assert.Equal(t, "cy", c.config.DefaultLocale)
	assert.Equal(t, "2h", c.config.SessionTTL)
	assert.True(t, c.config.Features.Welsh)
	assert.Equal(t, int64(64<<10), c.config.MaxBodyBytes)
}

func TestNewComponent_DefaultsApplied(t *testing.T) {
	comp, err := testDeps(t).NewComponent(json.RawMessage(`{}`), component.Dependencies{})
	require.NoError(t, err)

	c := comp.(*Component)
	assert.Equal(t, DefaultConfig(), c.config)
	assert.NotNil(t, c.logger)
}

func TestNewComponent_InvalidConfig(t *testing.T) {
	_, err := testDeps(t).NewComponent(json.RawMessage(`{invalid json}`), component.Dependencies{})
	assert.Error(t, err)

	_, err = testDeps(t).NewComponent(json.RawMessage(`{"default_locale":"fr"}`), component.Dependencies{})
	assert.Error(t, err)
}

func TestNewComponent_RequiresSessionsWithoutNATS(t *testing.T) {
	d := testDeps(t)
	d.Sessions = nil
	_, err := d.NewComponent(nil, component.Dependencies{})
	assert.Error(t, err)
}

func TestComponentMetadata(t *testing.T) {
	comp, err := testDeps(t).NewComponent(nil, component.Dependencies{})
	require.NoError(t, err)

	meta := comp.Meta()
	assert.Equal(t, ComponentName, meta.Name)
	assert.Equal(t, "processor", meta.Type)
	assert.Equal(t, "0.1.0", meta.Version)

	assert.Empty(t, comp.InputPorts())
	outputs := comp.OutputPorts()
	require.Len(t, outputs, 1)
	assert.Equal(t, component.DirectionOutput, outputs[0].Direction)
	port, ok := outputs[0].Config.(component.NATSPort)
	require.True(t, ok)
	assert.Equal(t, "aos.submitted.>", port.Subject)

	assert.False(t, comp.Health().Healthy)
	assert.Equal(t, "stopped", comp.Health().Status)
}

func TestRegister(t *testing.T) {
	assert.Error(t, Register(nil, testDeps(t)))

	registry := component.NewRegistry()
	require.NoError(t, Register(registry, testDeps(t)))
	assert.NotEmpty(t, registry.ListFactories())
}
