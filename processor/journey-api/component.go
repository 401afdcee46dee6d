// Package journeyapi serves the respondent journey over HTTP. Each request
// renders or submits one step against the respondent's stored session.
package journeyapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/events"
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/idam"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/session"
	"github.com/c360studio/aos/storage"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/prometheus/client_golang/prometheus"
)

// caseStore is the part of storage.CaseStore the component uses.
type caseStore interface {
	Submit(ctx context.Context, sess *session.Session, response string, answers []journey.Answer) (*storage.CaseRecord, error)
}

// submittedPublisher is the part of events.Publisher the component uses.
type submittedPublisher interface {
	PublishSubmitted(ctx context.Context, e events.Submitted) error
}

// Deps are the collaborators of the component. Watcher is optional. With a
// NATS client, a nil Sessions or Events is opened over JetStream on Start;
// without one, Sessions is required and events are not published.
type Deps struct {
	Registry *journey.Registry
	Sessions storage.SessionStore
	Cases    caseStore
	Events   submittedPublisher
	Fees     fees.Lookup
	Catalog  *content.Catalog
	Watcher  *content.Watcher
	Gate     *idam.Gate

	NATSClient *natsclient.Client

	// Registerer receives the component's collectors. Nil skips metrics
	// registration.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// Component implements the journey-api component.
type Component struct {
	name   string
	config Config
	deps   Deps
	logger *slog.Logger

	submissions *prometheus.CounterVec
	renders     *prometheus.HistogramVec

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// New creates a journey-api component over explicit collaborators.
func New(config Config, deps Deps) (*Component, error) {
	// Apply defaults
	defaults := DefaultConfig()
	if config.DefaultLocale == "" {
		config.DefaultLocale = defaults.DefaultLocale
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.SessionTTL == "" {
		config.SessionTTL = defaults.SessionTTL
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch {
	case deps.Registry == nil:
		return nil, errors.New("step registry required")
	case deps.Sessions == nil && deps.NATSClient == nil:
		return nil, errors.New("session store or NATS client required")
	case deps.Cases == nil:
		return nil, errors.New("case store required")
	case deps.Fees == nil:
		return nil, errors.New("fee lookup required")
	case deps.Catalog == nil:
		return nil, errors.New("content catalog required")
	case deps.Gate == nil:
		return nil, errors.New("auth gate required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Component{
		name:   ComponentName,
		config: config,
		deps:   deps,
		logger: logger,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aos",
			Name:      "step_submissions_total",
			Help:      "Step submissions by step and outcome.",
		}, []string{"step", "outcome"}),
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aos",
			Name:      "step_render_duration_seconds",
			Help:      "Step render latency including fee annotation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}
	if deps.Registerer != nil {
		if err := deps.Registerer.Register(c.submissions); err != nil {
			return nil, fmt.Errorf("register submissions metric: %w", err)
		}
		if err := deps.Registerer.Register(c.renders); err != nil {
			return nil, fmt.Errorf("register render metric: %w", err)
		}
	}
	return c, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized journey-api",
		"steps", len(c.deps.Registry.Steps()),
		"nats", c.deps.NATSClient != nil)
	return nil
}

// Start begins the component. It opens the NATS-backed session store and
// event publisher when they were not supplied, then starts the catalog
// watcher. Requests are served only once Start has returned.
func (c *Component) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		currentState := c.state.Load()
		if currentState == stateRunning || currentState == stateStarting {
			return fmt.Errorf("component already running or starting")
		}
		return fmt.Errorf("component in invalid state: %d", currentState)
	}

	// Ensure we transition to stopped if setup fails
	defer func() {
		if c.state.Load() == stateStarting {
			c.state.Store(stateStopped)
		}
	}()

	if err := c.openJetStream(ctx); err != nil {
		return err
	}

	childCtx, cancel := context.WithCancel(ctx)
	if c.deps.Watcher != nil {
		if err := c.deps.Watcher.Start(childCtx); err != nil {
			cancel()
			return fmt.Errorf("start content watcher: %w", err)
		}
	}

	c.mu.Lock()
	c.cancel = cancel
	c.startTime = time.Now()
	c.mu.Unlock()

	c.state.Store(stateRunning)
	c.logger.Info("journey-api started",
		"steps", len(c.deps.Registry.Steps()),
		"locales", c.deps.Catalog.Locales(),
		"events", c.publisher() != nil)
	return nil
}

// openJetStream fills in the session store and event publisher from the NATS
// client. Supplied collaborators are kept.
func (c *Component) openJetStream(ctx context.Context) error {
	if c.deps.NATSClient == nil || (c.sessionStore() != nil && c.publisher() != nil) {
		return nil
	}

	js, err := c.deps.NATSClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deps.Sessions == nil {
		ttl, err := c.config.sessionTTL()
		if err != nil {
			return err
		}
		store, err := storage.NewKVSessionStore(ctx, js, ttl, c.logger)
		if err != nil {
			return err
		}
		c.deps.Sessions = store
	}
	if c.deps.Events == nil {
		if err := events.EnsureStream(ctx, js); err != nil {
			return err
		}
		c.deps.Events = events.NewPublisher(js, c.logger)
	}
	return nil
}

// Sessions returns the session store in use. It is nil until Start has
// opened a NATS-backed store.
func (c *Component) Sessions() storage.SessionStore {
	return c.sessionStore()
}

func (c *Component) sessionStore() storage.SessionStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deps.Sessions
}

func (c *Component) publisher() submittedPublisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deps.Events
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		currentState := c.state.Load()
		if currentState == stateStopped || currentState == stateStopping {
			return nil
		}
		return fmt.Errorf("component in unexpected state: %d", currentState)
	}

	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if c.deps.Watcher != nil {
		err = c.deps.Watcher.Stop()
	}

	c.state.Store(stateStopped)
	c.logger.Info("journey-api stopped")
	return err
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        ComponentName,
		Type:        "processor",
		Description: "HTTP endpoints for the divorce respondent journey",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	return []component.Port{}
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "submitted",
			Direction:   component.DirectionOutput,
			Required:    false,
			Description: "Respondent answers filed with the court, keyed by case",
			Config: component.NATSPort{
				Subject: events.SubjectSubmittedPrefix + ">",
			},
		},
	}
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return journeyAPISchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	state := c.state.Load()

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	switch state {
	case stateStarting:
		status = "starting"
	case stateRunning:
		status = "running"
	case stateStopping:
		status = "stopping"
	}

	var uptime time.Duration
	if state == stateRunning {
		uptime = time.Since(startTime)
	}
	return component.HealthStatus{
		Healthy:   state == stateRunning,
		LastCheck: time.Now(),
		Uptime:    uptime,
		Status:    status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{}
}
