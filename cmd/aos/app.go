package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/componentregistry"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/aos/config"
	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/idam"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	journeyapi "github.com/c360studio/aos/processor/journey-api"
	"github.com/c360studio/aos/session"
	"github.com/c360studio/aos/steps"
	"github.com/c360studio/aos/storage"
)

// App wires the journey service together.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	natsClient *natsclient.Client

	// Storage
	sessions storage.SessionStore
	cases    *storage.CaseStore

	registry   *journey.Registry
	components *component.Registry
	catalog    *content.Catalog
	watcher  *content.Watcher
	metrics  *prometheus.Registry
	api      *journeyapi.Component
	mux      *http.ServeMux
	server   *http.Server
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Start initializes every component and mounts the HTTP routes. It does not
// listen; call Serve for that.
func (a *App) Start(ctx context.Context) error {
	if err := a.startSessions(ctx); err != nil {
		return fmt.Errorf("start sessions: %w", err)
	}

	cases, err := storage.OpenCaseStore(a.cfg.Cases.Path, a.logger)
	if err != nil {
		return fmt.Errorf("open case store: %w", err)
	}
	a.cases = cases

	registry, err := steps.NewRegistry(a.cfg.Paths)
	if err != nil {
		return fmt.Errorf("register steps: %w", err)
	}
	a.registry = registry

	if err := a.loadContent(); err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	a.metrics = prometheus.NewRegistry()
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := journeyapi.Deps{
		Registry:   a.registry,
		Sessions:   a.sessions,
		Cases:      a.cases,
		Fees:       a.feeLookup(),
		Catalog:    a.catalog,
		Watcher:    a.watcher,
		Gate:       idam.NewGate(a.authenticator(), a.cfg.IDAM.CookieName, a.cfg.IDAM.LoginURL, a.logger),
		Registerer: a.metrics,
	}

	// Register the framework's components and ours
	a.components = component.NewRegistry()
	if err := componentregistry.Register(a.components); err != nil {
		return fmt.Errorf("register semstreams components: %w", err)
	}
	if err := journeyapi.Register(a.components, deps); err != nil {
		return fmt.Errorf("register journey-api: %w", err)
	}
	a.logger.Debug("Component factories registered", "count", len(a.components.ListFactories()))

	api, err := a.createJourneyAPI(deps)
	if err != nil {
		return err
	}
	if err := api.Initialize(); err != nil {
		return fmt.Errorf("initialize journey-api: %w", err)
	}
	if err := api.Start(ctx); err != nil {
		return fmt.Errorf("start journey-api: %w", err)
	}
	a.api = api
	a.sessions = api.Sessions()

	a.mux = http.NewServeMux()
	a.api.RegisterHTTPHandlers(a.cfg.Server.APIPrefix, a.mux)
	a.mux.Handle("GET /metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	a.server = &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Components initialized",
		"sessions", a.sessionBackend(),
		"cases", a.cfg.Cases.Path,
		"content_dir", a.cfg.Content.Dir)
	return nil
}

// createJourneyAPI builds the journey-api component through its factory,
// handing it the NATS client for the session bucket and events stream.
func (a *App) createJourneyAPI(deps journeyapi.Deps) (*journeyapi.Component, error) {
	rawConfig, err := json.Marshal(journeyapi.Config{
		DefaultLocale: a.cfg.Server.DefaultLocale,
		SessionTTL:    a.cfg.Sessions.TTL.String(),
		Features:      a.cfg.Features.Journey(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal journey-api config: %w", err)
	}

	comp, err := deps.NewComponent(rawConfig, component.Dependencies{
		NATSClient: a.natsClient,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create journey-api: %w", err)
	}
	api, ok := comp.(*journeyapi.Component)
	if !ok {
		return nil, fmt.Errorf("journey-api factory returned %T", comp)
	}
	return api, nil
}

// startSessions connects to NATS when configured; journey-api then opens the
// session bucket and events stream over the connection. Without a NATS URL
// sessions live in memory.
func (a *App) startSessions(ctx context.Context) error {
	if a.cfg.Sessions.NATSURL == "" {
		a.sessions = storage.NewMemorySessionStore()
		return nil
	}

	url := a.cfg.Sessions.NATSURL
	a.logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return wrapNATSError(err, url)
	}
	a.natsClient = client

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return wrapNATSError(err, url)
	}

	a.logger.Info("Connected to NATS", "url", url)
	return nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or unset sessions.nats_url to keep sessions in memory.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func (a *App) sessionBackend() string {
	if a.natsClient != nil {
		return "nats"
	}
	return "memory"
}

func (a *App) loadContent() error {
	if a.cfg.Content.Dir == "" {
		catalog, err := content.LoadEmbedded(a.logger)
		if err != nil {
			return err
		}
		a.catalog = catalog
		return nil
	}

	catalog, err := content.Load(os.DirFS(a.cfg.Content.Dir), a.logger)
	if err != nil {
		return err
	}
	a.catalog = catalog

	if a.cfg.Content.Watch {
		watcher, err := content.NewWatcher(a.cfg.Content.Dir, catalog, a.cfg.Content.Debounce, a.logger)
		if err != nil {
			return err
		}
		a.watcher = watcher
	}
	return nil
}

// feeLookup returns the instrumented fee service client.
func (a *App) feeLookup() fees.Lookup {
	client := fees.NewClient(a.cfg.Fees.URL,
		fees.WithHTTPClient(&http.Client{Timeout: a.cfg.Fees.Timeout}),
		fees.WithRetryConfig(a.cfg.RetryConfig()),
		fees.WithLogger(a.logger),
	)
	return fees.NewMetrics(a.metrics).Instrument(client)
}

// authenticator returns the IDAM client, or the configured dev tokens when
// no IDAM API is set.
func (a *App) authenticator() idam.Authenticator {
	if a.cfg.IDAM.APIURL != "" {
		return idam.NewClient(a.cfg.IDAM.APIURL, idam.WithLogger(a.logger))
	}
	users := make(map[string]idam.User, len(a.cfg.IDAM.DevTokens))
	for token, userID := range a.cfg.IDAM.DevTokens {
		users[token] = idam.User{ID: userID}
	}
	a.logger.Warn("IDAM API not configured, accepting dev tokens only", "tokens", len(users))
	return idam.NewStaticAuthenticator(users)
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := a.api.Health()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		a.logger.Warn("Failed to encode health response", "error", err)
	}
}

// Handler returns the HTTP routes. Start must have been called.
func (a *App) Handler() http.Handler {
	return a.mux
}

// Serve listens on the configured address until Shutdown.
func (a *App) Serve() error {
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Seed stores a fresh session for userID built from f. An existing session
// for the user is replaced.
func (a *App) Seed(ctx context.Context, userID string, f *seedFile) (*session.Session, error) {
	sess, err := buildSession(a.registry, userID, f, a.cfg.Features.Journey())
	if err != nil {
		return nil, err
	}
	if err := a.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}
	if a.api != nil {
		if err := a.api.Stop(timeout); err != nil {
			a.logger.Error("Error stopping journey-api", "error", err)
		}
	}
	if a.cases != nil {
		if err := a.cases.Close(); err != nil {
			a.logger.Error("Error closing case store", "error", err)
		}
	}
	if a.natsClient != nil {
		if err := a.natsClient.Close(ctx); err != nil {
			a.logger.Error("Error closing NATS client", "error", err)
		}
	}
}

// seedFile is the session document accepted by seed, serve --seed and
// resolve. Steps holds raw form answers, replayed in journey order.
type seedFile struct {
	CaseID           string                       `json:"caseId,omitempty"`
	OriginalPetition *petition.Petition           `json:"originalPetition"`
	DivorceCenter    session.DivorceCenter        `json:"divorceCenter"`
	Steps            map[string]map[string]string `json:"steps,omitempty"`
}

func readSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	if f.OriginalPetition == nil {
		return nil, fmt.Errorf("session file %s has no originalPetition", path)
	}
	return &f, nil
}

// buildSession creates a session for userID and replays the answers in f
// through each step's form and derived values, so the result matches what
// the respondent would have produced online.
func buildSession(reg *journey.Registry, userID string, f *seedFile, features journey.Features) (*session.Session, error) {
	for name := range f.Steps {
		if _, err := reg.Step(name); err != nil {
			return nil, err
		}
	}

	sess := session.New(userID, f.OriginalPetition)
	sess.CaseID = f.CaseID
	sess.DivorceCenter = f.DivorceCenter

	for _, st := range reg.Steps() {
		raw, ok := f.Steps[st.Name()]
		if !ok {
			continue
		}
		q, ok := st.(journey.Question)
		if !ok {
			return nil, fmt.Errorf("step %s takes no answers", st.Name())
		}
		form := q.Form()
		fields := form.Bind(raw)
		if errs := form.Validate(fields); len(errs) > 0 {
			return nil, fmt.Errorf("step %s: field %s: %s", st.Name(), errs[0].Field, errs[0].Key)
		}
		deltas, err := q.Values(journey.Context{Session: sess, Fields: fields, Features: features})
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", st.Name(), err)
		}
		sess.Record(st.Name(), fields, deltas)
	}
	return sess, nil
}
