// Package idam authenticates respondents against the identity and access
// management service and gates journey routes on a valid session.
package idam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrUnauthenticated is returned when a token is missing, expired or
// rejected.
var ErrUnauthenticated = errors.New("unauthenticated")

// User is the authenticated respondent.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Forename string   `json:"forename,omitempty"`
	Surname  string   `json:"surname,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Authenticator resolves tokens to users and ends sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (User, error)
	Logout(ctx context.Context, token string) error
}

// maxResponseSize limits the IDAM details body.
const maxResponseSize = 64 * 1024

// Client talks to the IDAM API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// NewClient creates a client for the IDAM API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate returns the user owning token.
func (c *Client) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/details", nil)
	if err != nil {
		return User{}, fmt.Errorf("create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("idam details: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return User{}, fmt.Errorf("read idam details: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return User{}, ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		return User{}, fmt.Errorf("idam details: status %d", resp.StatusCode)
	}

	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return User{}, fmt.Errorf("decode idam details: %w", err)
	}
	if u.ID == "" {
		return User{}, fmt.Errorf("idam details without user id: %w", ErrUnauthenticated)
	}
	return u, nil
}

// Logout ends the IDAM session of token. A session IDAM no longer knows is
// already logged out.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/session/"+url.PathEscape(token), nil)
	if err != nil {
		return fmt.Errorf("create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("idam logout: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("idam logout: status %d", resp.StatusCode)
	}
	return nil
}

// StaticAuthenticator accepts a fixed set of tokens. It stands in for IDAM
// in local runs and tests.
type StaticAuthenticator struct {
	mu    sync.Mutex
	users map[string]User
}

// NewStaticAuthenticator creates an authenticator over token → user.
func NewStaticAuthenticator(users map[string]User) *StaticAuthenticator {
	s := &StaticAuthenticator{users: make(map[string]User, len(users))}
	for token, u := range users {
		s.users[token] = u
	}
	return s
}

// Authenticate returns the user registered for token.
func (s *StaticAuthenticator) Authenticate(_ context.Context, token string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[token]
	if !ok {
		return User{}, ErrUnauthenticated
	}
	return u, nil
}

// Logout forgets token.
func (s *StaticAuthenticator) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.users, token)
	s.mu.Unlock()
	return nil
}
