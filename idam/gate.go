package idam

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
)

// DefaultCookieName is the cookie carrying the IDAM token.
const DefaultCookieName = "__auth-token"

type userKey struct{}
type tokenKey struct{}

// WithUser returns a context carrying the authenticated user and token.
func WithUser(ctx context.Context, u User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey{}, u)
	return context.WithValue(ctx, tokenKey{}, token)
}

// UserFromContext returns the user stored by Protect.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// Gate enforces authentication in front of journey handlers.
type Gate struct {
	auth       Authenticator
	cookieName string
	loginURL   string
	logger     *slog.Logger
}

// NewGate creates a gate. Unauthenticated requests are redirected to
// loginURL.
func NewGate(auth Authenticator, cookieName, loginURL string, logger *slog.Logger) *Gate {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{auth: auth, cookieName: cookieName, loginURL: loginURL, logger: logger}
}

// Protect authenticates each request before next runs. Any failure ends in
// a redirect to the login page.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(g.cookieName)
		if err != nil || c.Value == "" {
			g.redirectToLogin(w, r)
			return
		}

		u, err := g.auth.Authenticate(r.Context(), c.Value)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				g.logger.Warn("IDAM authentication failed", "path", r.URL.Path, "error", err)
			}
			g.redirectToLogin(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u, c.Value)))
	})
}

// Logout ends the IDAM session of the request's user and clears the cookie.
// The cookie is cleared even when IDAM fails.
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request) error {
	err := g.auth.Logout(r.Context(), tokenFromContext(r.Context()))
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return err
}

func (g *Gate) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := g.loginURL
	if u, err := url.Parse(g.loginURL); err == nil {
		q := u.Query()
		q.Set("continue-url", r.URL.RequestURI())
		u.RawQuery = q.Encode()
		target = u.String()
	}
	http.Redirect(w, r, target, http.StatusFound)
}
