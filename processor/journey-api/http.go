package journeyapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/events"
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/idam"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/session"
	"github.com/c360studio/aos/storage"
)

// RegisterHTTPHandlers registers the journey endpoints under prefix. The
// prefix includes the trailing slash (e.g., "/api/").
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	protect := func(h http.HandlerFunc) http.Handler {
		return c.deps.Gate.Protect(h)
	}

	// GET /steps/{name} - render context of a step
	mux.Handle("GET "+prefix+"steps/{name}", protect(c.handleGetStep))

	// POST /steps/{name} - submit a step
	mux.Handle("POST "+prefix+"steps/{name}", protect(c.handlePostStep))

	// GET /session - the respondent's session
	mux.Handle("GET "+prefix+"session", protect(c.handleGetSession))
}

// RenderContext is the response for GET /steps/{name}.
type RenderContext struct {
	Step   string            `json:"step"`
	Path   string            `json:"path"`
	Locale string            `json:"locale"`
	Keys   []string          `json:"keys"`
	Values map[string]string `json:"values,omitempty"`
	Text   map[string]string `json:"text"`
	Fees   fees.Annotations  `json:"fees,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// SubmitResponse is the response for a successful POST /steps/{name}.
type SubmitResponse struct {
	Next     string `json:"next"`
	Path     string `json:"path"`
	RecordID string `json:"record_id,omitempty"`
}

// ValidationResponse is the 422 response for an invalid submission.
type ValidationResponse struct {
	Step   string               `json:"step"`
	Errors []journey.FieldError `json:"errors"`
	Fields map[string]string    `json:"fields,omitempty"`
}

// handleGetStep handles GET /steps/{name}.
// Query parameters:
//   - lng: locale, en or cy (default: configured locale)
func (c *Component) handleGetStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	step, ok := c.lookupStep(w, r)
	if !ok {
		return
	}
	sess, ok := c.loadSession(w, r)
	if !ok {
		return
	}

	// Fees are resolved before content; a failed lookup blocks the page.
	annotations, err := fees.Annotate(ctx, c.deps.Fees, step.FeeCodes())
	if err != nil {
		c.logger.Error("Fee annotation failed", "step", step.Name(), "error", err)
		c.writeError(w, http.StatusBadGateway, "fee service unavailable")
		return
	}

	var fields map[string]string
	if a, ok := sess.Steps[step.Name()]; ok {
		fields = a.Fields
	}
	jc := journey.Context{Session: sess, Fields: fields, Fees: annotations, Features: c.config.Features}
	sel := step.Content(jc)

	if _, exit := step.(journey.ExitPoint); exit {
		if err := c.deps.Gate.Logout(w, r); err != nil {
			c.logger.Warn("IDAM logout failed", "user_id", sess.UserID, "error", err)
		}
	}

	locale := c.locale(r)
	c.writeJSON(w, http.StatusOK, RenderContext{
		Step:   step.Name(),
		Path:   c.deps.Registry.Path(step.Name()),
		Locale: locale,
		Keys:   sel.Keys,
		Values: sel.Values,
		Text:   c.deps.Catalog.Render(locale, step.Name(), sel.Keys, sel.Values),
		Fees:   annotations,
		Fields: fields,
	})
	c.renders.WithLabelValues(step.Name()).Observe(time.Since(start).Seconds())
}

// handlePostStep handles POST /steps/{name}. The body is a JSON object of
// field values or a urlencoded form.
func (c *Component) handlePostStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	step, ok := c.lookupStep(w, r)
	if !ok {
		return
	}
	q, ok := step.(journey.Question)
	if !ok {
		c.writeError(w, http.StatusMethodNotAllowed, "step takes no answers")
		return
	}
	sess, ok := c.loadSession(w, r)
	if !ok {
		return
	}

	_, submits := q.(journey.Submitter)
	if submits && sess.SubmittedAt != nil {
		c.count(step, "already_submitted")
		c.writeError(w, http.StatusConflict, "response already submitted")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.config.MaxBodyBytes)
	raw, err := readFields(r)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	form := q.Form()
	fields := form.Bind(raw)
	if errs := form.Validate(fields); len(errs) > 0 {
		locale := c.locale(r)
		for i := range errs {
			errs[i].Text = c.errorText(locale, step.Name(), errs[i])
		}
		c.count(step, "invalid")
		c.writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Step: step.Name(), Errors: errs, Fields: fields})
		return
	}

	jc := journey.Context{Session: sess, Fields: fields, Features: c.config.Features}
	deltas, err := q.Values(jc)
	if err != nil {
		c.failSubmission(w, step, err)
		return
	}
	next, err := q.Next(jc)
	if err != nil {
		c.failSubmission(w, step, err)
		return
	}
	path := c.deps.Registry.Path(next)
	if path == "" {
		c.failSubmission(w, step, errors.New("next step "+next+" is not registered"))
		return
	}

	var response string
	if submits {
		response, err = q.(journey.Submitter).Response(sess)
		if err != nil {
			c.logger.Warn("Submission refused", "user_id", sess.UserID, "error", err)
			c.count(step, "incomplete")
			c.writeError(w, http.StatusConflict, "response not complete")
			return
		}
	}

	sess.Record(step.Name(), fields, deltas)

	resp := SubmitResponse{Next: next, Path: path}
	if submits {
		rec, err := c.submit(r, sess, response)
		if err != nil {
			c.logger.Error("Case submission failed", "user_id", sess.UserID, "error", err)
			c.count(step, "error")
			c.writeError(w, http.StatusInternalServerError, "failed to submit response")
			return
		}
		resp.RecordID = rec.ID
	}

	if err := c.sessionStore().Put(ctx, sess); err != nil {
		c.logger.Error("Failed to save session", "user_id", sess.UserID, "error", err)
		c.count(step, "error")
		c.writeError(w, http.StatusInternalServerError, "failed to save answers")
		return
	}

	c.count(step, "ok")
	c.logger.Debug("Step submitted", "step", step.Name(), "next", next, "user_id", sess.UserID)

	w.Header().Set("Location", path)
	c.writeJSON(w, http.StatusSeeOther, resp)
}

// submit stores the case record and announces it. The record is the
// outcome; a failed event publish is logged only. The case store files one
// record per session, so a retry after a failed session save returns the
// record already stored.
func (c *Component) submit(r *http.Request, sess *session.Session, response string) (*storage.CaseRecord, error) {
	ctx := r.Context()
	answers := c.deps.Registry.Answers(
		journey.Context{Session: sess, Features: c.config.Features},
		plainTexts{catalog: c.deps.Catalog},
	)

	sess.MarkSubmitted(time.Now())
	rec, err := c.deps.Cases.Submit(ctx, sess, response, answers)
	if err != nil {
		sess.SubmittedAt = nil
		return nil, err
	}

	if pub := c.publisher(); pub != nil {
		ev := events.Submitted{
			RecordID:    rec.ID,
			CaseID:      rec.CaseID,
			UserID:      rec.UserID,
			SessionID:   rec.SessionID,
			Reason:      rec.Reason,
			Response:    rec.Response,
			Flags:       sess.DerivedFlags(),
			SubmittedAt: rec.SubmittedAt,
		}
		if err := pub.PublishSubmitted(ctx, ev); err != nil {
			c.logger.Warn("Failed to publish submission event", "record_id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

// handleGetSession handles GET /session.
func (c *Component) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.loadSession(w, r)
	if !ok {
		return
	}
	c.writeJSON(w, http.StatusOK, sess)
}

func (c *Component) lookupStep(w http.ResponseWriter, r *http.Request) (journey.Step, bool) {
	name := r.PathValue("name")
	step, err := c.deps.Registry.Step(name)
	if err != nil {
		c.writeError(w, http.StatusNotFound, "unknown step")
		return nil, false
	}
	return step, true
}

func (c *Component) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	user, ok := idam.UserFromContext(r.Context())
	if !ok {
		c.writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	store := c.sessionStore()
	if store == nil {
		c.writeError(w, http.StatusServiceUnavailable, "session store not ready")
		return nil, false
	}
	sess, err := store.Get(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.writeError(w, http.StatusNotFound, "no case found for user")
			return nil, false
		}
		c.logger.Error("Failed to load session", "user_id", user.ID, "error", err)
		c.writeError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return sess, true
}

// failSubmission reports a broken step rule. Nothing is saved.
func (c *Component) failSubmission(w http.ResponseWriter, step journey.Step, err error) {
	if errors.Is(err, journey.ErrInvariant) {
		c.logger.Error("Journey invariant violated", "step", step.Name(), "error", err)
	} else {
		c.logger.Error("Step submission failed", "step", step.Name(), "error", err)
	}
	c.count(step, "error")
	c.writeError(w, http.StatusInternalServerError, "failed to process answers")
}

func (c *Component) count(step journey.Step, outcome string) {
	c.submissions.WithLabelValues(step.Name(), outcome).Inc()
}

// locale returns the requested locale when it is loaded and allowed.
func (c *Component) locale(r *http.Request) string {
	lng := r.URL.Query().Get("lng")
	switch {
	case lng == content.LocaleEnglish:
		return lng
	case lng == content.LocaleWelsh && c.config.Features.Welsh:
		return lng
	default:
		return c.config.DefaultLocale
	}
}

// errorText prefers a field-specific message over the generic one.
func (c *Component) errorText(locale, step string, fe journey.FieldError) string {
	specific := "fields." + fe.Field + "." + fe.Key
	if c.deps.Catalog.Has(locale, step, specific) {
		return c.deps.Catalog.Lookup(locale, step, specific)
	}
	return c.deps.Catalog.Lookup(locale, step, fe.Key)
}

func readFields(r *http.Request) (map[string]string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
		return out, nil
	}

	out := make(map[string]string)
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// plainTexts renders catalog text without markup for the case record.
type plainTexts struct {
	catalog *content.Catalog
}

func (p plainTexts) Lookup(locale, step, key string) string {
	s := p.catalog.Lookup(locale, step, key)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	text, err := content.PlainText(s)
	if err != nil {
		return s
	}
	return text
}

// writeJSON writes a JSON response.
func (c *Component) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Warn("Failed to write JSON response", "error", err)
	}
}

// writeError writes an error response.
func (c *Component) writeError(w http.ResponseWriter, status int, message string) {
	c.writeJSON(w, status, map[string]string{"error": message})
}
