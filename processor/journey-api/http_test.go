package journeyapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/events"
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/idam"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/session"
	"github.com/c360studio/aos/steps"
	"github.com/c360studio/aos/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "token-1"

type fakeCases struct {
	mu      sync.Mutex
	records []*storage.CaseRecord
	err     error
}

func (f *fakeCases) Submit(_ context.Context, sess *session.Session, response string, answers []journey.Answer) (*storage.CaseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, rec := range f.records {
		if rec.SessionID == sess.ID {
			return rec, nil
		}
	}
	data, _ := json.Marshal(answers)
	rec := &storage.CaseRecord{
		ID:          "case-1",
		CaseID:      sess.CaseID,
		UserID:      sess.UserID,
		SessionID:   sess.ID,
		Reason:      string(sess.Petition().ReasonForDivorce),
		Response:    response,
		AnswersJSON: string(data),
		SubmittedAt: *sess.SubmittedAt,
	}
	f.records = append(f.records, rec)
	return rec, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.Submitted
}

func (f *fakeEvents) PublishSubmitted(_ context.Context, e events.Submitted) error {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
	return nil
}

type fakeFees struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeFees) Get(_ context.Context, code string) (fees.Fee, error) {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	f.mu.Unlock()
	if f.err != nil {
		return fees.Fee{}, f.err
	}
	return fees.Fee{FeeCode: code, Version: 1, Amount: 245}, nil
}

func (f *fakeFees) sortedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

type harness struct {
	mux      *http.ServeMux
	comp     *Component
	sessions *storage.MemorySessionStore
	cases    *fakeCases
	events   *fakeEvents
	fees     *fakeFees
	reg      *prometheus.Registry
	auth     *idam.StaticAuthenticator
}

func newHarness(t *testing.T, p *petition.Petition, features journey.Features, registry *journey.Registry) *harness {
	t.Helper()

	if registry == nil {
		var err error
		registry, err = steps.NewRegistry(nil)
		require.NoError(t, err)
	}
	catalog, err := content.LoadEmbedded(nil)
	require.NoError(t, err)

	h := &harness{
		mux:      http.NewServeMux(),
		sessions: storage.NewMemorySessionStore(),
		cases:    &fakeCases{},
		events:   &fakeEvents{},
		fees:     &fakeFees{},
		reg:      prometheus.NewRegistry(),
		auth:     idam.NewStaticAuthenticator(map[string]idam.User{testToken: {ID: "user-1", Email: "r@example.com"}}),
	}
	if p != nil {
		sess := session.New("user-1", p)
		sess.CaseID = "1234567890"
		require.NoError(t, h.sessions.Put(context.Background(), sess))
	}

	cfg := DefaultConfig()
	cfg.Features = features
	h.comp, err = New(cfg, Deps{
		Registry:   registry,
		Sessions:   h.sessions,
		Cases:      h.cases,
		Events:     h.events,
		Fees:       h.fees,
		Catalog:    catalog,
		Gate:       idam.NewGate(h.auth, "", "https://idam.example/login", nil),
		Registerer: h.reg,
	})
	require.NoError(t, err)
	h.comp.RegisterHTTPHandlers("/api/", h.mux)
	return h
}

func (h *harness) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: idam.DefaultCookieName, Value: testToken})
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func (h *harness) session(t *testing.T) *session.Session {
	t.Helper()
	sess, err := h.sessions.Get(context.Background(), "user-1")
	require.NoError(t, err)
	return sess
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	h := newHarness(t, &petition.Petition{}, journey.Features{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/steps/ChooseAResponse", nil)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idam.example", loc.Host)
	assert.Equal(t, "/api/steps/ChooseAResponse", loc.Query().Get("continue-url"))
}

func TestGetStep_ReviewApplication(t *testing.T) {
	h := newHarness(t, &petition.Petition{
		CaseReference:    "LV17D80101",
		ReasonForDivorce: petition.ReasonBehaviour,
	}, journey.Features{}, nil)

	rec := h.do(http.MethodGet, "/api/steps/ReviewApplication", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got RenderContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ReviewApplication", got.Step)
	assert.Equal(t, "/review-application", got.Path)
	assert.Equal(t, "en", got.Locale)
	assert.Contains(t, got.Keys, "descriptionOfBehaviour")
	assert.Equal(t, "Review the divorce application", got.Text["title"])
	assert.Equal(t, "Case reference number: LV17D80101", got.Text["caseReferenceHeading"])
	assert.Len(t, got.Fees, 3)

	assert.Equal(t, []string{
		"application-financial-order-fee",
		"general-application-fee",
		"petition-issue-fee",
	}, h.fees.sortedCalls())
}

func TestGetStep_FeeFailureBlocksRender(t *testing.T) {
	h := newHarness(t, &petition.Petition{}, journey.Features{}, nil)
	h.fees.err = errors.New("fee service: connection refused")

	rec := h.do(http.MethodGet, "/api/steps/ChooseAResponse", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetStep_NotFound(t *testing.T) {
	h := newHarness(t, &petition.Petition{}, journey.Features{}, nil)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/steps/Nope", "").Code)

	empty := newHarness(t, nil, journey.Features{}, nil)
	assert.Equal(t, http.StatusNotFound, empty.do(http.MethodGet, "/api/steps/ChooseAResponse", "").Code)
}

func TestGetStep_WelshLocale(t *testing.T) {
	h := newHarness(t, &petition.Petition{}, journey.Features{Welsh: true}, nil)

	rec := h.do(http.MethodGet, "/api/steps/ChooseAResponse?lng=cy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got RenderContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "cy", got.Locale)
	assert.Equal(t, "Sut ydych chi eisiau ymateb?", got.Text["title"])
	assert.Equal(t, "Mae amddiffyn yr ysgariad yn costio £245.", got.Text["defendFeeHint"])

	off := newHarness(t, &petition.Petition{}, journey.Features{}, nil)
	rec = off.do(http.MethodGet, "/api/steps/ChooseAResponse?lng=cy", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "en", got.Locale)
}

func TestPostStep_InvalidLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t, &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour}, journey.Features{}, nil)
	before := h.session(t)

	rec := h.do(http.MethodPost, "/api/steps/ChooseAResponse", `{"response":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var got ValidationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "response", got.Errors[0].Field)
	assert.Equal(t, journey.ErrKeyRequired, got.Errors[0].Key)
	assert.Equal(t, "Choose how you want to respond", got.Errors[0].Text)

	rec = h.do(http.MethodPost, "/api/steps/ChooseAResponse", `{"response":"later"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Choose one of the options", got.Errors[0].Text)

	after := h.session(t)
	assert.Equal(t, before.Seq, after.Seq)
	assert.False(t, after.Answered(steps.NameChooseAResponse))

	n, err := testutil.GatherAndCount(h.reg, "aos_step_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostStep_RecordsAnswerAndRedirects(t *testing.T) {
	h := newHarness(t, &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour}, journey.Features{}, nil)

	rec := h.do(http.MethodPost, "/api/steps/ChooseAResponse", `{"response":"proceedButDisagree"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/jurisdiction", rec.Header().Get("Location"))

	var got SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, steps.NameJurisdiction, got.Next)

	sess := h.session(t)
	assert.Equal(t, "proceedButDisagree", sess.Field(steps.NameChooseAResponse, "response"))
	assert.Equal(t, session.Flags{RespDefendsDivorce: "No", RespAdmitOrConsentToFact: "No"}, sess.DerivedFlags())
}

func TestPostStep_FormEncoded(t *testing.T) {
	h := newHarness(t, &petition.Petition{ReasonForDivorce: petition.ReasonSeparation5Years}, journey.Features{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/steps/ChooseAResponse", strings.NewReader("response=defend"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: idam.DefaultCookieName, Value: testToken})
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/financial-hardship", rec.Header().Get("Location"))
	assert.True(t, h.session(t).Defended())
}

func TestPostStep_ExitPointTakesNoAnswers(t *testing.T) {
	h := newHarness(t, &petition.Petition{}, journey.Features{}, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(http.MethodPost, "/api/steps/End", `{}`).Code)
}

func TestPostStep_CheckYourAnswersSubmitsOnce(t *testing.T) {
	h := newHarness(t, &petition.Petition{ReasonForDivorce: petition.ReasonDesertion}, journey.Features{}, nil)

	rec := h.do(http.MethodPost, "/api/steps/ChooseAResponse", `{"response":"defend"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(http.MethodPost, "/api/steps/CheckYourAnswers", `{"respStatementOfTruth":"Yes"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/done", rec.Header().Get("Location"))

	var got SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "case-1", got.RecordID)

	require.Len(t, h.cases.records, 1)
	assert.Equal(t, "defend", h.cases.records[0].Response)
	assert.Contains(t, h.cases.records[0].AnswersJSON, "I will defend the divorce")

	require.Len(t, h.events.events, 1)
	ev := h.events.events[0]
	assert.Equal(t, "aos.submitted.1234567890", ev.Subject())
	assert.Equal(t, "Yes", ev.Flags.RespDefendsDivorce)

	assert.NotNil(t, h.session(t).SubmittedAt)

	rec = h.do(http.MethodPost, "/api/steps/CheckYourAnswers", `{"respStatementOfTruth":"Yes"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, h.cases.records, 1)
}

func TestPostStep_CheckYourAnswersRefusesWithoutResponse(t *testing.T) {
	h := newHarness(t, &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour}, journey.Features{}, nil)

	rec := h.do(http.MethodPost, "/api/steps/CheckYourAnswers", `{"respStatementOfTruth":"Yes"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Empty(t, h.cases.records)
	assert.Empty(t, h.events.events)

	sess := h.session(t)
	assert.Nil(t, sess.SubmittedAt)
	assert.False(t, sess.Answered(steps.NameCheckYourAnswers))

	assert.Equal(t, float64(1), testutil.ToFloat64(h.comp.submissions.WithLabelValues(steps.NameCheckYourAnswers, "incomplete")))

	rec = h.do(http.MethodPost, "/api/steps/ChooseAResponse", `{"response":"proceed"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = h.do(http.MethodPost, "/api/steps/CheckYourAnswers", `{"respStatementOfTruth":"Yes"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Len(t, h.cases.records, 1)
	assert.Equal(t, "proceed", h.cases.records[0].Response)
}

// failingSessions fails every save after the first n.
type failingSessions struct {
	*storage.MemorySessionStore
	mu    sync.Mutex
	saves int
	limit int
}

func (f *failingSessions) Put(ctx context.Context, sess *session.Session) error {
	f.mu.Lock()
	f.saves++
	fail := f.saves > f.limit
	f.mu.Unlock()
	if fail {
		return errors.New("kv: no responders")
	}
	return f.MemorySessionStore.Put(ctx, sess)
}

func TestPostStep_RetryAfterFailedSaveFilesOneRecord(t *testing.T) {
	h := newHarness(t, &petition.Petition{ReasonForDivorce: petition.ReasonDesertion}, journey.Features{}, nil)
	rec := h.do(http.MethodPost, "/api/steps/ChooseAResponse", `{"response":"proceed"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	store := &failingSessions{MemorySessionStore: h.sessions, limit: 0}
	h.comp.deps.Sessions = store

	rec = h.do(http.MethodPost, "/api/steps/CheckYourAnswers", `{"respStatementOfTruth":"Yes"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, h.cases.records, 1)
	assert.Nil(t, h.session(t).SubmittedAt)

	store.limit = 2
	rec = h.do(http.MethodPost, "/api/steps/CheckYourAnswers", `{"respStatementOfTruth":"Yes"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	var got SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, h.cases.records[0].ID, got.RecordID)
	assert.Len(t, h.cases.records, 1)
	assert.NotNil(t, h.session(t).SubmittedAt)
}

func TestPostStep_SubmissionFailureKeepsSessionOpen(t *testing.T) {
	h := newHarness(t, &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour}, journey.Features{}, nil)
	rec := h.do(http.MethodPost, "/api/steps/ChooseAResponse", `{"response":"proceed"}`)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	h.cases.err = errors.New("database is locked")

	rec = h.do(http.MethodPost, "/api/steps/CheckYourAnswers", `{"respStatementOfTruth":"Yes"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, h.session(t).SubmittedAt)
	assert.Empty(t, h.events.events)
}

// brokenStep violates a journey invariant on every submission.
type brokenStep struct {
	journey.Base
}

func (brokenStep) Form() journey.Form { return journey.NewForm() }

func (brokenStep) Values(journey.Context) (map[string]string, error) {
	return nil, journey.ErrInvariant
}

func (brokenStep) Next(journey.Context) (string, error) { return "Broken", nil }

func TestPostStep_InvariantViolation(t *testing.T) {
	registry, err := journey.NewRegistry(nil, brokenStep{journey.Base{StepName: "Broken", StepPath: "/broken"}})
	require.NoError(t, err)
	h := newHarness(t, &petition.Petition{}, journey.Features{}, registry)

	rec := h.do(http.MethodPost, "/api/steps/Broken", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, h.session(t).Seq)
}

func TestGetStep_EndLogsOut(t *testing.T) {
	h := newHarness(t, &petition.Petition{}, journey.Features{}, nil)

	rec := h.do(http.MethodGet, "/api/steps/End", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, idam.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)

	assert.Equal(t, http.StatusFound, h.do(http.MethodGet, "/api/session", "").Code)
}

func TestGetSession(t *testing.T) {
	h := newHarness(t, &petition.Petition{CaseReference: "LV17D80101"}, journey.Features{}, nil)

	rec := h.do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "LV17D80101", got.Petition().CaseReference)
}

func TestComponentLifecycle(t *testing.T) {
	h := newHarness(t, &petition.Petition{}, journey.Features{}, nil)

	assert.Equal(t, "stopped", h.comp.Health().Status)
	require.NoError(t, h.comp.Start(context.Background()))
	assert.True(t, h.comp.Health().Healthy)
	assert.Error(t, h.comp.Start(context.Background()))
	require.NoError(t, h.comp.Stop(time.Second))
	require.NoError(t, h.comp.Stop(time.Second))
	assert.False(t, h.comp.Health().Healthy)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.DefaultLocale = "fr"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SessionTTL = "forever"
	assert.Error(t, cfg.Validate())
}
