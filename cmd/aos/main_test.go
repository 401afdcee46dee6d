package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/aos/config"
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/petition"
	"github.com/c360studio/aos/steps"
)

const fixture = "testdata/behaviour-defended.json"

func TestBuildSession(t *testing.T) {
	reg, err := steps.NewRegistry(nil)
	require.NoError(t, err)
	f, err := readSeedFile(fixture)
	require.NoError(t, err)

	sess, err := buildSession(reg, "user-1", f, journey.Features{})
	require.NoError(t, err)

	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "1234567890123456", sess.CaseID)
	assert.Equal(t, "Nottingham", sess.DivorceCenter.CourtCity)
	assert.True(t, sess.Answered(steps.NameReviewApplication))
	assert.Equal(t, steps.ResponseDefend, sess.Field(steps.NameChooseAResponse, "response"))

	flags := sess.DerivedFlags()
	assert.Equal(t, petition.Yes, flags.RespDefendsDivorce)
	assert.Equal(t, petition.No, flags.RespAdmitOrConsentToFact)
}

func TestBuildSessionRejects(t *testing.T) {
	reg, err := steps.NewRegistry(nil)
	require.NoError(t, err)

	base := func(answers map[string]map[string]string) *seedFile {
		return &seedFile{
			OriginalPetition: &petition.Petition{ReasonForDivorce: petition.ReasonBehaviour},
			Steps:            answers,
		}
	}

	_, err = buildSession(reg, "u", base(map[string]map[string]string{"Nope": {}}), journey.Features{})
	assert.True(t, errors.Is(err, journey.ErrUnknownStep))

	_, err = buildSession(reg, "u", base(map[string]map[string]string{
		steps.NameChooseAResponse: {"response": "maybe"},
	}), journey.Features{})
	assert.ErrorContains(t, err, "ChooseAResponse")

	_, err = buildSession(reg, "u", base(map[string]map[string]string{
		steps.NameEnd: {},
	}), journey.Features{})
	assert.ErrorContains(t, err, "takes no answers")
}

func TestReadSeedFile(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "nope.json")
	_, err := readSeedFile(missing)
	assert.Error(t, err)

	noPetition := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(noPetition, []byte(`{"caseId":"1"}`), 0644))
	_, err = readSeedFile(noPetition)
	assert.ErrorContains(t, err, "originalPetition")
}

func TestResolveOffline(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"resolve", "--offline", "--text", "--step", steps.NameDone, fixture})

	require.NoError(t, cmd.Execute())

	var res resolution
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, steps.NameDone, res.Step)
	assert.Equal(t, "/done", res.Path)
	assert.Contains(t, res.Keys, "defendedHeading")
	assert.NotContains(t, res.Keys, "notDefendedHeading")
	assert.Equal(t, "Nottingham", res.Values["divorceCenterCourtCity"])
	assert.Equal(t, "0", res.Values["defendedPetitionFee"])
	assert.NotEmpty(t, res.Text["title"])
}

func TestResolveRoutesAnsweredStep(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"resolve", "--offline", "--step", steps.NameChooseAResponse, fixture})

	require.NoError(t, cmd.Execute())

	var res resolution
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, steps.NameConfirmDefence, res.Next)
	assert.Contains(t, res.Keys, "behaviourProceedButDisagreeHint")
}

func TestResolveUnknownStep(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resolve", "--offline", "--step", "Nope", fixture})

	err := cmd.Execute()
	assert.True(t, errors.Is(err, journey.ErrUnknownStep))
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "aos version "+Version)
}

func newFeeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fees.Fee{FeeCode: filepath.Base(r.URL.Path), Version: 1, Amount: 95})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, feesURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Fees.URL = feesURL
	cfg.Fees.MaxAttempts = 1
	cfg.IDAM.DevTokens = map[string]string{"dev-token": "user-1"}
	cfg.Cases.Path = filepath.Join(t.TempDir(), "cases.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestAppServesJourney(t *testing.T) {
	cfg := testConfig(t, newFeeServer(t).URL)

	app := NewApp(cfg, nil)
	require.NoError(t, app.Start(t.Context()))
	defer app.Shutdown(5 * time.Second)

	f, err := readSeedFile(fixture)
	require.NoError(t, err)
	_, err = app.Seed(t.Context(), "user-1", f)
	require.NoError(t, err)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/steps/ReviewApplication", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: cfg.IDAM.CookieName, Value: "dev-token"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var render struct {
		Step   string            `json:"step"`
		Values map[string]string `json:"values"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&render))
	assert.Equal(t, steps.NameReviewApplication, render.Step)
	assert.Equal(t, "95", render.Values["petitionIssueFee"])

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
	var body bytes.Buffer
	_, err = body.ReadFrom(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "aos_fee_lookups_total")
	assert.Contains(t, body.String(), "aos_step_render_duration_seconds")

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestAppRejectsUnauthenticated(t *testing.T) {
	cfg := testConfig(t, newFeeServer(t).URL)

	app := NewApp(cfg, nil)
	require.NoError(t, app.Start(t.Context()))
	defer app.Shutdown(5 * time.Second)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/api/steps/Respond")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), cfg.IDAM.LoginURL)
}
