package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/aos/fees"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
}

func TestLoadFixtures_Sequential(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "amend-fee.1.json", `{"status":503}`)
	writeFixture(t, dir, "amend-fee.2.json", `{"feeCode":"FEE0233","amount":90}`)
	writeFixture(t, dir, "amend-fee.json", `{"feeCode":"FEE0233","amount":95}`)
	writeFixture(t, dir, "defended-petition-fee.json", `{"feeCode":"FEE0243","amount":245}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	seq := fixtures["amend-fee"]
	if len(seq) != 3 {
		t.Fatalf("amend-fee: expected 3 fixtures, got %d", len(seq))
	}
	if seq[0].Status != http.StatusServiceUnavailable {
		t.Errorf("fixture[0] should fail with 503, got %d", seq[0].Status)
	}
	if seq[1].Amount != 90 || seq[2].Amount != 95 {
		t.Errorf("unexpected amounts %v, %v", seq[1].Amount, seq[2].Amount)
	}
	if len(fixtures["defended-petition-fee"]) != 1 {
		t.Errorf("defended-petition-fee: expected 1 fixture, got %d", len(fixtures["defended-petition-fee"]))
	}
}

func TestLoadFixtures_Errors(t *testing.T) {
	if _, err := loadFixtures(t.TempDir()); err == nil {
		t.Error("expected error for empty dir")
	}

	dir := t.TempDir()
	writeFixture(t, dir, "amend-fee.json", `{not json`)
	if _, err := loadFixtures(dir); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestHandleFee_Defaults(t *testing.T) {
	srv := httptest.NewServer(newServer(nil).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/fees-and-payments/version/1/petition-issue-fee")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var f fees.Fee
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.FeeCode != "FEE0002" || f.Amount != 550 {
		t.Errorf("unexpected fee %+v", f)
	}
}

func TestHandleFee_UnknownCode(t *testing.T) {
	srv := httptest.NewServer(newServer(nil).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/fees-and-payments/version/1/no-such-fee")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestClientRetriesThroughFailures(t *testing.T) {
	s := newServer(map[string][]fixture{
		"amend-fee": {
			{Status: http.StatusServiceUnavailable},
			{Status: http.StatusBadGateway},
			{FeeCode: "FEE0233", Version: 2, Amount: 95},
		},
	})
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	retry := fees.DefaultRetryConfig()
	retry.MaxAttempts = 3
	retry.BackoffBase = time.Millisecond
	client := fees.NewClient(srv.URL, fees.WithRetryConfig(retry))

	f, err := client.Get(context.Background(), "amend-fee")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.Amount != 95 || f.Version != 2 {
		t.Errorf("unexpected fee %+v", f)
	}
	if got := s.getCodeCounter("amend-fee").Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestClientFatalOnNotFound(t *testing.T) {
	s := newServer(nil)
	srv := httptest.NewServer(s.routes())
	defer srv.Close()

	_, err := fees.NewClient(srv.URL).Get(context.Background(), "no-such-fee")
	if !fees.IsFatal(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if got := s.calls.Load(); got != 1 {
		t.Errorf("expected a single call, got %d", got)
	}
}

func TestStatsAndRequests(t *testing.T) {
	srv := httptest.NewServer(newServer(nil).routes())
	defer srv.Close()

	for _, code := range []string{"amend-fee", "amend-fee", "defended-petition-fee"} {
		resp, err := http.Get(srv.URL + "/fees-and-payments/version/1/" + code)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()
	var stats struct {
		TotalCalls  int64            `json:"total_calls"`
		CallsByCode map[string]int64 `json:"calls_by_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalCalls != 3 || stats.CallsByCode["amend-fee"] != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	reqs, err := http.Get(srv.URL + "/requests?code=amend-fee")
	if err != nil {
		t.Fatalf("requests: %v", err)
	}
	defer reqs.Body.Close()
	var captured struct {
		Requests []capturedRequest `json:"requests"`
	}
	if err := json.NewDecoder(reqs.Body).Decode(&captured); err != nil {
		t.Fatalf("decode requests: %v", err)
	}
	if len(captured.Requests) != 2 || captured.Requests[1].CallIndex != 2 {
		t.Errorf("unexpected requests %+v", captured.Requests)
	}
}
