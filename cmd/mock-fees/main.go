// Package main implements a mock fee service for local runs and e2e tests.
// It answers GET /fees-and-payments/version/1/{code} with a fee document,
// either from a built-in table or from JSON fixture files named by fee code.
//
// Usage:
//
//	mock-fees -fixtures /path/to/fixtures -port 4411
//
// A fixture file "amend-fee.json" holds the fee returned for amend-fee:
//
//	{"feeCode":"FEE0233","version":1,"amount":95,"description":"Amend"}
//
// Sequential fixtures: numbered files ("amend-fee.1.json", "amend-fee.2.json")
// are served in order before the base file, which then repeats. A fixture
// with a "status" field is served as an error with that HTTP status, so a
// sequence can fail a few times before succeeding to exercise retries.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// fixture is one canned answer for a fee code.
type fixture struct {
	FeeCode     string  `json:"feeCode"`
	Version     int     `json:"version"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`

	// Status, when set, turns the fixture into an error response.
	Status int `json:"status,omitempty"`
}

// defaultFixtures are served for codes without fixture files.
var defaultFixtures = map[string]fixture{
	"petition-issue-fee":              {FeeCode: "FEE0002", Version: 4, Amount: 550, Description: "Filing an application for a divorce, nullity or civil partnership dissolution"},
	"general-application-fee":         {FeeCode: "FEE0228", Version: 1, Amount: 50, Description: "Application (without notice)"},
	"application-financial-order-fee": {FeeCode: "FEE0229", Version: 1, Amount: 255, Description: "Application for a financial order"},
	"amend-fee":                       {FeeCode: "FEE0233", Version: 1, Amount: 95, Description: "Amendment of application"},
	"defended-petition-fee":           {FeeCode: "FEE0243", Version: 1, Amount: 245, Description: "Answer to a petition"},
	"DefendDivorcePayService":         {FeeCode: "FEE0243", Version: 1, Amount: 245, Description: "Defending the divorce"},
}

// capturedRequest records a lookup for test verification.
type capturedRequest struct {
	Code      string `json:"code"`
	CallIndex int    `json:"call_index"` // 1-indexed per-code call number
	Status    int    `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type server struct {
	fixtures map[string][]fixture // fee code → ordered fixtures
	calls    atomic.Int64

	codeCalls   map[string]*atomic.Int64
	codeCallsMu sync.Mutex

	requests   []capturedRequest
	requestsMu sync.Mutex
}

func newServer(fixtures map[string][]fixture) *server {
	merged := make(map[string][]fixture, len(defaultFixtures)+len(fixtures))
	for code, f := range defaultFixtures {
		merged[code] = []fixture{f}
	}
	for code, seq := range fixtures {
		merged[code] = seq
	}
	return &server{
		fixtures:  merged,
		codeCalls: make(map[string]*atomic.Int64),
	}
}

// getCodeCounter returns the call counter for a code, creating it lazily.
func (s *server) getCodeCounter(code string) *atomic.Int64 {
	s.codeCallsMu.Lock()
	defer s.codeCallsMu.Unlock()
	if c, ok := s.codeCalls[code]; ok {
		return c
	}
	c := &atomic.Int64{}
	s.codeCalls[code] = c
	return c
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fee fixture files (optional)")
	port := flag.Int("port", 4411, "port to listen on")
	flag.Parse()

	if envDir := os.Getenv("MOCK_FEES_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}

	var fixtures map[string][]fixture
	if *fixtureDir != "" {
		var err error
		fixtures, err = loadFixtures(*fixtureDir)
		if err != nil {
			log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
		}
		log.Printf("Loaded %d fee code(s) from %s", len(fixtures), *fixtureDir)
	}

	s := newServer(fixtures)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock fee service listening on %s", addr)
	srv := &http.Server{Addr: addr, Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /fees-and-payments/version/1/{code}", s.handleFee)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /requests", s.handleRequests)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleFee(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	callNum := s.calls.Add(1)

	seq, ok := s.fixtures[code]
	if !ok {
		log.Printf("[call %d] no fixture for code=%q", callNum, code)
		s.capture(code, 0, http.StatusNotFound)
		http.Error(w, fmt.Sprintf("no fee for code %q", code), http.StatusNotFound)
		return
	}

	callIndex := int(s.getCodeCounter(code).Add(1) - 1)
	f := seq[len(seq)-1]
	if callIndex < len(seq) {
		f = seq[callIndex]
	}

	if f.Status != 0 && f.Status != http.StatusOK {
		log.Printf("[call %d] code=%s call_index=%d/%d status=%d", callNum, code, callIndex+1, len(seq), f.Status)
		s.capture(code, callIndex+1, f.Status)
		http.Error(w, http.StatusText(f.Status), f.Status)
		return
	}

	log.Printf("[call %d] code=%s call_index=%d/%d amount=%v", callNum, code, callIndex+1, len(seq), f.Amount)
	s.capture(code, callIndex+1, http.StatusOK)
	f.Status = 0
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(f)
}

func (s *server) capture(code string, callIndex, status int) {
	s.requestsMu.Lock()
	defer s.requestsMu.Unlock()
	s.requests = append(s.requests, capturedRequest{
		Code:      code,
		CallIndex: callIndex,
		Status:    status,
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.codeCallsMu.Lock()
	callsByCode := make(map[string]int64, len(s.codeCalls))
	for code, counter := range s.codeCalls {
		callsByCode[code] = counter.Load()
	}
	s.codeCallsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":   s.calls.Load(),
		"calls_by_code": callsByCode,
	})
}

// handleRequests returns captured lookups, optionally filtered by ?code=.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	codeFilter := r.URL.Query().Get("code")

	s.requestsMu.Lock()
	result := make([]capturedRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if codeFilter == "" || req.Code == codeFilter {
			result = append(result, req)
		}
	}
	s.requestsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"requests": result})
}

// numberedFileRe matches files like "amend-fee.1.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads JSON files from dir and returns code → fixture sequence:
// numbered files in numeric order, then the base file.
func loadFixtures(dir string) (map[string][]fixture, error) {
	baseFiles := make(map[string]fixture)
	numberedFiles := make(map[string]map[int]fixture)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var f fixture
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("invalid fixture %s: %w", path, err)
		}

		if matches := numberedFileRe.FindStringSubmatch(info.Name()); matches != nil {
			code := matches[1]
			index, _ := strconv.Atoi(matches[2])
			if numberedFiles[code] == nil {
				numberedFiles[code] = make(map[int]fixture)
			}
			numberedFiles[code][index] = f
			return nil
		}

		baseFiles[strings.TrimSuffix(info.Name(), ".json")] = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]fixture)
	allCodes := make(map[string]bool)
	for c := range baseFiles {
		allCodes[c] = true
	}
	for c := range numberedFiles {
		allCodes[c] = true
	}

	for code := range allCodes {
		var seq []fixture
		if numbered, ok := numberedFiles[code]; ok {
			indices := make([]int, 0, len(numbered))
			for idx := range numbered {
				indices = append(indices, idx)
			}
			sort.Ints(indices)
			for _, idx := range indices {
				seq = append(seq, numbered[idx])
			}
		}
		if base, ok := baseFiles[code]; ok {
			seq = append(seq, base)
		}
		fixtures[code] = seq
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
