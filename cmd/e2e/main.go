// Package main provides the e2e test runner CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/aos/test/e2e/config"
	"github.com/c360studio/aos/test/e2e/scenarios"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	cfg := *defaults
	var (
		outputJSON    bool
		globalTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "e2e [scenario]",
		Short: "Run aos journey e2e tests",
		Long: `Run end-to-end respondent journeys against a running aos service.

Sessions are seeded into the NATS session bucket and submissions are read
back from the events stream, so the service must run with sessions.nats_url
set and accept the e2e token as a dev token.

Examples:
  e2e                                # Run all scenarios
  e2e behaviour-defend               # Run specific scenario
  e2e --json                         # Output results as JSON
  e2e --base-url http://host:3000    # Custom service URL
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioName := "all"
			if len(args) > 0 {
				scenarioName = args[0]
			}
			return run(scenarioName, &cfg, outputJSON, globalTimeout)
		},
	}

	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", defaults.BaseURL, "Service base URL")
	cmd.Flags().StringVar(&cfg.NATSURL, "nats", defaults.NATSURL, "NATS server URL")
	cmd.Flags().StringVar(&cfg.MockFeesURL, "mock-fees", defaults.MockFeesURL, "Mock fee service URL (empty skips fee checks)")
	cmd.Flags().StringVar(&cfg.Token, "token", defaults.Token, "Auth token presented in the session cookie")
	cmd.Flags().StringVar(&cfg.UserID, "user", defaults.UserID, "User ID the token authenticates as")
	cmd.Flags().StringVar(&cfg.Locale, "lng", "", "Locale to render pages in")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	cmd.Flags().DurationVar(&cfg.StageTimeout, "timeout", defaults.StageTimeout, "Per-stage timeout")
	cmd.Flags().DurationVar(&globalTimeout, "global-timeout", 10*time.Minute, "Global timeout for all scenarios")

	cmd.AddCommand(listCmd())

	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available scenarios:")
			fmt.Println()
			for _, j := range scenarios.Journeys() {
				fmt.Printf("  %-28s %s\n", j.Name, j.Description)
			}
			fmt.Println()
			fmt.Println("Use 'e2e all' to run all scenarios.")
		},
	}
}

func run(scenarioName string, cfg *config.Config, outputJSON bool, globalTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), globalTimeout)
	defer cancel()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	journeys, err := selectJourneys(scenarioName)
	if err != nil {
		return err
	}

	// Journeys share one respondent, so they run one at a time.
	reports := make([]journeyReport, 0, len(journeys))
	for _, j := range journeys {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "run interrupted")
			break
		}
		r := newReport(j, runScenario(ctx, scenarios.NewJourneyScenario(j, cfg)))
		reports = append(reports, r)
		if !outputJSON {
			printReport(os.Stdout, r)
		}
	}

	if outputJSON {
		if err := writeJSON(os.Stdout, reports); err != nil {
			return err
		}
	} else {
		printSummary(os.Stdout, reports)
	}

	for _, r := range reports {
		if !r.Passed {
			return fmt.Errorf("some journeys failed")
		}
	}
	return nil
}

// selectJourneys returns every journey for "all", else the named one.
func selectJourneys(name string) ([]scenarios.Journey, error) {
	all := scenarios.Journeys()
	if name == "all" {
		return all, nil
	}
	for _, j := range all {
		if j.Name == name {
			return []scenarios.Journey{j}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario: %s", name)
}

// runScenario sets up, executes and tears down one scenario. Setup and
// execution errors become failed results.
func runScenario(ctx context.Context, s scenarios.Scenario) *scenarios.Result {
	if err := s.Setup(ctx); err != nil {
		return failedResult(s.Name(), fmt.Sprintf("setup failed: %v", err))
	}

	result, err := s.Execute(ctx)
	if err != nil {
		result = failedResult(s.Name(), fmt.Sprintf("execution error: %v", err))
	}
	if err := s.Teardown(ctx); err != nil {
		result.AddWarning(fmt.Sprintf("teardown failed: %v", err))
	}
	return result
}

func failedResult(name, msg string) *scenarios.Result {
	result := scenarios.NewResult(name)
	result.Error = msg
	result.AddError(msg)
	result.Complete()
	return result
}

// journeyReport is what a run says about one journey.
type journeyReport struct {
	Journey     string              `json:"journey"`
	Response    string              `json:"response"`
	Passed      bool                `json:"passed"`
	DurationMS  int64               `json:"duration_ms"`
	CaseID      string              `json:"case_id,omitempty"`
	RecordID    string              `json:"record_id,omitempty"`
	Route       []string            `json:"route"`
	Expected    []string            `json:"expected"`
	FailedStage string              `json:"failed_stage,omitempty"`
	Mismatch    *scenarios.Mismatch `json:"mismatch,omitempty"`
	Error       string              `json:"error,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
}

func newReport(j scenarios.Journey, result *scenarios.Result) journeyReport {
	r := journeyReport{
		Journey:    j.Name,
		Response:   j.Response,
		Passed:     result.Success,
		DurationMS: result.Duration.Milliseconds(),
		Route:      result.Route(),
		Error:      result.Error,
		Warnings:   result.Warnings,
	}
	for _, p := range j.Pages {
		r.Expected = append(r.Expected, p.Step)
	}
	r.CaseID, _ = result.GetDetailString(scenarios.DetailCaseID)
	r.RecordID, _ = result.GetDetailString(scenarios.DetailRecordID)
	if st, ok := result.FailedStage(); ok {
		r.FailedStage = st.Name
		r.Error = st.Error
	}
	if m, ok := result.Mismatch(); ok {
		r.Mismatch = &m
	}
	return r
}

// printReport writes one journey: its outcome, the route walked and, when it
// failed, where.
func printReport(w io.Writer, r journeyReport) {
	status := "PASS"
	if !r.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (%s) %dms", status, r.Journey, r.Response, r.DurationMS)
	if r.CaseID != "" {
		fmt.Fprintf(w, " case %s", r.CaseID)
	}
	if r.RecordID != "" {
		fmt.Fprintf(w, " record %s", r.RecordID)
	}
	fmt.Fprintln(w)

	if len(r.Route) > 0 {
		fmt.Fprintf(w, "     %s\n", strings.Join(r.Route, " > "))
	}
	switch {
	case r.Mismatch != nil:
		fmt.Fprintf(w, "     %s went to %s, expected %s\n", r.Mismatch.Step, r.Mismatch.Got, r.Mismatch.Want)
	case r.FailedStage != "":
		fmt.Fprintf(w, "     %s: %s\n", r.FailedStage, r.Error)
	case !r.Passed:
		fmt.Fprintf(w, "     %s\n", r.Error)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "     warning: %s\n", warning)
	}
}

func printSummary(w io.Writer, reports []journeyReport) {
	passed := 0
	for _, r := range reports {
		if r.Passed {
			passed++
		}
	}
	fmt.Fprintf(w, "\n%d journeys: %d passed, %d failed\n", len(reports), passed, len(reports)-passed)
}

func writeJSON(w io.Writer, reports []journeyReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Timestamp time.Time       `json:"timestamp"`
		Journeys  []journeyReport `json:"journeys"`
	}{Timestamp: time.Now(), Journeys: reports})
}
