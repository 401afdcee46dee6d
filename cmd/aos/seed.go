package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/aos/config"
	"github.com/c360studio/aos/content"
	"github.com/c360studio/aos/fees"
	"github.com/c360studio/aos/journey"
	"github.com/c360studio/aos/steps"
)

func seedCmd(g *globalFlags) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "seed <session.json>",
		Short: "Store a respondent session in the NATS session bucket",
		Long: `Seed loads a session document (originalPetition, divorceCenter and
optional step answers) and stores it as the session of --user.

The in-memory session store does not outlive the process; use
"serve --seed user=path" for local runs without NATS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(g.logLevel)
			cfg, err := config.NewLoader(logger).Load(g.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Sessions.NATSURL == "" {
				return errors.New("seed requires sessions.nats_url; use serve --seed for the in-memory store")
			}
			f, err := readSeedFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app := NewApp(cfg, logger)
			defer app.Shutdown(cfg.Server.ShutdownTimeout)
			if err := app.startSessions(ctx); err != nil {
				return err
			}
			registry, err := steps.NewRegistry(cfg.Paths)
			if err != nil {
				return err
			}
			app.registry = registry

			sess, err := app.Seed(ctx, userID, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded session %s for user %s\n", sess.ID, userID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "IDAM user ID owning the session")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// resolution is what resolve prints for a step.
type resolution struct {
	Step   string            `json:"step"`
	Path   string            `json:"path"`
	Keys   []string          `json:"keys"`
	Values map[string]string `json:"values,omitempty"`
	Text   map[string]string `json:"text,omitempty"`
	Next   string            `json:"next,omitempty"`
}

func resolveCmd(g *globalFlags) *cobra.Command {
	var (
		stepName string
		locale   string
		offline  bool
		withText bool
		welsh    bool
		solicit  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <session.json>",
		Short: "Print the content a step selects for a session",
		Long: `Resolve replays a session document and prints the content keys and
values the named step would render, plus the next step when the step is a
question the session has answered.

With --offline fees are not fetched and every fee amount is 0.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(g.logLevel)
			features := journey.Features{SolicitorDetails: solicit, Welsh: welsh}

			var lookup fees.Lookup = fees.LookupFunc(func(_ context.Context, code string) (fees.Fee, error) {
				return fees.Fee{FeeCode: code}, nil
			})
			var paths map[string]string
			if !offline {
				cfg, err := config.NewLoader(logger).Load(g.configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				lookup = fees.NewClient(cfg.Fees.URL,
					fees.WithRetryConfig(cfg.RetryConfig()),
					fees.WithLogger(logger))
				paths = cfg.Paths
				features = cfg.Features.Journey()
			}

			registry, err := steps.NewRegistry(paths)
			if err != nil {
				return err
			}
			step, err := registry.Step(stepName)
			if err != nil {
				return err
			}
			f, err := readSeedFile(args[0])
			if err != nil {
				return err
			}
			sess, err := buildSession(registry, "resolve", f, features)
			if err != nil {
				return err
			}

			annotations, err := fees.Annotate(cmd.Context(), lookup, step.FeeCodes())
			if err != nil {
				return fmt.Errorf("annotate fees: %w", err)
			}

			jc := journey.Context{Session: sess, Features: features, Fees: annotations}
			if a, ok := sess.Steps[step.Name()]; ok {
				jc.Fields = a.Fields
			}
			sel := step.Content(jc)

			out := resolution{
				Step:   step.Name(),
				Path:   registry.Path(step.Name()),
				Keys:   sel.Keys,
				Values: sel.Values,
			}
			if q, ok := step.(journey.Question); ok && jc.Fields != nil {
				next, err := q.Next(jc)
				if err != nil {
					return fmt.Errorf("route %s: %w", step.Name(), err)
				}
				out.Next = next
			}
			if withText {
				catalog, err := content.LoadEmbedded(logger)
				if err != nil {
					return err
				}
				out.Text = catalog.Render(locale, step.Name(), sel.Keys, sel.Values)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&stepName, "step", "", "Step name, e.g. ReviewApplication")
	cmd.Flags().StringVar(&locale, "lng", content.LocaleEnglish, "Locale for --text (en or cy)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip config and the fee service")
	cmd.Flags().BoolVar(&withText, "text", false, "Include the rendered catalog text")
	cmd.Flags().BoolVar(&welsh, "welsh", false, "Enable the Welsh feature (with --offline)")
	cmd.Flags().BoolVar(&solicit, "solicitor-details", false, "Enable the solicitor details feature (with --offline)")
	_ = cmd.MarkFlagRequired("step")
	return cmd
}
