// Package main provides the aos binary entry point.
// It serves the respondent journey of an online divorce: the respondent
// reviews the petition, chooses a response and submits it to the court.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/c360studio/aos/config"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "aos"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Respondent journey service for online divorce",
		Long: `aos serves the acknowledgement of service journey: the respondent to a
divorce petition reviews the application, says how they want to respond and
submits the response to the court.

Sessions live in NATS JetStream KV (or memory for local runs), submitted
responses in SQLite, and fees come from the fee service.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML); default searches for "+config.ProjectConfigFile)
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(g),
		seedCmd(g),
		resolveCmd(g),
		configCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func serveCmd(g *globalFlags) *cobra.Command {
	var seeds []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journey API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(g.logLevel)
			cfg, err := config.NewLoader(logger).Load(g.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg, seeds, logger)
		},
	}

	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "Seed a session at startup, as user=path/to/session.json (repeatable)")
	return cmd
}

func configCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(newLogger(g.logLevel)).Load(g.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, seeds []string, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	printBanner()

	app := NewApp(cfg, logger)
	if err := app.Start(ctx); err != nil {
		app.Shutdown(cfg.Server.ShutdownTimeout)
		return err
	}

	for _, s := range seeds {
		userID, path, ok := strings.Cut(s, "=")
		if !ok || userID == "" || path == "" {
			app.Shutdown(cfg.Server.ShutdownTimeout)
			return fmt.Errorf("invalid --seed %q: want user=path", s)
		}
		f, err := readSeedFile(path)
		if err != nil {
			app.Shutdown(cfg.Server.ShutdownTimeout)
			return err
		}
		sess, err := app.Seed(ctx, userID, f)
		if err != nil {
			app.Shutdown(cfg.Server.ShutdownTimeout)
			return err
		}
		logger.Info("Seeded session", "user_id", userID, "session_id", sess.ID)
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Serve()
	}()

	slog.Info("aos ready", "version", Version, "addr", cfg.Server.Addr, "api_prefix", cfg.Server.APIPrefix)

	var serveErr error
	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case serveErr = <-errCh:
	}

	app.Shutdown(cfg.Server.ShutdownTimeout)
	slog.Info("aos shutdown complete")
	return serveErr
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║             aos v" + Version + "                        ║")
	fmt.Println("║      Respondent Journey Service               ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}
