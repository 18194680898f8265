// Package main provides the CLI entrypoint for signdrill.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/signdrill/internal/capture"
	"github.com/verte-zerg/signdrill/internal/catalog"
	"github.com/verte-zerg/signdrill/internal/coach"
	"github.com/verte-zerg/signdrill/internal/config"
	"github.com/verte-zerg/signdrill/internal/detector"
	"github.com/verte-zerg/signdrill/internal/observe"
	"github.com/verte-zerg/signdrill/internal/pipeline"
	"github.com/verte-zerg/signdrill/internal/session"
	"github.com/verte-zerg/signdrill/internal/store"
	"github.com/verte-zerg/signdrill/internal/tui"
	"github.com/verte-zerg/signdrill/internal/verifier"
)

const (
	defaultUser        = "local"
	defaultModule      = 1
	defaultDetectorURL = "http://localhost:8000"
	defaultCaptureCmd  = "fswebcam -q --no-banner -"
	defaultTimeoutSec  = 10
	defaultLogLevel    = "info"
)

var (
	flagUser        string
	flagDetectorURL string
	flagVerifier    string
	flagVerifierURL string
	flagCaptureCmd  string
	flagTimeoutSec  int
	flagVisionModel string
	flagCoachModel  string
	flagLogLevel    string

	practiceModule int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "signdrill",
		Short:         "ASL fingerspelling trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().IntVar(&practiceModule, "module", defaultModule, "module id to practice (see: signdrill modules)")
	addUserFlag(rootCmd)
	addPipelineFlags(rootCmd)
	addLogLevelFlag(rootCmd)
	rootCmd.Flags().StringVar(&flagCaptureCmd, "capture-cmd", defaultCaptureCmd, "command writing one JPEG to stdout, or file:<path>")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newModulesCmd())
	rootCmd.AddCommand(newInsightsCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagUser, "user", defaultUser, "user id attempts are recorded under")
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDetectorURL, "detector-url", defaultDetectorURL, "base URL of the hand-sign detection service")
	cmd.Flags().StringVar(&flagVerifier, "verifier", config.VerifierNone, "AI verification backend: endpoint, openai or none")
	cmd.Flags().StringVar(&flagVerifierURL, "verifier-url", "", "verification endpoint URL (verifier=endpoint)")
	cmd.Flags().IntVar(&flagTimeoutSec, "timeout", defaultTimeoutSec, "per-call timeout in seconds")
	cmd.Flags().StringVar(&flagVisionModel, "vision-model", verifier.DefaultVisionModel, "vision model (verifier=openai)")
}

func addLogLevelFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagLogLevel, "log-level", defaultLogLevel, "log level: debug, info, warn or error")
}

// loadConfig reads the config file and lets it fill every flag the user did
// not set explicitly.
func loadConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "user", &flagUser, fileCfg.Practice.UserID)
	applyStringConfig(cmd, "detector-url", &flagDetectorURL, fileCfg.Practice.DetectorURL)
	applyStringConfig(cmd, "verifier", &flagVerifier, fileCfg.Practice.Verifier)
	applyStringConfig(cmd, "verifier-url", &flagVerifierURL, fileCfg.Practice.VerifierURL)
	applyStringConfig(cmd, "capture-cmd", &flagCaptureCmd, fileCfg.Practice.CaptureCmd)
	applyIntConfig(cmd, "timeout", &flagTimeoutSec, fileCfg.Practice.TimeoutSeconds)
	applyStringConfig(cmd, "vision-model", &flagVisionModel, fileCfg.OpenAI.VisionModel)
	applyStringConfig(cmd, "coach-model", &flagCoachModel, fileCfg.OpenAI.Model)
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyBoolConfig(cmd, "metrics", &serveMetrics, fileCfg.Server.Metrics)
	return fileCfg, nil
}

func validateFlags() error {
	if strings.TrimSpace(flagUser) == "" {
		return fmt.Errorf("--user must not be empty")
	}
	if flagTimeoutSec <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if err := config.ValidateVerifier(flagVerifier); err != nil {
		return fmt.Errorf("--verifier: %w", err)
	}
	if flagVerifier == config.VerifierEndpoint && flagVerifierURL == "" {
		return fmt.Errorf("--verifier-url is required with --verifier=endpoint")
	}
	if _, err := parseLogLevel(flagLogLevel); err != nil {
		return err
	}
	return nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateFlags(); err != nil {
		return err
	}
	mod, err := catalog.Find(practiceModule)
	if err != nil {
		return fmt.Errorf("--module: %w", err)
	}
	capturer, err := capture.FromConfig(flagCaptureCmd)
	if err != nil {
		return fmt.Errorf("--capture-cmd: %w", err)
	}

	logger, closeLog, err := newFileLogger(config.DefaultLogPath(), flagLogLevel)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	done, err := st.CompletedModules(context.Background(), flagUser)
	if err != nil {
		return fmt.Errorf("failed to load module completion: %w", err)
	}
	mod.Completed = done[mod.ID]

	p, err := buildPipeline(fileCfg, st, logger, observe.DefaultMetrics())
	if err != nil {
		return err
	}
	machine, err := session.New(flagUser, mod, st)
	if err != nil {
		return err
	}
	logger.Info("practice started", "user", flagUser, "module_id", mod.ID, "session_id", machine.Context().SessionID, "verifier", flagVerifier)

	m := tui.NewModel(machine, p, capturer, logger, time.Duration(flagTimeoutSec)*time.Second)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if m.Completed() {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s completed!\n", mod.Title); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// buildPipeline wires the detector, the configured verifier, and the store.
func buildPipeline(fileCfg config.FileConfig, sink pipeline.AttemptSink, logger *slog.Logger, metrics *observe.Metrics) (*pipeline.Pipeline, error) {
	timeout := time.Duration(flagTimeoutSec) * time.Second
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithCallTimeout(timeout),
	}
	switch flagVerifier {
	case config.VerifierEndpoint:
		opts = append(opts, pipeline.WithVerifier(verifier.NewEndpoint(flagVerifierURL, fileCfg.OpenAI.APIKey(), timeout)))
	case config.VerifierOpenAI:
		vOpts := []verifier.VisionOption{verifier.WithTimeout(timeout)}
		if fileCfg.OpenAI.BaseURL != nil && *fileCfg.OpenAI.BaseURL != "" {
			vOpts = append(vOpts, verifier.WithBaseURL(*fileCfg.OpenAI.BaseURL))
		}
		v, err := verifier.NewVision(fileCfg.OpenAI.APIKey(), flagVisionModel, vOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision verifier: %w", err)
		}
		opts = append(opts, pipeline.WithVerifier(v))
	}
	return pipeline.New(detector.New(flagDetectorURL, timeout), sink, opts...), nil
}

func newCoach(fileCfg config.FileConfig, logger *slog.Logger) *coach.Coach {
	opts := []coach.Option{
		coach.WithLogger(logger),
		coach.WithTimeout(time.Duration(flagTimeoutSec) * time.Second),
	}
	if fileCfg.OpenAI.BaseURL != nil && *fileCfg.OpenAI.BaseURL != "" {
		opts = append(opts, coach.WithBaseURL(*fileCfg.OpenAI.BaseURL))
	}
	return coach.New(fileCfg.OpenAI.APIKey(), flagCoachModel, opts...)
}

func parseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q (use debug, info, warn or error)", s)
	}
	return lvl, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := parseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// newFileLogger logs to path. The TUI owns the terminal, so nothing may be
// written to stderr while it runs.
func newFileLogger(path, level string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	closeFn := func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}
	return newLogger(f, level), closeFn, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# signdrill configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# user-id = %q              # User id attempts are recorded under
# detector-url = %q  # Hand-sign detection service
# verifier = %q              # AI verification: endpoint, openai or none
# verifier-url = ""             # Verification endpoint URL (verifier = "endpoint")
# capture-cmd = %q  # Command writing one JPEG to stdout, or "file:<path>"
# timeout-seconds = %d          # Per-call timeout

[openai]
# model = %q                 # Model for practice recommendations
# vision-model = %q         # Model for verifier = "openai"
# api-key-env = %q  # Environment variable holding the API key
# base-url = ""                 # Alternate OpenAI-compatible endpoint

[server]
# addr = %q                # Listen address for signdrill serve
# metrics = true                # Expose Prometheus metrics at /metrics
`,
		defaultUser,
		defaultDetectorURL,
		config.VerifierNone,
		defaultCaptureCmd,
		defaultTimeoutSec,
		coach.DefaultModel,
		verifier.DefaultVisionModel,
		config.DefaultAPIKeyEnv,
		defaultServeAddr,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
