package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/verte-zerg/signdrill/internal/catalog"
	"github.com/verte-zerg/signdrill/internal/coach"
	"github.com/verte-zerg/signdrill/internal/config"
	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/stats"
	"github.com/verte-zerg/signdrill/internal/statsui"
	"github.com/verte-zerg/signdrill/internal/store"
)

const (
	defaultTrendWindow = 5
	defaultWeakTop     = 5
)

var (
	insightsTUI     bool
	insightsNoCoach bool
	insightsWindow  int
	insightsTop     int
)

func newInsightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show practice insights",
		Args:  cobra.NoArgs,
		RunE:  runInsightsCmd,
	}
	addUserFlag(cmd)
	addLogLevelFlag(cmd)
	cmd.Flags().BoolVar(&insightsTUI, "tui", false, "browse insights interactively")
	cmd.Flags().BoolVar(&insightsNoCoach, "no-coach", false, "skip the AI recommendation")
	cmd.Flags().IntVar(&insightsWindow, "trend-window", defaultTrendWindow, "moving average window for the trend")
	cmd.Flags().IntVar(&insightsTop, "weak-top", defaultWeakTop, "number of weak letters to list")
	cmd.Flags().StringVar(&flagCoachModel, "coach-model", coach.DefaultModel, "model for recommendations")
	cmd.Flags().IntVar(&flagTimeoutSec, "timeout", defaultTimeoutSec, "recommendation timeout in seconds")
	return cmd
}

func runInsightsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if insightsWindow < 1 {
		return fmt.Errorf("--trend-window must be >= 1")
	}
	if insightsTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if _, err := parseLogLevel(flagLogLevel); err != nil {
		return err
	}
	logger := newLogger(os.Stderr, flagLogLevel)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	var (
		attempts []model.Attempt
		done     map[int]bool
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		attempts, err = st.ListAttempts(ctx, flagUser)
		return err
	})
	g.Go(func() error {
		var err error
		done, err = st.CompletedModules(ctx, flagUser)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load insights: %w", err)
	}

	if len(attempts) == 0 && !insightsTUI {
		logErrln("No attempts recorded yet. Start practicing with: signdrill --module 1")
	}

	tip := ""
	if !insightsNoCoach {
		coachCtx, cancel := context.WithTimeout(context.Background(), time.Duration(flagTimeoutSec)*time.Second)
		tip = newCoach(fileCfg, logger).Recommend(coachCtx, attempts)
		cancel()
	}

	if insightsTUI {
		program := tea.NewProgram(statsui.NewModel(st, flagUser, tip), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run insights TUI: %w", err)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	fd := int(os.Stdout.Fd())
	useColor := term.IsTerminal(fd)
	report := stats.NewReport(attempts, insightsWindow, insightsTop)
	if err := stats.RenderSummary(out, report, useColor); err != nil {
		return fmt.Errorf("failed to render insights: %w", err)
	}
	mods := catalog.WithCompletion(catalog.Modules(), done)
	if _, err := fmt.Fprintf(out, "Modules: %d%% completed\n\n", catalog.CompletionPercent(mods)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderLetterTable(out, report.Letters); err != nil {
		return fmt.Errorf("failed to render letters: %w", err)
	}
	if tip == "" {
		return nil
	}
	if width, _, err := term.GetSize(fd); err == nil && width > 0 {
		tip = lipgloss.NewStyle().Width(width).Render(tip)
	}
	if _, err := fmt.Fprintf(out, "Coach: %s\n", tip); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
