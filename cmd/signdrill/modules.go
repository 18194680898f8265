package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/signdrill/internal/catalog"
	"github.com/verte-zerg/signdrill/internal/config"
	"github.com/verte-zerg/signdrill/internal/detector"
	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/store"
)

var modulesCheck bool

func newModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List modules and completion",
		Args:  cobra.NoArgs,
		RunE:  runModulesCmd,
	}
	addUserFlag(cmd)
	cmd.Flags().StringVar(&flagDetectorURL, "detector-url", defaultDetectorURL, "base URL of the hand-sign detection service")
	cmd.Flags().IntVar(&flagTimeoutSec, "timeout", defaultTimeoutSec, "per-call timeout in seconds")
	cmd.Flags().BoolVar(&modulesCheck, "check", false, "also check the detection service health")
	return cmd
}

func runModulesCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
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
	out := cmd.OutOrStdout()
	if err := writeModules(out, catalog.WithCompletion(catalog.Modules(), done)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if !modulesCheck {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flagTimeoutSec)*time.Second)
	defer cancel()
	h, err := detector.New(flagDetectorURL, time.Duration(flagTimeoutSec)*time.Second).Health(ctx)
	if err != nil {
		return fmt.Errorf("detector unavailable at %s: %w", flagDetectorURL, err)
	}
	loaded := "model not loaded"
	if h.ModelLoaded {
		loaded = fmt.Sprintf("model loaded, %d classes", h.NumClasses)
	}
	if _, err := fmt.Fprintf(out, "\nDetector: %s (%s)\n", h.Status, loaded); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeModules(w io.Writer, mods []model.Module) error {
	for _, m := range mods {
		mark := "[ ]"
		if m.Completed {
			mark = "[x]"
		}
		letters := make([]string, len(m.LetterSet))
		for i, l := range m.LetterSet {
			letters[i] = string(l)
		}
		if _, err := fmt.Fprintf(w, "%s %d  %-18s %s\n", mark, m.ID, m.Title, strings.Join(letters, " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Completed: %d%%\n", catalog.CompletionPercent(mods))
	return err
}
