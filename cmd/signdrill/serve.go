package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/signdrill/internal/api"
	"github.com/verte-zerg/signdrill/internal/config"
	"github.com/verte-zerg/signdrill/internal/observe"
	"github.com/verte-zerg/signdrill/internal/store"
)

const defaultServeAddr = ":8080"

var (
	serveAddr    string
	serveMetrics bool
	serveScoring bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the practice HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().BoolVar(&serveMetrics, "metrics", true, "expose Prometheus metrics at /metrics")
	cmd.Flags().BoolVar(&serveScoring, "scoring", true, "accept JPEG captures and score them with the detector")
	addPipelineFlags(cmd)
	addLogLevelFlag(cmd)
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateFlags(); err != nil {
		return err
	}
	logger := newLogger(os.Stderr, flagLogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []api.Option
	opts = append(opts, api.WithLogger(logger))
	if serveMetrics {
		shutdown, err := observe.InitProvider(ctx)
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("metrics shutdown", "err", err)
			}
		}()
		opts = append(opts, api.WithMetricsHandler(promhttp.Handler()))
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

	if serveScoring {
		p, err := buildPipeline(fileCfg, st, logger, observe.DefaultMetrics())
		if err != nil {
			return err
		}
		opts = append(opts, api.WithScorer(p))
	}

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           api.NewServer(st, opts...).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", "addr", serveAddr, "metrics", serveMetrics, "scoring", serveScoring, "detector_url", flagDetectorURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
