package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/resonator/internal/daemon"
	logs "github.com/danmuck/resonator/internal/logging"
	"github.com/danmuck/resonator/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(&options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nexusd: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nexusd",
		Short: "Closed-loop controller daemon for a resonator host",
		Long: `nexusd connects to a resonator over websocket, classifies each
resonator_state into a coherence regime and answers with weak_measurement
directives. It reconnects until interrupted.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(*opts, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.metricsAddr)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

func run(ctx context.Context, cfg daemon.Config, metricsAddr string) error {
	logs.ConfigureRuntime()
	if cfg.Verbose {
		logs.SetLevel(zerolog.DebugLevel)
	}

	d, err := daemon.New(cfg, daemon.WithPhaseObserver(func(p daemon.Phase) {
		logs.Debugf("nexusd phase=%s", p)
	}))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.Run(gctx)
	})
	if metricsAddr != "" {
		observability.RegisterMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: cfg.Session.HandshakeTimeout}
		g.Go(func() error {
			logs.Infof("nexusd metrics listening addr=%q", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	err = g.Wait()
	logs.Infof("nexusd stopped actions=%d", d.Actions())
	return err
}
