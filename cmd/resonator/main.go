package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/resonator/internal/host"
	"github.com/danmuck/resonator/internal/kuramoto"
	logs "github.com/danmuck/resonator/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(&options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "resonator: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resonator",
		Short: "Run the oscillator grid and stream its state to controllers",
		Long: `resonator steps an N×N Kuramoto grid on a torus and serves it over
websocket. Controllers receive resonator_state frames and answer with
weak_measurement and modulate directives.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(*opts, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, *opts)
		},
	}
	bindFlags(cmd, opts)
	return cmd
}

func run(ctx context.Context, cfg host.Config, opts options) error {
	logs.ConfigureRuntime()
	if opts.verbose {
		logs.SetLevel(zerolog.DebugLevel)
	}

	h, err := host.New(cfg)
	if err != nil {
		return err
	}
	if err := h.Run(ctx); err != nil {
		return err
	}
	if opts.historyOut == "" {
		return nil
	}
	return writeHistory(h, opts.historyOut)
}

func writeHistory(h *host.Host, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("history export: %w", err)
	}
	if err := h.ExportHistory(f, kuramoto.FormatFromPath(path)); err != nil {
		_ = f.Close()
		return fmt.Errorf("history export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("history export: %w", err)
	}
	logs.Infof("resonator history exported path=%q", path)
	return nil
}
