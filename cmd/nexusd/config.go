package main

import (
	"strings"

	"github.com/danmuck/resonator/internal/config"
	"github.com/danmuck/resonator/internal/daemon"
	"github.com/spf13/cobra"
)

type options struct {
	configPath  string
	metricsAddr string

	endpoint string
	seed     int64
	verbose  bool
}

func bindFlags(cmd *cobra.Command, opts *options) {
	def := daemon.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to nexusd.toml (defaults when empty)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	f.StringVarP(&opts.endpoint, "endpoint", "e", def.Endpoint, "resonator websocket url")
	f.Int64Var(&opts.seed, "seed", def.Seed, "directive generator seed (0 seeds from the clock)")
	f.BoolVarP(&opts.verbose, "verbose", "v", def.Verbose, "debug logging")
}

// resolveConfig layers explicitly set flags over the config file, which in
// turn sits over daemon.DefaultConfig.
func resolveConfig(opts options, changed func(string) bool) (daemon.Config, error) {
	cfg := daemon.DefaultConfig()
	if path := strings.TrimSpace(opts.configPath); path != "" {
		loaded, err := config.LoadDaemonConfig(path)
		if err != nil {
			return daemon.Config{}, err
		}
		cfg = loaded
	}

	if changed("endpoint") {
		cfg.Endpoint = strings.TrimSpace(opts.endpoint)
	}
	if changed("seed") {
		cfg.Seed = opts.seed
	}
	if changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	return cfg, cfg.Validate()
}
