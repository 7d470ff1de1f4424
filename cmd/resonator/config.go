package main

import (
	"strings"

	"github.com/danmuck/resonator/internal/config"
	"github.com/danmuck/resonator/internal/host"
	"github.com/spf13/cobra"
)

// options holds the command-line surface. Flags that were set explicitly win
// over the config file.
type options struct {
	configPath string
	historyOut string
	verbose    bool

	addr     string
	gridSize int
	coupling float64
	noise    float64
	seed     int64
	perturb  bool
}

func bindFlags(cmd *cobra.Command, opts *options) {
	def := host.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to resonator.toml (defaults when empty)")
	f.StringVar(&opts.historyOut, "history-out", "", "write recorded grid history here on shutdown (.json or .yaml)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.StringVar(&opts.addr, "addr", def.Addr, "listen address")
	f.IntVar(&opts.gridSize, "grid-size", def.GridSize, "grid side length N")
	f.Float64Var(&opts.coupling, "coupling", def.Coupling, "coupling strength K")
	f.Float64Var(&opts.noise, "noise", def.Noise, "noise level")
	f.Int64Var(&opts.seed, "seed", def.Seed, "random seed (0 seeds from the clock)")
	f.BoolVar(&opts.perturb, "apply-perturbations", def.ApplyPerturbations, "let weak measurements perturb the grid")
}

func resolveConfig(opts options, changed func(string) bool) (host.Config, error) {
	cfg := host.DefaultConfig()
	if path := strings.TrimSpace(opts.configPath); path != "" {
		loaded, err := config.LoadHostConfig(path)
		if err != nil {
			return host.Config{}, err
		}
		cfg = loaded
	}

	if changed("addr") {
		cfg.Addr = strings.TrimSpace(opts.addr)
	}
	if changed("grid-size") {
		cfg.GridSize = opts.gridSize
	}
	if changed("coupling") {
		cfg.Coupling = opts.coupling
	}
	if changed("noise") {
		cfg.Noise = opts.noise
	}
	if changed("seed") {
		cfg.Seed = opts.seed
	}
	if changed("apply-perturbations") {
		cfg.ApplyPerturbations = opts.perturb
	}
	return cfg, cfg.Validate()
}
