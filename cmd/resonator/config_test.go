package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/resonator/internal/config"
	"github.com/danmuck/resonator/internal/host"
	"github.com/danmuck/resonator/internal/kuramoto"
	"github.com/danmuck/resonator/internal/testutil/testlog"
)

func parse(t *testing.T, args ...string) (options, func(string) bool) {
	t.Helper()
	opts := &options{}
	cmd := newRootCommand(opts)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags %v: %v", args, err)
	}
	return *opts, cmd.Flags().Changed
}

func TestResolveConfigDefaultsWithoutFile(t *testing.T) {
	testlog.Start(t)

	cfg, err := resolveConfig(parse(t))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	def := host.DefaultConfig()
	if cfg.Addr != def.Addr || cfg.GridSize != def.GridSize || cfg.Coupling != def.Coupling {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "resonator.toml")
	if err := config.WriteTemplate(path, config.KindResonator, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := resolveConfig(parse(t, "--config", path, "--grid-size", "4", "--apply-perturbations"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.GridSize != 4 || !cfg.ApplyPerturbations {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("file values lost: %+v", cfg.CORSOrigins)
	}
}

func TestResolveConfigRejectsInvalidFlags(t *testing.T) {
	testlog.Start(t)

	if _, err := resolveConfig(parse(t, "--grid-size", "0")); !errors.Is(err, kuramoto.ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, err := resolveConfig(parse(t, "--config", filepath.Join(t.TempDir(), "none.toml"))); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing file error, got %v", err)
	}
}
