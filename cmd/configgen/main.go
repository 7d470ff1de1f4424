package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danmuck/resonator/internal/config"
	logs "github.com/danmuck/resonator/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		kind     string
		output   string
		input    string
		validate bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:          "configgen",
		Short:        "Write or validate resonator and nexusd config files",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			logs.ConfigureRuntime()
			if validate {
				path := input
				if path == "" {
					path = defaultPath(kind)
				}
				if err := config.Validate(path, kind); err != nil {
					return err
				}
				logs.Infof("configgen validated kind=%s path=%q", kind, path)
				return nil
			}

			target := output
			if target == "" {
				target = defaultPath(kind)
			}
			if err := config.WriteTemplate(target, kind, force); err != nil {
				return err
			}
			logs.Infof("configgen wrote template kind=%s path=%q", kind, target)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&kind, "kind", config.KindResonator, "config kind: resonator|nexusd")
	f.StringVar(&output, "output", "", "output path for config template")
	f.BoolVar(&validate, "validate", false, "validate an existing config file")
	f.StringVar(&input, "input", "", "config path for validation (defaults to per-kind cmd path)")
	f.BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}

func defaultPath(kind string) string {
	return filepath.Join("cmd", kind, "config.toml")
}
