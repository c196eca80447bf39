// Package initcmder provides the init command for initializing a local
// .cortex directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SaintNick1214/cortex/pkg/config"
)

const (
	dirName = ".cortex"
)

const initLongDesc string = `Initialize a new .cortex/ directory in the current working directory.

Creates a local .cortex/ directory that takes precedence over the default
~/.cortex/ directory for workspace state, storage, configuration,
and other cortex operations, and writes a config.toml with defaults.

This is useful for maintaining separate cortex state per project or directory.

Examples:
  cortex init
  cortex init --preset postgres`

const initShortDesc string = "Initialize a local .cortex/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("Storage preset to seed config.toml with (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .cortex directory: %w", err)
	}

	cfg := config.NewDefaultConfig()
	if preset != "" {
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("resolving config target: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config.toml: %w", err)
	}

	fmt.Printf("Initialized .cortex directory: %s\n", dir)
	return nil
}
