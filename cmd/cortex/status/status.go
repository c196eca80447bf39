// Package statuscmder provides the status command for displaying the current
// workspace state of the local .cortex directory.
package statuscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SaintNick1214/cortex/pkg/cliui"
	"github.com/SaintNick1214/cortex/pkg/config"
	"github.com/SaintNick1214/cortex/pkg/dotdir"
)

const statusLongDesc string = `Show the current cortex workspace state.

Reads the local .cortex/ directory (or ~/.cortex/) to display the active
memory space and attribution defaults, plus the config file in use.

If no workspace state exists, indicates that commands require an explicit
memory space.

Examples:
  cortex status`

const statusShortDesc string = "Show current workspace state"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(configDir)
		},
	}

	return cmd
}

func runStatus(configDir string) error {
	manager := dotdir.NewManager()

	state, err := manager.LoadWorkspaceState(configDir)
	if err != nil {
		return fmt.Errorf("loading workspace state: %w", err)
	}

	if state == nil {
		fmt.Printf("  %s No workspace selected. Commands require an explicit memory space.\n", cliui.DimStyle.Render("●"))
	} else {
		fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("Memory space:"), cliui.IDStyle.Render(state.MemorySpaceID))
		if state.UserID != "" {
			fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("User:        "), cliui.ValueStyle.Render(state.UserID))
		}
		if state.ParticipantID != "" {
			fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Participant: "), cliui.ValueStyle.Render(state.ParticipantID))
		}
		fmt.Println()
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
	} else {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	return nil
}
