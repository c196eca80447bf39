// Package usecmder provides the use command for selecting the active
// memory space of the local .cortex directory.
package usecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SaintNick1214/cortex/pkg/cliui"
	"github.com/SaintNick1214/cortex/pkg/dotdir"
	"github.com/SaintNick1214/cortex/pkg/memory"
)

type useCommander struct {
	memorySpaceID string
	userID        string
	participantID string
	configDir     string
}

const useLongDesc string = `Select the memory space that subsequent commands operate in.

Saves the workspace state to the .cortex/ directory. The space id and
optional attribution defaults are applied to commands that don't specify
their own.

If no space id is provided, clears the workspace state.

Examples:
  cortex use agent-alpha                     Switch to the agent-alpha space
  cortex use agent-alpha --user user-1       Also set default user attribution
  cortex use                                 Clear workspace state`

const useShortDesc string = "Select the active memory space"

func NewUseCmd() *cobra.Command {
	cmder := &useCommander{}

	cmd := &cobra.Command{
		Use:   "use [memory-space-id]",
		Short: useShortDesc,
		Long:  useLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmder.memorySpaceID = args[0]
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "", "Default user attribution for stored memories")
	cmd.Flags().StringVarP(&cmder.participantID, "participant", "p", "", "Default participant attribution in shared spaces")

	return cmd
}

func (c *useCommander) run() error {
	manager := dotdir.NewManager()

	if c.memorySpaceID == "" {
		if err := manager.ClearWorkspace(c.configDir); err != nil {
			return fmt.Errorf("clearing workspace: %w", err)
		}
		fmt.Println("Workspace cleared. Commands now require an explicit memory space.")
		return nil
	}

	if err := memory.CheckSpace(c.memorySpaceID); err != nil {
		return err
	}

	state := &dotdir.WorkspaceState{
		MemorySpaceID: c.memorySpaceID,
		UserID:        c.userID,
		ParticipantID: c.participantID,
	}

	if err := manager.SaveWorkspace(state, c.configDir); err != nil {
		return fmt.Errorf("saving workspace: %w", err)
	}

	fmt.Printf("\n  %s Using memory space %s\n\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(c.memorySpaceID),
	)
	return nil
}
