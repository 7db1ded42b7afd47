// Package node implements node inspection commands for quillctl.
package node

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for node inspection.
var Cmd = &cobra.Command{
	Use:   "node",
	Short: "Node inspection",
	Long: `Inspect the quill node behind the current context.

Examples:
  # Show the node's identity and load
  quillctl node status

  # Show as JSON
  quillctl node status -o json`,
}

func init() {
	Cmd.AddCommand(statusCmd)
}
