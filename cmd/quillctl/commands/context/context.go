// Package context implements context management commands for quillctl.
package context

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for context management.
var Cmd = &cobra.Command{
	Use:   "context",
	Short: "Context management",
	Long: `Manage saved server contexts.

A context stores the admin API URL and credentials for one quill node,
so you can switch between nodes without re-entering connection details.

Examples:
  # List all contexts
  quillctl context list

  # Show the current context
  quillctl context current

  # Switch to another context
  quillctl context use production

  # Rename a context
  quillctl context rename default production

  # Delete a context
  quillctl context delete staging`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(currentCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(deleteCmd)
}
