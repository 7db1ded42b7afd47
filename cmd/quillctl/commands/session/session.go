// Package session implements live session commands for quillctl.
package session

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for session management.
var Cmd = &cobra.Command{
	Use:   "session",
	Short: "Live session management",
	Long: `Inspect and manage live chat sessions on the node.

Sessions are open chat connections. Kicking a session closes its
connection; the client is free to reconnect.

Examples:
  # List live sessions
  quillctl session list

  # Kick a session by id
  quillctl session kick 7f3a9c

  # Kick without confirmation
  quillctl session kick 7f3a9c --force`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(kickCmd)
}
