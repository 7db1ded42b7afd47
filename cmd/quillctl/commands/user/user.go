// Package user implements chat account management commands for quillctl.
package user

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for chat account management.
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Chat account management",
	Long: `Manage chat accounts on the quill node.

User commands allow you to create, list, and inspect chat accounts.
These operations require admin privileges.

Examples:
  # List all accounts
  quillctl user list

  # Create a new account interactively
  quillctl user create

  # Create an account with flags
  quillctl user create --name alice --password secret

  # Show one account by uid
  quillctl user get 42`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(getCmd)
}
