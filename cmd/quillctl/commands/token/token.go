// Package token implements login token commands for quillctl.
package token

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for login token management.
var Cmd = &cobra.Command{
	Use:   "token",
	Short: "Login token management",
	Long: `Manage chat login tokens.

Chat clients authenticate their first frame with a uid and a login token
the node looks up in redis. Seeding a token makes a uid able to connect.

Examples:
  # Seed a generated token for uid 42
  quillctl token seed 42

  # Seed an explicit token
  quillctl token seed 42 --token s3cr3t-token`,
}

func init() {
	Cmd.AddCommand(seedCmd)
}
