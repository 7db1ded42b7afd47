package token

import (
	"fmt"
	"os"
	"strconv"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	"github.com/spf13/cobra"
)

var seedToken string

var seedCmd = &cobra.Command{
	Use:   "seed <uid>",
	Short: "Seed a login token for a uid",
	Long: `Write a login token for a uid into redis so a chat client can
authenticate. When no token is given, the node mints a random one and
returns it.

The token is what the chat client presents in its first frame, not an
admin API credential.

Examples:
  # Seed a generated token for uid 42
  quillctl token seed 42

  # Seed an explicit token
  quillctl token seed 42 --token s3cr3t-token

  # Print the seeded token as JSON
  quillctl token seed 42 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedToken, "token", "", "Explicit token value (generated if not provided)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uid '%s': must be a number", args[0])
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	seeded, err := client.SeedToken(uid, seedToken)
	if err != nil {
		return fmt.Errorf("failed to seed token: %w", err)
	}

	return cmdutil.PrintResourceWithSuccess(os.Stdout, seeded,
		fmt.Sprintf("Token seeded for uid %d: %s", seeded.UID, seeded.Token))
}
