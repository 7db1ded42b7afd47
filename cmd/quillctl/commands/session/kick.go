package session

import (
	"fmt"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	"github.com/quillchat/quill/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var kickForce bool

var kickCmd = &cobra.Command{
	Use:   "kick <session-id>",
	Short: "Kick a live session",
	Long: `Close a live session's connection by id.

The session id comes from 'quillctl session list'. The client sees the
connection drop and may reconnect.

Examples:
  # Kick a session
  quillctl session kick 7f3a9c

  # Kick without confirmation
  quillctl session kick 7f3a9c --force`,
	Args: cobra.ExactArgs(1),
	RunE: runKick,
}

func init() {
	kickCmd.Flags().BoolVarP(&kickForce, "force", "f", false, "Skip confirmation")
}

func runKick(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Kick session '%s'?", sessionID), kickForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := client.KickSession(sessionID); err != nil {
		return fmt.Errorf("failed to kick session: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Session '%s' kicked", sessionID))
	return nil
}
