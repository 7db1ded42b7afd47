package session

import (
	"fmt"
	"os"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	"github.com/quillchat/quill/pkg/apiclient"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List live sessions",
	Long: `List every live chat session on the node.

Sessions that have not completed login yet show a dash in the UID column.

Examples:
  # List sessions as table
  quillctl session list

  # List as JSON
  quillctl session list -o json`,
	RunE: runList,
}

// SessionList is a list of sessions for table rendering.
type SessionList []apiclient.Session

// Headers implements TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"ID", "REMOTE", "UID"}
}

// Rows implements TableRenderer.
func (sl SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		uid := "-"
		if s.UID != 0 {
			uid = fmt.Sprintf("%d", s.UID)
		}
		rows = append(rows, []string{s.ID, s.RemoteAddr, uid})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	sessions, err := client.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, sessions, len(sessions) == 0, "No live sessions.", SessionList(sessions))
}
