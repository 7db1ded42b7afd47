package user

import (
	"fmt"
	"os"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	"github.com/quillchat/quill/pkg/apiclient"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all chat accounts",
	Long: `List all chat accounts on the quill node.

Examples:
  # List accounts as table
  quillctl user list

  # List as JSON
  quillctl user list -o json

  # List as YAML
  quillctl user list -o yaml`,
	RunE: runList,
}

// UserList is a list of chat accounts for table rendering.
type UserList []apiclient.ChatUser

// Headers implements TableRenderer.
func (ul UserList) Headers() []string {
	return []string{"UID", "NAME", "NICK", "EMAIL", "CREATED"}
}

// Rows implements TableRenderer.
func (ul UserList) Rows() [][]string {
	rows := make([][]string, 0, len(ul))
	for _, u := range ul {
		nick := cmdutil.EmptyOr(u.Nick, "-")
		email := cmdutil.EmptyOr(u.Email, "-")
		created := "-"
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{fmt.Sprintf("%d", u.UID), u.Name, nick, email, created})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	users, err := client.ListUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, users, len(users) == 0, "No users found.", UserList(users))
}
