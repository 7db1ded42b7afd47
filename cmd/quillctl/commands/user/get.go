package user

import (
	"fmt"
	"os"
	"strconv"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	"github.com/quillchat/quill/pkg/apiclient"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <uid>",
	Short: "Get chat account details",
	Long: `Get detailed information about a chat account.

Examples:
  # Get account details as table
  quillctl user get 42

  # Get as JSON
  quillctl user get 42 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// SingleUserList wraps a single account for table rendering.
type SingleUserList []apiclient.ChatUser

// Headers implements TableRenderer.
func (ul SingleUserList) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (ul SingleUserList) Rows() [][]string {
	if len(ul) == 0 {
		return nil
	}
	u := ul[0]

	return [][]string{
		{"UID", fmt.Sprintf("%d", u.UID)},
		{"Name", u.Name},
		{"Nick", cmdutil.EmptyOr(u.Nick, "-")},
		{"Email", cmdutil.EmptyOr(u.Email, "-")},
		{"Description", cmdutil.EmptyOr(u.Desc, "-")},
		{"Sex", formatSex(u.Sex)},
		{"Icon", cmdutil.EmptyOr(u.Icon, "-")},
		{"Created", u.CreatedAt.Format("2006-01-02 15:04:05")},
	}
}

func formatSex(sex int) string {
	switch sex {
	case 1:
		return "male"
	case 2:
		return "female"
	default:
		return "unspecified"
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uid '%s': must be a number", args[0])
	}

	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	user, err := client.GetUser(uid)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, user, SingleUserList{*user})
}
