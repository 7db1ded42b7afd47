package user

import (
	"fmt"
	"os"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	"github.com/quillchat/quill/internal/cli/output"
	"github.com/quillchat/quill/internal/cli/prompt"
	"github.com/quillchat/quill/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	createName     string
	createPassword string
	createEmail    string
	createNick     string
	createDesc     string
	createSex      int
	createIcon     string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new chat account",
	Long: `Create a new chat account on the quill node.

If the account name is not provided via flags, you will be prompted to
enter the fields interactively. When no password is given, the node
generates one and prints it exactly once in the create response.

Examples:
  # Create an account interactively
  quillctl user create

  # Create an account with flags
  quillctl user create --name alice --password secret

  # Create an account with a generated password
  quillctl user create --name bob --nick Bob --email bob@example.com`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "Account name (required)")
	createCmd.Flags().StringVarP(&createPassword, "password", "p", "", "Password (generated if not provided)")
	createCmd.Flags().StringVar(&createEmail, "email", "", "Email address")
	createCmd.Flags().StringVar(&createNick, "nick", "", "Display nickname")
	createCmd.Flags().StringVar(&createDesc, "desc", "", "Profile description")
	createCmd.Flags().IntVar(&createSex, "sex", 0, "Profile sex (0=unspecified, 1=male, 2=female)")
	createCmd.Flags().StringVar(&createIcon, "icon", "", "Avatar icon URL")
}

func runCreate(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetAuthenticatedClient()
	if err != nil {
		return err
	}

	// Check if running interactively (no flags provided)
	interactive := !cmd.Flags().Changed("name")

	name := createName
	if name == "" {
		name, err = prompt.InputRequired("Account name")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	// Prompt for optional fields if running interactively
	password := createPassword
	if interactive && !cmd.Flags().Changed("password") {
		password, err = prompt.InputOptional("Password (leave empty to generate)")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	nick := createNick
	if interactive && !cmd.Flags().Changed("nick") {
		nick, err = prompt.InputOptional("Nickname")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	email := createEmail
	if interactive && !cmd.Flags().Changed("email") {
		email, err = prompt.InputOptional("Email")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	req := &apiclient.CreateUserRequest{
		Name:     name,
		Password: password,
		Email:    email,
		Nick:     nick,
		Desc:     createDesc,
		Sex:      createSex,
		Icon:     createIcon,
	}

	user, err := client.CreateUser(req)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	successMsg := fmt.Sprintf("User '%s' created with uid %d", user.Name, user.UID)
	if err := cmdutil.PrintResourceWithSuccess(os.Stdout, user, successMsg); err != nil {
		return err
	}

	// JSON and YAML responses carry generated_password already; the table
	// path prints it once here since it can never be retrieved again.
	if user.GeneratedPassword != "" {
		if format, ferr := cmdutil.GetOutputFormatParsed(); ferr == nil && format == output.FormatTable {
			fmt.Printf("Generated password: %s (shown only once)\n", user.GeneratedPassword)
		}
	}
	return nil
}
