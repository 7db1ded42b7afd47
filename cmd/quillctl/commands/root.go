// Package commands implements the CLI commands for the quillctl client.
package commands

import (
	"os"

	"github.com/quillchat/quill/cmd/quillctl/cmdutil"
	ctxcmd "github.com/quillchat/quill/cmd/quillctl/commands/context"
	nodecmd "github.com/quillchat/quill/cmd/quillctl/commands/node"
	sessioncmd "github.com/quillchat/quill/cmd/quillctl/commands/session"
	tokencmd "github.com/quillchat/quill/cmd/quillctl/commands/token"
	usercmd "github.com/quillchat/quill/cmd/quillctl/commands/user"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "quillctl",
	Short: "Quill Control - Remote node management client",
	Long: `quillctl is the command-line client for managing quill chat nodes remotely.

Use this tool to manage chat accounts, seed login tokens, inspect and kick
live sessions, and read node load counters through the admin REST API.

Use "quillctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().String("server", "", "Admin API URL (overrides stored credential)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (overrides stored credential)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(ctxcmd.Cmd)
	rootCmd.AddCommand(usercmd.Cmd)
	rootCmd.AddCommand(tokencmd.Cmd)
	rootCmd.AddCommand(sessioncmd.Cmd)
	rootCmd.AddCommand(nodecmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
