package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillchat/quill/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the quill configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  quill config validate

  # Validate specific config file
  quill config validate --config /etc/quill/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	// Check JWT secret is configured
	if cfg.Admin.IsEnabled() && !cfg.Admin.HasJWTSecret() {
		warnings = append(warnings, "admin JWT secret not configured - admin API authentication will fail")
	}

	// A single-node roster is valid but worth calling out
	if len(cfg.Peers.Servers) == 0 {
		warnings = append(warnings, "no peers configured - notifications will only reach users on this node")
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Node name:       %s\n", cfg.Server.Name)
	fmt.Printf("  Chat port:       %d\n", cfg.Server.Port)
	fmt.Printf("  RPC port:        %d\n", cfg.Server.RPCPort)
	fmt.Printf("  Peers:           %d\n", len(cfg.Peers.Servers))
	fmt.Printf("  Redis:           %s\n", cfg.Redis.Addr)
	fmt.Printf("  Store type:      %s\n", cfg.Store.Type)
	fmt.Printf("  Admin port:      %d\n", cfg.Admin.Port)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
