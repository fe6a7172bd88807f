package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"uploadsvc/internal/config"
	"uploadsvc/internal/logger"
)

var resetConfigCmd = &cobra.Command{
	Use:   "reset-config",
	Short: "Reset the configuration file to defaults",
	Long: `Overwrite config.toml in the user config directory with the defaults.
WARNING: this discards your customizations, including PACS credentials.

Environment variables and .env files are not touched.`,
	Example: `  uploadsvc reset-config       # Reset to default settings`,
	Run: func(cmd *cobra.Command, args []string) {
		appDir, err := config.EnsureConfig(true)
		if err != nil {
			logger.Fatal("Failed to reset config: %v", err)
		}
		fmt.Println("✓ Configuration reset to defaults.")
		fmt.Printf("  Config directory: %s\n", appDir)
	},
}

func init() {
	RootCmd.AddCommand(resetConfigCmd)
}
