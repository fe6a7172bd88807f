package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"uploadsvc/internal/platform"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Check detected system environment",
	Long: `Display information about your system and the service tools available.
Useful for troubleshooting installation issues.

Checks for:
  - Windows: sc.exe, taskkill and whether the process is elevated
  - Linux: systemctl and whether the process runs as root`,
	Example: `  uploadsvc env              # Show environment info`,
	Run: func(cmd *cobra.Command, args []string) {
		env := platform.CheckEnv()
		fmt.Println("Detected Environment:")
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, env[k])
		}
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		for _, tool := range platform.ServiceTools() {
			if !platform.HasTool(tool) {
				fmt.Printf("%s%s not found on PATH: service control will fail.%s\n", yellow, tool, reset)
			}
		}
		if env["Admin"] != "true" {
			fmt.Printf("%sinstall, remove and /api/install need administrator rights.%s\n", yellow, reset)
		}
	},
}

func init() {
	RootCmd.AddCommand(envCmd)
}
