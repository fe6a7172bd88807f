package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// envOverrides are reported by inspect when set.
var envOverrides = []string{
	"SERVICE_NAME", "SERVICE_API_HOST", "SERVICE_API_PORT", "SERVICE_ROOT_PATH",
	"PACS_BASE_URL", "PACS_TOKEN_URL", "PACS_CLIENT_ID", "PACS_CLIENT_SECRET",
	"PACS_USERNAME", "PACS_PASSWORD", "PACS_MAX_UPLOAD_BPS",
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the effective configuration (defaults, file, .env and environment merged)",
	Long: `Show the configuration uploadsvc actually uses: the compiled defaults
overlaid with config.toml, .env and the environment variables.
Secrets are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		shown := *cfg
		shown.PACS.ClientSecret = mask(shown.PACS.ClientSecret)
		shown.PACS.Password = mask(shown.PACS.Password)

		fmt.Printf("%s%s=== Effective configuration (%s) ===%s\n", bold, cyan, path, reset)
		cfgData, err := toml.Marshal(shown)
		if err != nil {
			return err
		}

		for _, line := range strings.Split(string(cfgData), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				fmt.Println()
				continue
			}
			if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
				fmt.Printf("%s%s%s\n", yellow, line, reset)
			} else if idx := strings.Index(line, "="); idx != -1 {
				key := line[:idx]
				val := line[idx+1:]
				fmt.Printf("%s%s%s=%s%s%s\n", green, key, reset, cyan, val, reset)
			} else {
				fmt.Println(line)
			}
		}

		fmt.Printf("\n%s%s=== Environment overrides ===%s\n", bold, cyan, reset)
		found := false
		for _, k := range envOverrides {
			v, ok := os.LookupEnv(k)
			if !ok || strings.TrimSpace(v) == "" {
				continue
			}
			if strings.Contains(k, "SECRET") || strings.Contains(k, "PASSWORD") {
				v = mask(v)
			}
			fmt.Printf("  %s%s%s = %s%s%s\n", green, k, reset, cyan, v, reset)
			found = true
		}
		if !found {
			fmt.Println("  (none)")
		}
		return nil
	},
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func init() {
	RootCmd.AddCommand(inspectCmd)
}
