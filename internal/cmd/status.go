package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"uploadsvc/internal/api"
	"uploadsvc/internal/apiclient"
	"uploadsvc/internal/config"
	"uploadsvc/internal/servicectl"
)

var statusViaAPI bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service state as reported by the OS (or the API with --api)",
	Long: `Display the service state, the configuration in use and whether the
control API answers.

With --api the state comes from GET /api/status instead of the OS
service manager, which is what the monitor UI sees.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		printStatus(cmd.Context(), cfg, path)
		return nil
	},
}

func printStatus(ctx context.Context, cfg *config.Config, path string) {
	fmt.Printf("\n%s%suploadsvc Status%s\n", bold, cyan, reset)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	fmt.Printf("%sConfiguration:%s\n", bold, reset)
	fmt.Printf("  Config file: %s%s%s\n", cyan, path, reset)
	fmt.Printf("  Service name: %s%s%s\n", cyan, cfg.Service.Name, reset)
	fmt.Printf("  API: %s%s%s\n", cyan, cfg.API.BaseURL(), reset)
	fmt.Println()

	client := apiclient.New(cfg.API.BaseURL(), apiclient.DefaultTimeout)
	apiStatus, apiErr := client.Status(ctx)

	fmt.Printf("%sService:%s\n", bold, reset)
	if statusViaAPI {
		if apiErr != nil {
			fmt.Printf("  State: %s%s%s\n", yellow, "⚠ Unknown", reset)
			fmt.Printf("  Error: %v\n", apiErr)
		} else {
			fmt.Printf("  State: %s\n", colorState(servicectl.State(apiStatus.State)))
			printPID(apiStatus.PID)
			if !apiStatus.OK {
				fmt.Printf("  Error: %s%s%s\n", red, apiStatus.Error, reset)
			}
		}
	} else {
		st, err := newController(cfg).Query(ctx)
		if err != nil {
			fmt.Printf("  State: %s%s%s (%v)\n", yellow, "⚠ Cannot check", reset, err)
		} else {
			fmt.Printf("  State: %s\n", colorState(st.State))
			printPID(st.PID)
		}
	}
	fmt.Println()

	fmt.Printf("%sControl API:%s\n", bold, reset)
	if apiErr != nil {
		fmt.Printf("  Status: %s%s%s\n", red, "✗ Not reachable", reset)
		fmt.Printf("    Run: %suploadsvc api%s\n", yellow, reset)
	} else {
		fmt.Printf("  Status: %s%s%s\n", green, "✓ Connected", reset)
		printUIConnected(apiStatus)
	}
	fmt.Println()

	fmt.Printf("%s%sQuick Commands:%s\n", bold, cyan, reset)
	fmt.Printf("  Install service:  %suploadsvc install%s\n", yellow, reset)
	fmt.Printf("  Start / stop:     %suploadsvc start%s / %suploadsvc stop%s\n", yellow, reset, yellow, reset)
	fmt.Printf("  Watch:            %suploadsvc monitor%s\n", yellow, reset)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
}

func printPID(pid int) {
	if pid > 0 {
		fmt.Printf("  PID: %s%d%s\n", cyan, pid, reset)
	}
}

func printUIConnected(st api.StatusResponse) {
	if st.UIConnected {
		fmt.Printf("  Monitor UI: %s%s%s\n", green, "✓ Connected", reset)
	} else {
		fmt.Printf("  Monitor UI: %s%s%s\n", yellow, "Disconnected", reset)
	}
}

func colorState(s servicectl.State) string {
	switch s {
	case servicectl.StateRunning:
		return green + "✓ " + string(s) + reset
	case servicectl.StateStopped:
		return red + "✗ " + string(s) + reset
	case servicectl.StateNotInstalled:
		return red + "✗ Not installed" + reset
	default:
		if strings.HasSuffix(string(s), "_PENDING") {
			return yellow + "⚡ " + string(s) + reset
		}
		return yellow + "⚠ " + string(s) + reset
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusViaAPI, "api", false, "query the REST API instead of the OS service manager")
	RootCmd.AddCommand(statusCmd)
}
