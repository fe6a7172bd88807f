package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"uploadsvc/internal/logger"
)

// Version is set by the build via -ldflags.
var Version = "0.0.0-dev"

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version and module information",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%suploadsvc%s %s (%s/%s, %s)\n", bold, reset, Version, runtime.GOOS, runtime.GOARCH, runtime.Version())

		// A broken config still gets a version line.
		cfg, path, err := loadConfig()
		if err != nil {
			fmt.Printf("%sConfig: %v%s\n", yellow, err, reset)
		} else {
			fmt.Printf("Config: %s (log level %s)\n", path, logger.Level())
		}

		fmt.Println("Modules:")
		for _, m := range getModuleStatus(cfg) {
			mark := red + "[-]" + reset
			if m.Enabled {
				mark = green + "[+]" + reset
			}
			fmt.Printf("  %s %s\n", mark, m.Name)
		}
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
