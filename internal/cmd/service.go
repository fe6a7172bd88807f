package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"uploadsvc/internal/app"
)

var (
	installUser     string
	installPassword string
	installStartup  string
	removePurge     bool
)

var installCmd = &cobra.Command{
	Use:     "install",
	Aliases: []string{"i"},
	Short:   "Register the service with the OS service manager",
	Long: `Register uploadsvc as a system service that runs "uploadsvc run":
  - Windows: service control manager (run as Administrator)
  - Linux: systemd unit in /etc/systemd/system (run as root)

Without --username the service runs as LocalSystem (Windows) or root.`,
	Example: `  uploadsvc install
  uploadsvc install --username .\uploader --password secret
  uploadsvc install --startup manual`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("startup") {
			cfg.Service.Startup = installStartup
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		if cfgFile == "" {
			path = ""
		}
		ctrl := newController(cfg)
		if err := app.Install(cmd.Context(), ctrl, cfg, path, app.Credentials{Username: installUser, Password: installPassword}); err != nil {
			return err
		}
		fmt.Printf("\n%s✓ Service %s installed.%s\n", green, ctrl.Name(), reset)
		fmt.Println("\nNext steps:")
		fmt.Println("  1. uploadsvc start     # Start the service")
		fmt.Println("  2. uploadsvc api       # Serve the control API")
		fmt.Println("  3. uploadsvc monitor   # Watch it")
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"uninstall", "rm"},
	Short:   "Stop the service and delete its registration",
	Example: `  uploadsvc remove
  uploadsvc remove --purge   # also delete config and completions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		ctrl := newController(cfg)
		if err := app.Uninstall(cmd.Context(), ctrl, removePurge); err != nil {
			return err
		}
		fmt.Printf("%s✓ Service %s removed.%s\n", green, ctrl.Name(), reset)
		return nil
	},
}

func init() {
	installCmd.Flags().StringVarP(&installUser, "username", "u", "", "account the service runs as")
	installCmd.Flags().StringVarP(&installPassword, "password", "p", "", "password for --username")
	installCmd.Flags().StringVar(&installStartup, "startup", "auto", "start type: auto, manual or disabled")
	removeCmd.Flags().BoolVar(&removePurge, "purge", false, "also remove the config directory and shell completions")

	RootCmd.AddCommand(installCmd, removeCmd)
}
