package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"uploadsvc/internal/servicectl"
)

var stopForce bool

// controlCmd builds a command that runs one controller action.
func controlCmd(use, short, done string, action func(cmd *cobra.Command, ctrl servicectl.Controller) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			ctrl := newController(cfg)
			err = action(cmd, ctrl)
			switch {
			case errors.Is(err, servicectl.ErrAlreadyRunning), errors.Is(err, servicectl.ErrNotRunning):
				fmt.Printf("%s%s: %v%s\n", yellow, ctrl.Name(), err, reset)
				return nil
			case err != nil:
				return fmt.Errorf("%s %s: %w", use, ctrl.Name(), err)
			}
			fmt.Printf("%s✓ Service %s %s.%s\n", green, ctrl.Name(), done, reset)
			return nil
		},
	}
}

var startCmd = controlCmd("start", "Start the service", "started",
	func(cmd *cobra.Command, c servicectl.Controller) error { return c.Start(cmd.Context()) })

var stopCmd = controlCmd("stop", "Stop the service (--force kills it)", "stopped",
	func(cmd *cobra.Command, c servicectl.Controller) error {
		if stopForce {
			return c.ForceStop(cmd.Context())
		}
		return c.Stop(cmd.Context())
	})

var restartCmd = controlCmd("restart", "Stop then start the service", "restarted",
	func(cmd *cobra.Command, c servicectl.Controller) error { return c.Restart(cmd.Context()) })

var killCmd = controlCmd("kill", "Forcefully terminate the service process", "terminated",
	func(cmd *cobra.Command, c servicectl.Controller) error { return c.ForceStop(cmd.Context()) })

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "terminate the process instead of asking it to stop")
	RootCmd.AddCommand(startCmd, stopCmd, restartCmd, killCmd)
}
