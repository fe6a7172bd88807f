package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"uploadsvc/internal/agent"
	"uploadsvc/internal/config"
	"uploadsvc/internal/folder"
	"uploadsvc/internal/logger"
	"uploadsvc/internal/svchost"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Service entry point: run the workload",
	Long: `Run the heartbeat and folder monitor workload.

Under the Windows service control manager this registers the service
handler; anywhere else it runs in the foreground until Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		fallback := ""
		if appDir, err := config.GetAppDataDir(); err == nil {
			fallback = filepath.Join(appDir, "log.txt")
		}
		setupFileLog(cfg, fallback, true)
		defer logger.Sync()

		mon := folder.New(cfg.Monitor.RootPath, cfg.Monitor.DateFormat)
		work := agent.New(mon, cfg.Monitor.Heartbeat.Std())

		err = svchost.Run(svchost.Options{
			Name:        cfg.Service.Name,
			StopTimeout: cfg.Monitor.StopTimeout.Std(),
		}, func(ctx context.Context) error {
			return work.Run(ctx)
		})
		if err != nil {
			logger.Error("Service %s exited: %v", cfg.Service.Name, err)
		}
		return err
	},
}

func init() {
	RootCmd.AddCommand(runCmd)
}
