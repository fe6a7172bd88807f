package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"uploadsvc/internal/apiclient"
	"uploadsvc/internal/logger"
	"uploadsvc/internal/monitor"
)

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"ui"},
	Short:   "Terminal UI that polls the REST API",
	Long: `Open a terminal dashboard showing the service state and the UI log.
The state is refreshed every 2 seconds through GET /api/status; the
buttons send start, stop, restart and reconnect requests. Press q to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		// The screen belongs to tview; keep log output off it.
		if cfg.Log.File != "" {
			setupFileLog(cfg, "", false)
		} else {
			logger.SetWriter(io.Discard)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		client := apiclient.New(cfg.API.BaseURL(), apiclient.DefaultTimeout)
		if _, err := client.Action(ctx, "/api/connect"); err != nil {
			logger.Debug("connect: %v", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), apiclient.LogTimeout)
			defer cancel()
			_, _ = client.Action(dctx, "/api/disconnect")
		}()

		poller := monitor.NewPoller(client, monitor.DefaultInterval)
		return monitor.NewUI(poller, cfg.Service.Name, client.BaseURL()).Run(ctx)
	},
}

func init() {
	RootCmd.AddCommand(monitorCmd)
}
