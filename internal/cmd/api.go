package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"uploadsvc/internal/api"
	"uploadsvc/internal/app"
	"uploadsvc/internal/config"
	"uploadsvc/internal/logger"
	"uploadsvc/internal/pacs"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the REST control API",
	Long: `Serve the local REST API used by the monitor UI and "status --api".

The API controls the service through the OS service manager, keeps the
UI log and, when [pacs] is configured, runs folder uploads.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		fallback := ""
		if appDir, err := config.GetAppDataDir(); err == nil {
			fallback = filepath.Join(appDir, "api.log")
		}
		setupFileLog(cfg, fallback, true)
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctrl := newController(cfg)
		opts := api.Options{Addr: cfg.API.Addr(), Controller: ctrl}
		if install, err := app.ServiceOptions(cfg, path, app.Credentials{}); err == nil {
			opts.Install = install
		}

		var client *pacs.Client
		if cfg.PACS.BaseURL != "" {
			client, err = pacs.FromConfig(cfg.PACS, nil, nil)
			if err != nil {
				return err
			}
			opts.Uploader = pacs.NewUploader(client, nil, cfg.PACS.Include)
		} else {
			logger.Info("PACS base_url not set, uploads disabled")
		}

		srv := api.New(opts)
		if client != nil {
			// Upload messages go straight into this process's UI log.
			client.SetNotifier(srv.Notifier())
			opts.Uploader.Notifier = srv.Notifier()
			watchThrottle(ctx, path, client.Throttle())
		}
		return srv.Run(ctx)
	},
}

// watchThrottle follows pacs.max_upload_kbps in the config file.
func watchThrottle(ctx context.Context, path string, t *pacs.Throttle) {
	err := config.Watch(ctx, path, func(c *config.Config) {
		if c.PACS.MaxUploadKBps*1024 != int(t.BytesPerSecond()) {
			logger.Info("PACS upload limit changed to %d KiB/s", c.PACS.MaxUploadKBps)
			t.SetKBps(c.PACS.MaxUploadKBps)
		}
	}, func(err error) {
		logger.Warn("Config reload failed: %v", err)
	})
	if err != nil {
		logger.Warn("Config watcher not started: %v", err)
	}
}

func init() {
	RootCmd.AddCommand(apiCmd)
}
