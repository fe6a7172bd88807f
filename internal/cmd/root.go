package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"uploadsvc/internal/config"
	"uploadsvc/internal/logger"
	"uploadsvc/internal/servicectl"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "uploadsvc",
	Short: "DICOM uploader service with a local control API",
	Long: `uploadsvc runs a background service that keeps a dated drop folder,
uploads DICOM studies to a PACS and exposes a small REST API so a
monitor UI can start, stop and watch it.

Supports: Windows (service control manager) and Linux (systemd)`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default <user config dir>/uploadsvc/config.toml)")
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return filepath.Abs(cfgFile)
	}
	return config.DefaultPath()
}

// loadConfig loads the effective configuration and applies its log level.
func loadConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load config %s: %w", path, err)
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, path, nil
}

// setupFileLog routes logs to the configured file, or to fallback when none
// is configured.
func setupFileLog(cfg *config.Config, fallback string, console bool) {
	path := cfg.Log.File
	if path == "" {
		path = fallback
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			logger.Warn("Failed to create log dir: %v", err)
		}
	}
	rot := logger.Rotation{MaxSizeMB: cfg.Log.MaxSizeMB, MaxBackups: cfg.Log.MaxBackups}
	if err := logger.SetOutput(path, rot, console); err != nil {
		fmt.Printf("Failed to set log file: %v\n", err)
	}
}

func newController(cfg *config.Config) servicectl.Controller {
	return servicectl.New(cfg.Service.Name, servicectl.Options{StopTimeout: cfg.Monitor.StopTimeout.Std()})
}

const (
	cyan   = "\033[36m"
	green  = "\033[32m"
	red    = "\033[31m"
	yellow = "\033[33m"
	bold   = "\033[1m"
	reset  = "\033[0m"
)
