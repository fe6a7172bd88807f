// Package app orchestrates installing and removing the service.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"uploadsvc/internal/config"
	"uploadsvc/internal/logger"
	"uploadsvc/internal/servicectl"
)

// Credentials select the account the service runs as. Empty means the
// platform default (LocalSystem on Windows, root under systemd).
type Credentials struct {
	Username string
	Password string
}

// ServiceOptions builds the registration for this executable. The service
// runs "<exe> run --config <path>" so it reads the installer's config no
// matter which account it runs under.
func ServiceOptions(cfg *config.Config, configPath string, cred Credentials) (servicectl.InstallOptions, error) {
	exe, err := os.Executable()
	if err != nil {
		return servicectl.InstallOptions{}, fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		return servicectl.InstallOptions{}, err
	}

	user := cred.Username
	if user == "" {
		user = cfg.Service.Username
	}
	return servicectl.InstallOptions{
		Executable:  exe,
		Args:        []string{"run", "--config", absConfig},
		DisplayName: cfg.Service.DisplayName,
		Description: cfg.Service.Description,
		Startup:     cfg.Service.Startup,
		Username:    user,
		Password:    cred.Password,
	}, nil
}

// Install makes sure the config file exists and registers the service.
func Install(ctx context.Context, ctrl servicectl.Controller, cfg *config.Config, configPath string, cred Credentials) error {
	if configPath == "" {
		appDir, err := config.EnsureConfig(false)
		if err != nil {
			return fmt.Errorf("initialize configuration: %w", err)
		}
		configPath = filepath.Join(appDir, "config.toml")
	}

	opts, err := ServiceOptions(cfg, configPath, cred)
	if err != nil {
		return err
	}
	logger.Info("Registering service %s: %s %v", ctrl.Name(), opts.Executable, opts.Args)
	if err := ctrl.Install(ctx, opts); err != nil {
		return fmt.Errorf("install service %s: %w", ctrl.Name(), err)
	}
	logger.Info("Service %s installed (startup %s)", ctrl.Name(), opts.Startup)
	return nil
}
