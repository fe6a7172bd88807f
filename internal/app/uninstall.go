package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"uploadsvc/internal/config"
	"uploadsvc/internal/logger"
	"uploadsvc/internal/servicectl"
)

// Uninstall stops the service (best effort) and deletes its registration.
// With purge the config dir and shell completions go too.
func Uninstall(ctx context.Context, ctrl servicectl.Controller, purge bool) error {
	logger.Info("Removing service %s...", ctrl.Name())

	if err := servicectl.IgnoreNoop(ctrl.Stop(ctx)); err != nil && !errors.Is(err, servicectl.ErrNotInstalled) {
		logger.Warn("Stop failed, removing anyway: %v", err)
	}

	err := ctrl.Remove(ctx)
	switch {
	case errors.Is(err, servicectl.ErrNotInstalled):
		logger.Info("Service %s was not installed", ctrl.Name())
		err = nil
	case err != nil:
		return fmt.Errorf("remove service %s: %w", ctrl.Name(), err)
	default:
		logger.Info("Service %s removed", ctrl.Name())
	}

	if purge {
		purgeConfig()
		removeCompletions()
	}
	return err
}

func purgeConfig() {
	appDir, err := config.GetAppDataDir()
	if err != nil {
		return
	}
	if _, err := os.Stat(appDir); err == nil {
		logger.Info("Removing config directory: %s", appDir)
		if err := os.RemoveAll(appDir); err != nil {
			logger.Warn("Failed to remove config directory: %v", err)
		}
	}
}

// Shells the completion command can install for.
var Shells = []string{"bash", "zsh", "fish", "powershell"}

// CompletionPath is where the completion script for shell is installed on
// this platform.
func CompletionPath(shell, home string) string {
	switch shell {
	case "bash":
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".bash_completion.d", "uploadsvc")
		}
		return filepath.Join(home, ".local", "share", "bash-completion", "completions", "uploadsvc")
	case "zsh":
		return filepath.Join(home, ".zfunc", "_uploadsvc")
	case "fish":
		return filepath.Join(home, ".config", "fish", "completions", "uploadsvc.fish")
	case "powershell":
		if runtime.GOOS == "windows" {
			return filepath.Join(home, "Documents", "PowerShell", "Scripts", "uploadsvc-completion.ps1")
		}
		return filepath.Join(home, ".config", "powershell", "uploadsvc-completion.ps1")
	}
	return ""
}

// CompletionPaths lists every installed-script location.
func CompletionPaths(home string) []string {
	paths := make([]string, 0, len(Shells))
	for _, sh := range Shells {
		paths = append(paths, CompletionPath(sh, home))
	}
	return paths
}

func removeCompletions() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for _, p := range CompletionPaths(home) {
		if _, err := os.Stat(p); err == nil {
			os.Remove(p)
			logger.Debug("Removed completion script: %s", p)
		}
	}
}
