package cmd

import (
	"runtime"

	"uploadsvc/internal/config"
)

type moduleStatus struct {
	Name    string
	Enabled bool
}

func getModuleStatus(cfg *config.Config) []moduleStatus {
	serviceBackend := "System Service (unsupported platform)"
	switch runtime.GOOS {
	case "windows":
		serviceBackend = "System Service (Windows SCM)"
	case "linux":
		serviceBackend = "System Service (systemd)"
	}
	supported := runtime.GOOS == "windows" || runtime.GOOS == "linux"

	pacsEnabled := cfg != nil && cfg.PACS.BaseURL != ""
	return []moduleStatus{
		{"Standard (Core)", true},
		{serviceBackend, supported},
		{"REST API + Metrics", true},
		{"PACS Upload", pacsEnabled},
		{"Monitor UI", true},
	}
}
