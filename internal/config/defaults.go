package config

import (
	_ "embed"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

//go:embed config.default.toml
var DefaultConfigTOML string

const (
	DefaultServiceName = "TestUploaderService"
	DefaultAPIHost     = "127.0.0.1"
	DefaultAPIPort     = 8085
)

// DefaultConfig returns the compiled-in configuration. The embedded
// config.default.toml documents the same values for users.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			Name:        DefaultServiceName,
			DisplayName: "Test Uploader Service",
			Description: "Background folder monitor and PACS uploader.",
			Startup:     "auto",
		},
		API: APIConfig{
			Host: DefaultAPIHost,
			Port: DefaultAPIPort,
		},
		Monitor: MonitorConfig{
			RootPath:    defaultRootPath(),
			DateFormat:  "02-01-2006",
			Heartbeat:   Duration(10 * time.Second),
			StopTimeout: Duration(15 * time.Second),
		},
		PACS: PACSConfig{
			Timeout: Duration(15 * time.Second),
			Include: []string{"*.dcm"},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  1,
			MaxBackups: 5,
		},
	}
}

func defaultRootPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
