package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"uploadsvc/internal/logger"
)

const appName = "uploadsvc"

// LoadConfig reads the TOML file at path over the compiled defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	return &cfg, nil
}

// Load is LoadConfig followed by .env loading, environment overrides and validation.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	LoadDotEnv()
	ApplyEnv(cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory and from next to the
// executable. Variables already present in the environment win.
func LoadDotEnv() {
	candidates := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), ".env"))
	}
	loadDotEnvFiles(candidates...)
}

func loadDotEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Warn("Ignoring %s: %v", p, err)
		}
	}
}

// ApplyEnv overlays environment variables on cfg. Malformed numbers are ignored.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	str("SERVICE_NAME", &cfg.Service.Name)
	str("SERVICE_API_HOST", &cfg.API.Host)
	num("SERVICE_API_PORT", &cfg.API.Port)
	str("SERVICE_ROOT_PATH", &cfg.Monitor.RootPath)
	str("PACS_BASE_URL", &cfg.PACS.BaseURL)
	str("PACS_TOKEN_URL", &cfg.PACS.TokenURL)
	str("PACS_CLIENT_ID", &cfg.PACS.ClientID)
	str("PACS_CLIENT_SECRET", &cfg.PACS.ClientSecret)
	str("PACS_USERNAME", &cfg.PACS.Username)
	str("PACS_PASSWORD", &cfg.PACS.Password)
	num("PACS_MAX_UPLOAD_BPS", &cfg.PACS.MaxUploadKBps)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.Name) == "" {
		return errors.New("service.name must not be empty")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Monitor.Heartbeat <= 0 {
		return errors.New("monitor.heartbeat must be positive")
	}
	switch c.Service.Startup {
	case "auto", "manual", "disabled":
	default:
		return fmt.Errorf("service.startup %q must be auto, manual or disabled", c.Service.Startup)
	}
	return nil
}

func (c *Config) normalize() {
	if c.Monitor.RootPath == "" {
		c.Monitor.RootPath = defaultRootPath()
	}
	if c.Monitor.DateFormat == "" {
		c.Monitor.DateFormat = "02-01-2006"
	}
	if c.Monitor.StopTimeout <= 0 {
		c.Monitor.StopTimeout = DefaultConfig().Monitor.StopTimeout
	}
	if c.Service.Startup == "" {
		c.Service.Startup = "auto"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 1
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = 0
	}
}

// EnsureConfig creates the app data dir and writes the default config file
// when missing (or always, with force). It returns the app data dir.
func EnsureConfig(force bool) (string, error) {
	appDir, err := GetAppDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(appDir, 0700); err != nil {
		return "", err
	}
	if err := ensureFile(filepath.Join(appDir, "config.toml"), DefaultConfigTOML, force); err != nil {
		return "", err
	}
	return appDir, nil
}

func ensureFile(path, content string, force bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) || force {
		if force {
			fmt.Printf("Overwriting file: %s\n", path)
		} else {
			fmt.Printf("Creating default file: %s\n", path)
		}
		return os.WriteFile(path, []byte(content), 0600)
	} else if err != nil {
		return err
	}
	return nil
}

// DefaultPath is the config.toml inside the app data dir.
func DefaultPath() (string, error) {
	appDir, err := GetAppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(appDir, "config.toml"), nil
}

func GetAppDataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}
