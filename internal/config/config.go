package config

import "time"

type Config struct {
	Service ServiceConfig `toml:"service"`
	API     APIConfig     `toml:"api"`
	Monitor MonitorConfig `toml:"monitor"`
	PACS    PACSConfig    `toml:"pacs"`
	Log     LogConfig     `toml:"log"`
}

type ServiceConfig struct {
	Name        string `toml:"name"`
	DisplayName string `toml:"display_name"`
	Description string `toml:"description"`
	Startup     string `toml:"startup"` // "auto", "manual", "disabled"
	Username    string `toml:"username"`
}

type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type MonitorConfig struct {
	RootPath    string   `toml:"root_path"`
	DateFormat  string   `toml:"date_format"` // Go time layout
	Heartbeat   Duration `toml:"heartbeat"`
	StopTimeout Duration `toml:"stop_timeout"`
}

type PACSConfig struct {
	BaseURL       string   `toml:"base_url"`
	TokenURL      string   `toml:"token_url"`
	ClientID      string   `toml:"client_id"`
	ClientSecret  string   `toml:"client_secret"`
	Username      string   `toml:"username"`
	Password      string   `toml:"password"`
	Timeout       Duration `toml:"timeout"`
	MaxUploadKBps int      `toml:"max_upload_kbps"` // 0 = unlimited
	Include       []string `toml:"include"`
}

type LogConfig struct {
	Level      string `toml:"loglevel"`
	File       string `toml:"logfile"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Duration is a time.Duration that reads and writes as a TOML string ("10s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Addr returns the host:port the API listens on.
func (c APIConfig) Addr() string {
	return joinHostPort(c.Host, c.Port)
}

// BaseURL returns the http URL of the API.
func (c APIConfig) BaseURL() string {
	return "http://" + c.Addr()
}
