// Package config loads todolist settings from TOML files, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIURL      = "http://localhost:5000"
	DefaultTimeout     = 10 * time.Second
	DefaultServerAddr  = ":5000"
	DefaultDBPath      = ".todolist/todolist.db"
	DefaultSessionTTL  = 7 * 24 * time.Hour
	ProjectConfigFile  = "todolist.toml"
	HiddenConfigFile   = ".todolist.toml"
	userConfigDirName  = "todolist"
	userConfigFileName = "config.toml"
)

// Config holds client, logging and reference-server settings.
type Config struct {
	APIURL   string   `toml:"api_url"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Timeout  Duration `toml:"timeout"`

	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`

	// Path of the explicit config file, if one was loaded.
	File string `toml:"-"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	DBPath         string   `toml:"db_path"`
	SnapshotPath   string   `toml:"snapshot_path"`
	AllowAnonymous bool     `toml:"allow_anonymous"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SessionTTL     Duration `toml:"session_ttl"`
}

// Duration decodes TOML strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func setDefaults(cfg *Config) {
	cfg.APIURL = DefaultAPIURL
	cfg.Timeout = Duration{DefaultTimeout}
	cfg.Log.Level = "info"
	cfg.Server.Addr = DefaultServerAddr
	cfg.Server.DBPath = DefaultDBPath
	cfg.Server.AllowAnonymous = true
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.SessionTTL = Duration{DefaultSessionTTL}
}

func finalizeConfig(cfg *Config) error {
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		return errors.New("api_url is required")
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q", cfg.APIURL)
	}
	if cfg.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout.Duration)
	}
	if cfg.Server.SessionTTL.Duration <= 0 {
		return fmt.Errorf("server.session_ttl must be positive, got %s", cfg.Server.SessionTTL.Duration)
	}
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Server.DBPath = expandPath(cfg.Server.DBPath)
	cfg.Server.SnapshotPath = expandPath(cfg.Server.SnapshotPath)
	return nil
}

// HasCredentials reports whether the client should log in before use.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
