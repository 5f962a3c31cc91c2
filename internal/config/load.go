package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load builds the configuration in priority order:
// 1. Defaults
// 2. User config file (~/.config/todolist/config.toml)
// 3. Project config file (todolist.toml or .todolist.toml in the working directory)
// 4. The file named by -config
// 5. Environment variables
// 6. CLI flags
//
// Flags are registered on fs and parsed from args; fs.Args() holds the rest.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
	}

	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
	}

	if path := explicitConfigPath(args); path != "" {
		if err := loadConfigFile(cfg, expandPath(path)); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		cfg.File = path
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return cfg, nil
}

func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func findUserConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, userConfigDirName, userConfigFileName)
	if fileExists(path) {
		return path
	}
	return ""
}

func findProjectConfigFile() string {
	for _, name := range []string{ProjectConfigFile, HiddenConfigFile} {
		if fileExists(name) {
			return name
		}
	}
	return ""
}

// explicitConfigPath scans args for -config/--config ahead of flag parsing
// so the file can be applied before the flags that override it.
func explicitConfigPath(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			return ""
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TODOLIST_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("TODOLIST_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("TODOLIST_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("TODOLIST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TODOLIST_TIMEOUT: %w", err)
		}
		cfg.Timeout = Duration{d}
	}
	if v := os.Getenv("TODOLIST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TODOLIST_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("TODOLIST_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TODOLIST_DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
	return nil
}

func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	if fs == nil {
		fs = flag.NewFlagSet("todolist", flag.ContinueOnError)
	}
	fs.String("config", cfg.File, "Path to a TOML config file")
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "Base URL of the task API")
	fs.StringVar(&cfg.Username, "username", cfg.Username, "Account to log in with")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "Password for -username")
	fs.DurationVar(&cfg.Timeout.Duration, "timeout", cfg.Timeout.Duration, "HTTP request timeout")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Write logs to this file")
	verbose := fs.Bool("verbose", false, "Shorthand for -log-level=debug")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
