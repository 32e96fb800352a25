package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendSandbox = "sandbox"
	BackendHTTP    = "http"
)

// Config holds application configuration.
type Config struct {
	Store   StoreConfig
	Sandbox SandboxConfig
	Serve   ServeConfig
	UI      UIConfig
	Log     LogConfig
}

// StoreConfig selects where attributes come from.
type StoreConfig struct {
	Backend  string
	BaseURL  string `mapstructure:"base_url"`
	TokenEnv string `mapstructure:"token_env"`
	Profile  string
}

// SandboxConfig holds the local sqlite twin settings.
type SandboxConfig struct {
	DatabasePath   string `mapstructure:"database_path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	Username       string
	Secret         string
}

type ServeConfig struct {
	Addr string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Timezone       string
	DateFormat     string `mapstructure:"date_format"`
	DateTimeFormat string `mapstructure:"datetime_format"`
}

type LogConfig struct {
	Level string
	Path  string
}

// Location resolves the configured timezone, falling back to local time.
func (u UIConfig) Location() *time.Location {
	if u.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load reads configuration from file and env. Env var overrides use prefix ATTREDIT_.
func Load() (Config, error) {
	v := viper.New()

	home := os.Getenv("HOME")
	v.SetDefault("store.backend", BackendSandbox)
	v.SetDefault("store.base_url", "http://localhost:8089")
	v.SetDefault("store.token_env", "ATTREDIT_TOKEN")
	v.SetDefault("store.profile", "default")
	v.SetDefault("sandbox.database_path", filepath.Join(home, ".local", "share", "attredit", "sandbox.db"))
	v.SetDefault("sandbox.migrations_path", "internal/database/migrations")
	v.SetDefault("sandbox.username", "demo")
	v.SetDefault("sandbox.secret", "attredit-dev-secret")
	v.SetDefault("serve.addr", ":8089")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("ui.date_format", "02 Jan 2006")
	v.SetDefault("ui.datetime_format", "02 Jan 2006 15:04")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "attredit", "attredit.log"))

	v.SetConfigType("toml")

	cfgPath := os.Getenv("ATTREDIT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "attredit"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("ATTREDIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	switch c.Store.Backend {
	case BackendSandbox, BackendHTTP:
	default:
		return Config{}, fmt.Errorf("store.backend must be %q or %q, got %q", BackendSandbox, BackendHTTP, c.Store.Backend)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// Tokens are never written here; they live in the secrets file or the environment.
func Save(cfg Config) error {
	path := os.Getenv("ATTREDIT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "attredit", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("store.backend", cfg.Store.Backend)
	v.Set("store.base_url", cfg.Store.BaseURL)
	v.Set("store.token_env", cfg.Store.TokenEnv)
	v.Set("store.profile", cfg.Store.Profile)
	v.Set("sandbox.database_path", cfg.Sandbox.DatabasePath)
	v.Set("sandbox.migrations_path", cfg.Sandbox.MigrationsPath)
	v.Set("sandbox.username", cfg.Sandbox.Username)
	v.Set("sandbox.secret", cfg.Sandbox.Secret)
	v.Set("serve.addr", cfg.Serve.Addr)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.datetime_format", cfg.UI.DateTimeFormat)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.path", cfg.Log.Path)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
