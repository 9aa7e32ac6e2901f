package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the client configuration. Session credentials live in the
// session store, not here.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Receipts ReceiptsConfig `yaml:"receipts"`
	Paths    PathsConfig    `yaml:"paths"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the endpoints of the messaging service.
type ServerConfig struct {
	APIURL    string        `yaml:"api_url"`
	SocketURL string        `yaml:"socket_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ReceiptsConfig tunes read-receipt debouncing.
type ReceiptsConfig struct {
	MinSpacing  time.Duration `yaml:"min_spacing"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// PathsConfig holds local storage locations.
type PathsConfig struct {
	Data string `yaml:"data"`
}

// LogConfig holds logger settings. The UI owns the terminal, so logs go to
// a file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultDir returns ~/.baatcheet.
func DefaultDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".baatcheet")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yml")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	dir := DefaultDir()
	return &Config{
		Server: ServerConfig{
			APIURL:    "http://localhost:3000",
			SocketURL: "ws://localhost:3000/ws",
			Timeout:   15 * time.Second,
		},
		Receipts: ReceiptsConfig{
			MinSpacing:  1500 * time.Millisecond,
			SettleDelay: 300 * time.Millisecond,
		},
		Paths: PathsConfig{
			Data: dir,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "baatcheet.log"),
		},
	}
}

// Load reads a YAML config file over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BAATCHEET_API_URL"); v != "" {
		cfg.Server.APIURL = v
	}
	if v := os.Getenv("BAATCHEET_SOCKET_URL"); v != "" {
		cfg.Server.SocketURL = v
	}
	if v := os.Getenv("BAATCHEET_DATA_DIR"); v != "" {
		cfg.Paths.Data = v
	}
	if v := os.Getenv("BAATCHEET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BAATCHEET_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.APIURL == "" {
		return fmt.Errorf("server.api_url is required")
	}
	if c.Server.SocketURL == "" {
		return fmt.Errorf("server.socket_url is required")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Receipts.MinSpacing <= 0 || c.Receipts.SettleDelay <= 0 {
		return fmt.Errorf("receipts.min_spacing and receipts.settle_delay must be positive")
	}
	if c.Paths.Data == "" {
		return fmt.Errorf("paths.data is required")
	}
	return nil
}

// SessionDBPath is the sqlite file holding the stored login.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Paths.Data, "session.db")
}

// ContactsDir is the directory of contact YAML files.
func (c *Config) ContactsDir() string {
	return filepath.Join(c.Paths.Data, "contacts")
}
