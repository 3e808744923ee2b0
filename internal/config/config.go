// Package config loads server settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the settleup server configuration.
type Config struct {
	Addr     string         `yaml:"addr"`
	Database DatabaseConfig `yaml:"database"`

	// RejectPolicy is "abort" or "skip".
	RejectPolicy string `yaml:"reject_policy"`
	LogLevel     string `yaml:"log_level"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or mysql
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // mysql data source name
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr: ":8080",
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/settleup.db",
		},
		RejectPolicy: "abort",
		LogLevel:     "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the given .env files and finally the environment.
// Missing .env files are ignored; with no envFiles, ./.env is tried.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	cfg.applyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	out := make(map[string]string)
	// Earlier files win, matching godotenv.Load.
	for i := len(files) - 1; i >= 0; i-- {
		vars, err := godotenv.Read(files[i])
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", files[i], err)
		}
		for k, v := range vars {
			out[k] = v
		}
	}
	return out, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Addr, "SETTLEUP_ADDR")
	set(&c.Database.Driver, "DB_DRIVER")
	set(&c.Database.Path, "DB_PATH")
	set(&c.Database.DSN, "DB_DSN")
	set(&c.RejectPolicy, "REJECT_POLICY")
	set(&c.LogLevel, "LOG_LEVEL")
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is required")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "mysql":
		if c.Database.DSN == "" {
			return errors.New("config: database.dsn is required for mysql")
		}
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	return nil
}
