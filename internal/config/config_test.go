package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SETTLEUP_ADDR", "DB_DRIVER", "DB_PATH", "DB_DSN", "REJECT_POLICY", "LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "abort", cfg.RejectPolicy)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "settleup.yaml", `
addr: ":9090"
database:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/settleup"
reject_policy: skip
`)

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/settleup", cfg.Database.DSN)
	assert.Equal(t, "skip", cfg.RejectPolicy)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep their defaults")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "settleup.yaml", "addr: \":9090\"\nlog_level: warn\n")
	envFile := writeFile(t, ".env", "SETTLEUP_ADDR=:7070\nDB_PATH=/tmp/from-dotenv.db\nLOG_LEVEL=error\n")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr, ".env beats the YAML file")
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.LogLevel, "process env beats .env")

	_, exported := os.LookupEnv("DB_PATH")
	assert.False(t, exported, ".env values must not leak into the process environment")
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	missingEnv := filepath.Join(t.TempDir(), "missing.env")

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"), missingEnv)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "addr: [\n"), missingEnv)
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Load(writeFile(t, "pg.yaml", "database:\n  driver: postgres\n"), missingEnv)
		assert.ErrorContains(t, err, "unsupported database driver")
	})

	t.Run("mysql without dsn", func(t *testing.T) {
		_, err := Load(writeFile(t, "my.yaml", "database:\n  driver: mysql\n"), missingEnv)
		assert.ErrorContains(t, err, "dsn is required")
	})
}
