package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *cfg, DefaultConfig())

	_, err = os.Stat(path)
	assert.NilError(t, err, "defaults should be written to disk")
}

func TestLoadConfig_FillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"defaultUser":"ada","cullExcludeDomains":[]}`), 0644))

	cfg, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.DefaultUser, "ada")
	assert.Equal(t, cfg.LogLevel, "info")
	assert.Equal(t, cfg.QuickAddFolder, "Read Later")
	assert.Assert(t, is.Len(cfg.CullExcludeDomains, 0), "an explicit empty list is kept")
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{`), 0644))

	_, err := LoadConfig(path)
	assert.Assert(t, err != nil)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	want := DefaultConfig()
	want.RedisAddr = "localhost:6379"

	assert.NilError(t, SaveConfig(path, &want))
	got, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *got, want)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvUser, "grace")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvRedisAddr, "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, cfg.DefaultUser, "grace")
	assert.Equal(t, cfg.LogLevel, "debug")
	assert.Equal(t, cfg.RedisAddr, "", "empty variables do not override")
	assert.Equal(t, cfg.LogFormat, "text")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	assert.NilError(t, os.WriteFile(envFile, []byte("TORA_DB=/tmp/from-dotenv.db\nTORA_USER=dotenv\n"), 0644))

	t.Setenv(EnvDBPath, "")
	os.Unsetenv(EnvDBPath)
	t.Setenv(EnvUser, "already-set")

	assert.NilError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, os.Getenv(EnvDBPath), "/tmp/from-dotenv.db")
	assert.Equal(t, os.Getenv(EnvUser), "already-set", "existing variables win")
}
