package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/spinload/internal/loader"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, loader.Identity, cfg.TransformValue())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spinload.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 64\ntransform: sign\nshuffle: false\n"), 0o600))

	t.Setenv("SPINLOAD_BATCH_SIZE", "128")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.BatchSize, "environment wins over the file")
	assert.Equal(t, loader.Sign, cfg.TransformValue())
	assert.False(t, cfg.Shuffle)
	assert.Equal(t, "info", cfg.LogLevel, "unset values keep their defaults")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SPINLOAD_EPOCHS=3\nSPINLOAD_WORKERS=2\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("SPINLOAD_EPOCHS")
		_ = os.Unsetenv("SPINLOAD_WORKERS")
	})

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Epochs)
	assert.Equal(t, 2, cfg.Parallel().NumWorkers)
	assert.True(t, cfg.Parallel().Enabled)
}

func TestLoadMissingFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"epochs", func(c *Config) { c.Epochs = 0 }, "epochs"},
		{"transform", func(c *Config) { c.Transform = "phase" }, "transform"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}

	err := Config{BatchSize: 0}.Validate()
	assert.ErrorIs(t, err, ErrBatchSize)
}
