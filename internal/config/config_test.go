package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/moazrovne_dataset.csv", cfg.Dataset.Path)
	assert.Equal(t, "data/html", cfg.Cache.HTMLDir)
	assert.Equal(t, "data/images", cfg.Cache.MediaDir)
	assert.Equal(t, "http://moazrovne.net/q/", cfg.Remote.QuestionURL)
	assert.Equal(t, "http://moazrovne.net/chgk/", cfg.Remote.ArchiveURL)
	assert.Equal(t, 20*time.Second, cfg.Remote.Timeout())
	assert.Equal(t, time.Second, cfg.Remote.Delay())
	assert.Equal(t, 3000, cfg.Sweep.BufferThreshold)
	assert.Equal(t, 40, cfg.Sweep.MaxMissingStreak)
	assert.Equal(t, 25, cfg.Sweep.CheckpointInterval)
	assert.Equal(t, 140, cfg.Sweep.ArchivePages)
	assert.Equal(t, "data/harvest_runs.db", cfg.RunLog.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
dataset:
  path: /tmp/questions.csv
remote:
  delay_ms: 250
sweep:
  buffer_threshold: 2000
  max_missing_streak: 5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/questions.csv", cfg.Dataset.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Remote.Delay())
	assert.Equal(t, 2000, cfg.Sweep.BufferThreshold)
	assert.Equal(t, 5, cfg.Sweep.MaxMissingStreak)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep defaults.
	assert.Equal(t, 25, cfg.Sweep.CheckpointInterval)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
