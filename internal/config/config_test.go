package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatebench/internal/barrier"
	"gatebench/internal/runner"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Bench.Runs)
	assert.Equal(t, 50, cfg.Bench.BlobSizeMiB)
	assert.Equal(t, runner.DefaultEndpoint, cfg.Gateway.UploadURL)
	assert.Equal(t, time.Second, cfg.Bench.Settle)
	assert.Equal(t, 40*time.Millisecond, cfg.Barrier.Interval)
	assert.Equal(t, "whypfs-gateway", cfg.StartUnit())
	assert.Equal(t, "/mnt/mfs/.whypfs", cfg.CacheDir())
	assert.Equal(t, 1.0, cfg.Correction())

	m, ok := cfg.Signal().(barrier.FileMarker)
	require.True(t, ok)
	assert.Equal(t, "/tmp/trigger-2", m.Path(2))
}

func TestLabelSelectsUnit(t *testing.T) {
	v := newViper()
	v.Set("bench.label", "SeaweedFS")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "whypfs-gateway-seaweed", cfg.StartUnit())
	assert.Equal(t, "/mnt/seaweedfs/.whypfs", cfg.CacheDir())
}

func TestSequentialMode(t *testing.T) {
	v := newViper()
	v.Set("bench.mode", runner.ModeSequential)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 1.049, cfg.Correction())
	assert.IsType(t, barrier.None{}, cfg.Signal())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gatebench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bench:
  runs: 3
  workers: 8
  settle: 250ms
barrier:
  backend: watch
  dir: `+t.TempDir()+`
  timeout: 1m
`), 0644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Bench.Runs)
	assert.Equal(t, 8, cfg.Runner().Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Runner().Settle)

	w, ok := cfg.Signal().(barrier.Watch)
	require.True(t, ok)
	assert.Equal(t, time.Minute, w.Timeout)
}

func TestValidateCollectsErrors(t *testing.T) {
	v := newViper()
	v.Set("bench.runs", 0)
	v.Set("bench.workers", 0)
	v.Set("barrier.dir", filepath.Join(t.TempDir(), "missing"))
	v.Set("gateway.reset", true)
	v.Set("gateway.manager", "upstart")

	_, err := Load(v)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "runs must be at least 1")
	assert.Contains(t, msg, "workers must be at least 1")
	assert.Contains(t, msg, "barrier dir")
	assert.Contains(t, msg, "unknown service manager")
}

func TestUnknownBackend(t *testing.T) {
	v := newViper()
	v.Set("barrier.backend", "socket")
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown barrier backend")
}
