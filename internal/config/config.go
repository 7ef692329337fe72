// Package config maps the viper key space onto the settings of a benchmark invocation.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"gatebench/internal/barrier"
	"gatebench/internal/gateway"
	"gatebench/internal/report"
	"gatebench/internal/runner"
)

const (
	BackendFile  = "file"
	BackendWatch = "watch"
	BackendNone  = "none"

	ManagerSystemctl = "systemctl"
	ManagerDBus      = "dbus"

	// DefaultKey is the fallback entry of the per-label unit and cache maps.
	DefaultKey = "default"
)

type Config struct {
	Bench   Bench   `mapstructure:"bench"`
	Gateway Gateway `mapstructure:"gateway"`
	Barrier Barrier `mapstructure:"barrier"`
	Report  Report  `mapstructure:"report"`
	History History `mapstructure:"history"`
	Log     Log     `mapstructure:"log"`
}

type Bench struct {
	Runs        int           `mapstructure:"runs"`
	Workers     int           `mapstructure:"workers"`
	BlobSizeMiB int           `mapstructure:"blob_size"`
	Label       string        `mapstructure:"label"`
	Silent      bool          `mapstructure:"silent"`
	Mode        string        `mapstructure:"mode"`
	SourceFile  string        `mapstructure:"source_file"`
	WorkDir     string        `mapstructure:"work_dir"`
	Settle      time.Duration `mapstructure:"settle"`
	Correction  float64       `mapstructure:"correction"` // sequential mode only
	TUI         bool          `mapstructure:"tui"`
}

type Gateway struct {
	UploadURL     string            `mapstructure:"upload_url"`
	FormField     string            `mapstructure:"form_field"`
	ProbeBase     string            `mapstructure:"probe_base"`
	ProbeCID      string            `mapstructure:"probe_cid"`
	ProbeInterval time.Duration     `mapstructure:"probe_interval"`
	Wait          bool              `mapstructure:"wait"`
	UploadTimeout time.Duration     `mapstructure:"upload_timeout"`
	Reset         bool              `mapstructure:"reset"`
	Manager       string            `mapstructure:"manager"`
	Sudo          bool              `mapstructure:"sudo"`
	StopUnits     []string          `mapstructure:"stop_units"`
	Units         map[string]string `mapstructure:"units"`
	CacheDirs     map[string]string `mapstructure:"cache_dirs"`
}

type Barrier struct {
	Backend  string        `mapstructure:"backend"`
	Dir      string        `mapstructure:"dir"`
	Prefix   string        `mapstructure:"prefix"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"` // 0 waits forever
}

type Report struct {
	Save bool   `mapstructure:"save"`
	Dir  string `mapstructure:"dir"`
	Out  string `mapstructure:"out"` // CSV prefix for per-upload outcomes
}

type History struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers a default for every key so env vars and config files can
// override any of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bench.runs", 1)
	v.SetDefault("bench.workers", 1)
	v.SetDefault("bench.blob_size", 50)
	v.SetDefault("bench.label", "MooseFS")
	v.SetDefault("bench.silent", false)
	v.SetDefault("bench.mode", runner.ModeParallel)
	v.SetDefault("bench.source_file", "")
	v.SetDefault("bench.work_dir", ".")
	v.SetDefault("bench.settle", time.Second)
	v.SetDefault("bench.correction", report.SequentialCorrection)
	v.SetDefault("bench.tui", false)

	v.SetDefault("gateway.upload_url", runner.DefaultEndpoint)
	v.SetDefault("gateway.form_field", "file")
	v.SetDefault("gateway.probe_base", gateway.DefaultBase)
	v.SetDefault("gateway.probe_cid", gateway.ProbeCID)
	v.SetDefault("gateway.probe_interval", gateway.ProbeInterval)
	v.SetDefault("gateway.wait", true)
	v.SetDefault("gateway.upload_timeout", time.Duration(0))
	v.SetDefault("gateway.reset", false)
	v.SetDefault("gateway.manager", ManagerSystemctl)
	v.SetDefault("gateway.sudo", true)
	v.SetDefault("gateway.stop_units", []string{"whypfs-gateway", "whypfs-gateway-seaweed"})
	v.SetDefault("gateway.units", map[string]string{
		"moosefs":  "whypfs-gateway",
		DefaultKey: "whypfs-gateway-seaweed",
	})
	v.SetDefault("gateway.cache_dirs", map[string]string{
		"moosefs":  "/mnt/mfs/.whypfs",
		DefaultKey: "/mnt/seaweedfs/.whypfs",
	})

	v.SetDefault("barrier.backend", BackendFile)
	v.SetDefault("barrier.dir", barrier.DefaultDir)
	v.SetDefault("barrier.prefix", barrier.DefaultPrefix)
	v.SetDefault("barrier.interval", barrier.DefaultInterval)
	v.SetDefault("barrier.timeout", time.Duration(0))

	v.SetDefault("report.save", false)
	v.SetDefault("report.dir", ".")
	v.SetDefault("report.out", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")

	v.SetDefault("log.level", "info")
}

// Load unmarshals and validates. Invalid configuration is fatal before any run starts.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decode config")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var err error
	if c.Bench.Runs < 1 {
		err = multierr.Append(err, errors.Errorf("runs must be at least 1, got %d", c.Bench.Runs))
	}
	err = multierr.Append(err, c.Runner().Validate())
	if c.Bench.Correction <= 0 {
		err = multierr.Append(err, errors.Errorf("correction factor must be positive, got %v", c.Bench.Correction))
	}

	switch c.Barrier.Backend {
	case BackendFile, BackendWatch:
		if c.Bench.Mode == runner.ModeParallel {
			err = multierr.Append(err, barrier.CheckDir(c.Barrier.Dir))
		}
	case BackendNone:
	default:
		err = multierr.Append(err, errors.Errorf("unknown barrier backend %q", c.Barrier.Backend))
	}

	if c.Gateway.Reset {
		switch c.Gateway.Manager {
		case ManagerSystemctl, ManagerDBus:
		default:
			err = multierr.Append(err, errors.Errorf("unknown service manager %q", c.Gateway.Manager))
		}
		if c.StartUnit() == "" {
			err = multierr.Append(err, errors.Errorf("no gateway unit configured for label %q", c.Bench.Label))
		}
	}
	return err
}

// Runner is the immutable per-invocation configuration of the coordinator.
func (c Config) Runner() runner.Config {
	workDir := c.Bench.WorkDir
	if workDir == "" {
		workDir = "."
	}
	return runner.Config{
		Workers:       c.Bench.Workers,
		BlobSizeMiB:   c.Bench.BlobSizeMiB,
		Label:         c.Bench.Label,
		Silent:        c.Bench.Silent,
		Mode:          c.Bench.Mode,
		Endpoint:      c.Gateway.UploadURL,
		FormField:     c.Gateway.FormField,
		WorkDir:       filepath.Clean(workDir),
		SourceFile:    c.Bench.SourceFile,
		Settle:        c.Bench.Settle,
		UploadTimeout: c.Gateway.UploadTimeout,
	}
}

// Correction is the factor applied to per-run rates: the configured value in sequential
// mode, 1 otherwise.
func (c Config) Correction() float64 {
	if c.Bench.Mode == runner.ModeSequential {
		return c.Bench.Correction
	}
	return 1
}

func lookup(m map[string]string, label string) string {
	if v, ok := m[strings.ToLower(label)]; ok {
		return v
	}
	return m[DefaultKey]
}

// StartUnit is the unit that serves the storage backend named by the label.
func (c Config) StartUnit() string {
	return lookup(c.Gateway.Units, c.Bench.Label)
}

// CacheDir is the gateway state directory wiped on reset.
func (c Config) CacheDir() string {
	return lookup(c.Gateway.CacheDirs, c.Bench.Label)
}

// Signal builds the start barrier. Sequential runs are never synchronized.
func (c Config) Signal() barrier.Signal {
	if c.Bench.Mode == runner.ModeSequential {
		return barrier.None{}
	}
	switch c.Barrier.Backend {
	case BackendWatch:
		return barrier.Watch{Dir: c.Barrier.Dir, Prefix: c.Barrier.Prefix, Timeout: c.Barrier.Timeout}
	case BackendNone:
		return barrier.None{}
	default:
		return barrier.FileMarker{
			Dir:      c.Barrier.Dir,
			Prefix:   c.Barrier.Prefix,
			Interval: c.Barrier.Interval,
			Timeout:  c.Barrier.Timeout,
		}
	}
}
