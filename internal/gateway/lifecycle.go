package gateway

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// UnitManager controls the service units the gateway runs as.
type UnitManager interface {
	Stop(ctx context.Context, unit string) error
	Start(ctx context.Context, unit string) error
	IsActive(ctx context.Context, unit string) (bool, error)
}

// CommandFunc runs an external command and returns its error.
type CommandFunc func(ctx context.Context, name string, args ...string) error

// RunCommand executes name with args, folding its output into the error on failure.
func RunCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s %v: %s", name, args, out)
	}
	return nil
}

// Systemctl drives units through the systemctl binary, optionally under sudo.
type Systemctl struct {
	Sudo bool
	Run  CommandFunc
}

func NewSystemctl(sudo bool) *Systemctl {
	return &Systemctl{Sudo: sudo, Run: RunCommand}
}

func (s *Systemctl) command(ctx context.Context, args ...string) error {
	if s.Sudo {
		return s.Run(ctx, "sudo", append([]string{"systemctl"}, args...)...)
	}
	return s.Run(ctx, "systemctl", args...)
}

func (s *Systemctl) Stop(ctx context.Context, unit string) error {
	return s.command(ctx, "stop", unit)
}

func (s *Systemctl) Start(ctx context.Context, unit string) error {
	return s.command(ctx, "start", unit)
}

func (s *Systemctl) IsActive(ctx context.Context, unit string) (bool, error) {
	err := s.command(ctx, "is-active", "--quiet", unit)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, err
}

// Lifecycle resets the gateway to a cold state before a run: every unit in StopUnits is
// stopped, the cache directory is removed and StartUnit is started again.
type Lifecycle struct {
	Manager   UnitManager
	StopUnits []string
	StartUnit string
	CacheDir  string
	Settle    time.Duration

	// Remove deletes the cache directory. Defaults to os.RemoveAll.
	Remove func(ctx context.Context, path string) error

	Log *zap.Logger
}

// SudoRemove deletes a path owned by the service user.
func SudoRemove(run CommandFunc) func(ctx context.Context, path string) error {
	return func(ctx context.Context, path string) error {
		return run(ctx, "sudo", "rm", "-rf", path)
	}
}

func (l *Lifecycle) Reset(ctx context.Context) error {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}

	// 1. Stop
	for _, unit := range l.StopUnits {
		log.Info("stopping gateway", zap.String("unit", unit))
		if err := l.Manager.Stop(ctx, unit); err != nil {
			return errors.Wrapf(err, "stop %s", unit)
		}
	}

	if l.Settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.Settle):
		}
	}

	for _, unit := range l.StopUnits {
		active, err := l.Manager.IsActive(ctx, unit)
		if err != nil {
			return errors.Wrapf(err, "check %s", unit)
		}
		if active {
			return errors.Errorf("failed to stop %s", unit)
		}
	}

	// 2. Cold cache
	if l.CacheDir != "" {
		log.Info("removing gateway cache", zap.String("dir", l.CacheDir))
		remove := l.Remove
		if remove == nil {
			remove = func(_ context.Context, path string) error { return os.RemoveAll(path) }
		}
		if err := remove(ctx, l.CacheDir); err != nil {
			return errors.Wrapf(err, "remove %s", l.CacheDir)
		}
	}

	// 3. Start
	if l.StartUnit != "" {
		log.Info("starting gateway", zap.String("unit", l.StartUnit))
		if err := l.Manager.Start(ctx, l.StartUnit); err != nil {
			return errors.Wrapf(err, "start %s", l.StartUnit)
		}
	}
	return nil
}
