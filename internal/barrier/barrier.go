// Package barrier provides the start signal that lines up uploads across many independently
// launched benchmark processes.
package barrier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultDir      = "/tmp"
	DefaultPrefix   = "trigger-"
	DefaultInterval = 40 * time.Millisecond
)

// ErrTimeout is returned when an optional Timeout elapses before the signal arrives.
var ErrTimeout = errors.New("barrier: timed out waiting for start signal")

// Signal blocks until the external driver releases the given run.
type Signal interface {
	Wait(ctx context.Context, run int) error
}

// Func adapts a plain function to Signal.
type Func func(ctx context.Context, run int) error

func (f Func) Wait(ctx context.Context, run int) error { return f(ctx, run) }

// None releases every run immediately.
type None struct{}

func (None) Wait(context.Context, int) error { return nil }

// MarkerPath is the file whose presence releases a run, e.g. /tmp/trigger-3.
func MarkerPath(dir, prefix string, run int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d", prefix, run))
}

// CheckDir fails if dir cannot hold marker files.
func CheckDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(err, "barrier dir")
	}
	if !st.IsDir() {
		return errors.Errorf("barrier dir %s is not a directory", dir)
	}
	return nil
}

// FileMarker polls for the marker file on a fixed interval. A zero Timeout waits forever.
type FileMarker struct {
	Dir      string
	Prefix   string
	Interval time.Duration
	Timeout  time.Duration
}

func NewFileMarker(dir string) FileMarker {
	return FileMarker{Dir: dir, Prefix: DefaultPrefix, Interval: DefaultInterval}
}

func (m FileMarker) Path(run int) string {
	return MarkerPath(m.Dir, m.Prefix, run)
}

func (m FileMarker) Wait(ctx context.Context, run int) error {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, m.Timeout, ErrTimeout)
		defer cancel()
	}

	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	path := m.Path(run)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := exists(path)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
		}
	}
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat marker %s", path)
}
