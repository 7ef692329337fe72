package barrier

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watch waits for the marker using filesystem notifications instead of polling.
type Watch struct {
	Dir     string
	Prefix  string
	Timeout time.Duration
}

func NewWatch(dir string) Watch {
	return Watch{Dir: dir, Prefix: DefaultPrefix}
}

func (w Watch) Wait(ctx context.Context, run int) error {
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, w.Timeout, ErrTimeout)
		defer cancel()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(w.Dir); err != nil {
		return errors.Wrapf(err, "watch %s", w.Dir)
	}

	path := MarkerPath(w.Dir, w.Prefix, run)

	// The marker may have been created before the watch was registered.
	ok, err := exists(path)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(ev.Name) == path && ev.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			return errors.Wrap(err, "watch marker")
		}
	}
}
