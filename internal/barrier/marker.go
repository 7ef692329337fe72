package barrier

import (
	"os"

	"github.com/pkg/errors"
)

// Touch creates the marker that releases run. An existing marker is left alone.
func Touch(dir, prefix string, run int) (string, error) {
	path := MarkerPath(dir, prefix, run)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return path, errors.Wrapf(err, "create marker for run %d", run)
	}
	return path, f.Close()
}

// Clear removes the marker for run so a new series cannot be released by a stale file.
func Clear(dir, prefix string, run int) (string, error) {
	path := MarkerPath(dir, prefix, run)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return path, errors.Wrapf(err, "remove marker for run %d", run)
	}
	return path, nil
}
