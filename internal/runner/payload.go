package runner

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// PayloadName returns the file name used by a worker slot, e.g. testfile-007.bin.
func PayloadName(index int) string {
	return fmt.Sprintf("testfile-%03d.bin", index)
}

// GeneratePayload writes sizeMiB of random bytes to the worker's payload file in dir,
// replacing whatever was there before. It returns the path written.
func GeneratePayload(dir string, index, sizeMiB int) (string, error) {
	path := filepath.Join(dir, PayloadName(index))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return path, errors.Wrap(err, "create payload")
	}

	w := bufio.NewWriterSize(f, MiB)
	size := int64(sizeMiB) * MiB
	if _, err := io.CopyN(w, rand.Reader, size); err != nil {
		f.Close()
		return path, errors.Wrapf(err, "write payload %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return path, errors.Wrapf(err, "flush payload %s", path)
	}
	if err := f.Close(); err != nil {
		return path, errors.Wrapf(err, "close payload %s", path)
	}
	return path, nil
}
