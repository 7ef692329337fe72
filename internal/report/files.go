package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// StampLayout matches the timestamp embedded in report file names.
const StampLayout = "2006-01-02T15-04-05"

// Files writes reports next to each other under one timestamp taken when the benchmark
// started, so a series can be found by name.
type Files struct {
	Dir   string
	Label string
	Stamp time.Time
}

func NewFiles(dir, label string, stamp time.Time) *Files {
	return &Files{Dir: dir, Label: label, Stamp: stamp}
}

func (f *Files) name(suffix string) string {
	return filepath.Join(f.Dir, fmt.Sprintf("report-%s-%s-%s.txt", f.Stamp.Format(StampLayout), f.Label, suffix))
}

// RunPath is e.g. report-2024-01-02T03-04-05-MooseFS-001.txt.
func (f *Files) RunPath(run int) string {
	return f.name(fmt.Sprintf("%03d", run))
}

func (f *Files) FinalPath() string {
	return f.name("final")
}

func (f *Files) SaveRun(r Run) (string, error) {
	path := f.RunPath(r.Number)
	return path, f.write(path, r.String())
}

func (f *Files) SaveFinal(r Final) (string, error) {
	path := f.FinalPath()
	return path, f.write(path, r.String())
}

func (f *Files) write(path, text string) error {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return errors.Wrap(err, "create report dir")
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return nil
}
