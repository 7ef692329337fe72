package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gatebench/internal/report"
	"gatebench/internal/runner"
	"gatebench/internal/stats"
)

// Executor runs one numbered benchmark run.
type Executor interface {
	Run(ctx context.Context, run int) (runner.RunResult, error)
}

// Readiness blocks until the gateway can take uploads.
type Readiness interface {
	WaitReady(ctx context.Context) error
}

// Resetter returns the gateway to a cold state.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Series drives a fixed number of runs one after another and reports on each.
type Series struct {
	Runs       int
	Correction float64

	Exec  Executor
	Ready Readiness // optional
	Reset Resetter  // optional
	Files *report.Files

	Out io.Writer
	Log *zap.Logger

	Stats   *stats.Series
	Results []runner.RunResult
}

// Run executes every run and returns the final report. Runs never overlap: they share
// payload file names.
func (s *Series) Run(ctx context.Context) (report.Final, error) {
	if s.Stats == nil {
		s.Stats = stats.NewSeries()
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	correction := s.Correction
	if correction == 0 {
		correction = 1
	}

	for i := 1; i <= s.Runs; i++ {
		fmt.Fprintf(s.Out, "\nRunning test %d...\n", i)

		if s.Reset != nil {
			if err := s.Reset.Reset(ctx); err != nil {
				return report.Final{}, errors.Wrapf(err, "reset before run %d", i)
			}
		}
		if s.Ready != nil {
			if err := s.Ready.WaitReady(ctx); err != nil {
				return report.Final{}, errors.Wrapf(err, "run %d", i)
			}
		}

		res, err := s.Exec.Run(ctx, i)
		if err != nil {
			return report.Final{}, errors.Wrapf(err, "run %d", i)
		}
		s.Stats.Add(res)
		s.Results = append(s.Results, res)

		r := report.NewRun(res, correction)
		if err := r.Render(s.Out); err != nil {
			return report.Final{}, err
		}
		if s.Files != nil {
			if path, err := s.Files.SaveRun(r); err != nil {
				s.Log.Error("saving run report failed", zap.Int("run", i), zap.Error(err))
			} else {
				s.Log.Debug("saved run report", zap.String("path", path))
			}
		}
	}

	final := report.NewFinal(s.Stats)
	if err := final.Render(s.Out); err != nil {
		return final, err
	}
	if s.Files != nil {
		fmt.Fprintln(s.Out, "Saving final report to disk...")
		if _, err := s.Files.SaveFinal(final); err != nil {
			s.Log.Error("saving final report failed", zap.Error(err))
		}
	}
	return final, nil
}
