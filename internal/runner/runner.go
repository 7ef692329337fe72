package runner

import (
	"context"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"gatebench/internal/barrier"
)

// Runner executes one benchmark run at a time. Runs reuse the same payload file names, so
// callers must not invoke Run concurrently on the same WorkDir.
type Runner struct {
	Cfg      Config
	Uploader *Uploader
	Barrier  barrier.Signal
	Log      *zap.Logger

	// Event Channel
	Updates ProgressChan
}

func NewRunner(cfg Config, signal barrier.Signal, log *zap.Logger, updates ProgressChan) *Runner {
	if signal == nil {
		signal = barrier.None{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(ProgressChan, 10)
	}
	return &Runner{
		Cfg:      cfg,
		Uploader: NewUploader(cfg),
		Barrier:  signal,
		Log:      log,
		Updates:  updates,
	}
}

func (r *Runner) notify(p Progress) {
	p.Workers = r.Cfg.Workers
	// Non-blocking send
	select {
	case r.Updates <- p:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run generates the payloads, waits for the start signal and uploads every payload in
// parallel. Per-worker failures are part of the result; only a failed start signal or a
// cancelled context return an error.
func (r *Runner) Run(ctx context.Context, run int) (RunResult, error) {
	n := r.Cfg.Workers
	res := RunResult{
		Run:      run,
		Workers:  n,
		Slowest:  undefinedSlowest,
		Fastest:  undefinedFastest,
		Outcomes: make([]Outcome, 0, n),
	}

	// 1. Payloads
	r.notify(Progress{Run: run, Phase: PhaseGenerating})
	paths, genErrs, err := r.preparePayloads()
	if err != nil {
		return res, err
	}
	res.PayloadMiB, res.Filename = r.payloadInfo(paths)

	// 2. Let the writes reach the disk
	r.notify(Progress{Run: run, Phase: PhaseSettling})
	if err := sleep(ctx, r.Cfg.Settle); err != nil {
		return res, err
	}

	// 3. Start barrier
	r.notify(Progress{Run: run, Phase: PhaseWaiting})
	if err := r.Barrier.Wait(ctx, run); err != nil {
		return res, err
	}

	// 4. Uploads
	r.notify(Progress{Run: run, Phase: PhaseUploading})
	start := time.Now()

	outcomes := make(chan Outcome, n)
	uploads := pool.New().WithMaxGoroutines(n)
	for i := 0; i < n; i++ {
		uploads.Go(func() {
			if genErrs[i] != nil {
				outcomes <- Outcome{
					Worker: i,
					Kind:   ResourceFailure,
					Err:    failed(i, ResourceFailure, genErrs[i]),
				}
				return
			}
			outcomes <- r.Uploader.Upload(ctx, i, paths[i])
		})
	}
	go func() {
		uploads.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		res.Outcomes = append(res.Outcomes, o)
		if o.OK() {
			res.Successes++
			if o.Elapsed > res.Slowest {
				res.Slowest = o.Elapsed
			}
			if o.Elapsed < res.Fastest {
				res.Fastest = o.Elapsed
			}
		}
		r.logOutcome(o)
		r.notify(Progress{Run: run, Phase: PhaseUploading, Completed: len(res.Outcomes), Succeeded: res.Successes})
	}

	// 5. Done
	res.Elapsed = time.Since(start)
	r.notify(Progress{Run: run, Phase: PhaseDone, Completed: len(res.Outcomes), Succeeded: res.Successes, Elapsed: res.Elapsed})
	return res, nil
}

// preparePayloads generates one payload per worker, all in parallel. A source file, when
// configured, is used as-is instead.
func (r *Runner) preparePayloads() ([]string, []error, error) {
	n := r.Cfg.Workers
	paths := make([]string, n)
	errs := make([]error, n)

	if r.Cfg.SourceFile != "" {
		for i := range paths {
			paths[i] = r.Cfg.SourceFile
			if _, err := os.Stat(r.Cfg.SourceFile); err != nil {
				errs[i] = err
			}
		}
		return paths, errs, nil
	}

	if err := os.MkdirAll(r.Cfg.WorkDir, 0755); err != nil {
		return nil, nil, err
	}

	gen := pool.New().WithMaxGoroutines(n)
	for i := 0; i < n; i++ {
		gen.Go(func() {
			r.Log.Debug("generating payload", zap.Int("worker", i))
			paths[i], errs[i] = GeneratePayload(r.Cfg.WorkDir, i, r.Cfg.BlobSizeMiB)
		})
	}
	gen.Wait()
	return paths, errs, nil
}

func (r *Runner) payloadInfo(paths []string) (float64, string) {
	if r.Cfg.SourceFile != "" {
		if st, err := os.Stat(r.Cfg.SourceFile); err == nil {
			return float64(st.Size()) / MiB, r.Cfg.SourceFile
		}
		return 0, r.Cfg.SourceFile
	}
	if len(paths) == 1 {
		return float64(r.Cfg.BlobSizeMiB), PayloadName(0)
	}
	return float64(r.Cfg.BlobSizeMiB), "testfile-[threadid].bin"
}

func (r *Runner) logOutcome(o Outcome) {
	switch o.Kind {
	case Success:
		r.Log.Info("upload succeeded",
			zap.Int("worker", o.Worker),
			zap.Duration("elapsed", o.Elapsed))
	case ProtocolFailure:
		r.Log.Error("upload rejected",
			zap.Int("worker", o.Worker),
			zap.Int("status", o.Status),
			zap.String("body", o.Body),
			zap.Error(o.Err))
	default:
		r.Log.Error("upload failed",
			zap.Int("worker", o.Worker),
			zap.Stringer("kind", o.Kind),
			zap.Error(o.Err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
