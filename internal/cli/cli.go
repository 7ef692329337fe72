package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"gatebench/internal/config"
	"gatebench/internal/gateway"
	"gatebench/internal/report"
	"gatebench/internal/runner"
	"gatebench/internal/storage"
	"gatebench/internal/tui"
)

// Start runs a whole benchmark series as configured and writes the reports to out.
func Start(ctx context.Context, cfg config.Config, log *zap.Logger, out io.Writer) error {
	if !cfg.Bench.Silent {
		printHeader(out, cfg)
	}

	updates := make(runner.ProgressChan, 100)
	series, closeFn, err := build(ctx, cfg, log, out, updates)
	if err != nil {
		return err
	}
	defer closeFn()

	var final report.Final
	if cfg.Bench.TUI {
		final, err = runTUI(ctx, series, cfg, updates, out)
	} else {
		final, err = series.Run(ctx)
	}
	if err != nil {
		return err
	}

	handleAutoReport(series, cfg, log, out)
	saveHistory(cfg, final, log)
	return nil
}

func build(ctx context.Context, cfg config.Config, log *zap.Logger, out io.Writer, updates runner.ProgressChan) (*Series, func(), error) {
	closeFn := func() {}
	series := &Series{
		Runs:       cfg.Bench.Runs,
		Correction: cfg.Correction(),
		Exec:       runner.NewRunner(cfg.Runner(), cfg.Signal(), log.Named("runner"), updates),
		Out:        out,
		Log:        log,
	}

	if cfg.Gateway.Wait {
		prober, err := gateway.NewProber(cfg.Gateway.ProbeBase, cfg.Gateway.ProbeCID, log.Named("probe"))
		if err != nil {
			return nil, closeFn, err
		}
		prober.Interval = cfg.Gateway.ProbeInterval
		series.Ready = prober
	}

	if cfg.Gateway.Reset {
		var manager gateway.UnitManager
		switch cfg.Gateway.Manager {
		case config.ManagerDBus:
			d, err := gateway.NewDBus(ctx)
			if err != nil {
				return nil, closeFn, err
			}
			closeFn = d.Close
			manager = d
		default:
			manager = gateway.NewSystemctl(cfg.Gateway.Sudo)
		}

		lc := &gateway.Lifecycle{
			Manager:   manager,
			StopUnits: cfg.Gateway.StopUnits,
			StartUnit: cfg.StartUnit(),
			CacheDir:  cfg.CacheDir(),
			Settle:    time.Second,
			Log:       log.Named("gateway"),
		}
		if cfg.Gateway.Sudo {
			lc.Remove = gateway.SudoRemove(gateway.RunCommand)
		}
		series.Reset = lc
	}

	if cfg.Report.Save {
		series.Files = report.NewFiles(cfg.Report.Dir, cfg.Bench.Label, time.Now())
	}
	return series, closeFn, nil
}

// runTUI shows live progress while the series runs. Reports are buffered and printed once
// the view has closed.
func runTUI(ctx context.Context, series *Series, cfg config.Config, updates runner.ProgressChan, out io.Writer) (report.Final, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := tui.NewModel(cfg.Bench.Runs, cfg.Bench.Workers, cfg.Bench.Label, updates, cancel)
	p := tea.NewProgram(m)

	var buf bytes.Buffer
	series.Out = io.MultiWriter(&buf, tui.NewWriter(p))

	var final report.Final
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		final, runErr = series.Run(ctx)
		p.Send(tui.DoneMsg{Err: runErr})
	}()

	_, err := p.Run()
	cancel()
	<-done

	out.Write(buf.Bytes())
	if err != nil {
		return final, err
	}
	return final, runErr
}

func printHeader(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "\n🚀 STARTING GATEBENCH UPLOAD BENCHMARK\n")
	fmt.Fprintf(out, "======================================================================\n")
	fmt.Fprintf(out, "Endpoint   : %s\n", cfg.Gateway.UploadURL)
	fmt.Fprintf(out, "Mode       : %s\n", cfg.Bench.Mode)
	fmt.Fprintf(out, "Label      : %s\n", cfg.Bench.Label)
	fmt.Fprintf(out, "Runs       : %d\n", cfg.Bench.Runs)
	fmt.Fprintf(out, "Threads    : %d\n", cfg.Bench.Workers)
	if cfg.Bench.SourceFile != "" {
		fmt.Fprintf(out, "File       : %s\n", cfg.Bench.SourceFile)
	} else {
		fmt.Fprintf(out, "Blob size  : %d MiB\n", cfg.Bench.BlobSizeMiB)
	}
	if cfg.Bench.Mode == runner.ModeParallel && cfg.Barrier.Backend != config.BackendNone {
		fmt.Fprintf(out, "Barrier    : %s %s<run>\n", cfg.Barrier.Backend, filepath.Join(cfg.Barrier.Dir, cfg.Barrier.Prefix))
	}
	fmt.Fprintf(out, "Reset      : %t\n", cfg.Gateway.Reset)
	fmt.Fprintf(out, "======================================================================\n")
}

func handleAutoReport(series *Series, cfg config.Config, log *zap.Logger, out io.Writer) {
	if cfg.Report.Out == "" || len(series.Results) == 0 {
		return
	}

	path := cfg.Report.Out + ".csv"
	if err := report.ExportCSV(series.Results, path); err != nil {
		log.Error("exporting outcomes failed", zap.String("path", path), zap.Error(err))
		return
	}
	fmt.Fprintf(out, "✅ Per-upload outcomes saved to %s\n", path)
}

func saveHistory(cfg config.Config, final report.Final, log *zap.Logger) {
	if !cfg.History.Enabled {
		return
	}
	path := cfg.History.Path
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			log.Warn("history disabled", zap.Error(err))
			return
		}
		path = p
	}

	store, err := storage.Open(path)
	if err != nil {
		log.Warn("history unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	if err := store.Save(HistoryItem(cfg, final)); err != nil {
		log.Warn("saving history failed", zap.Error(err))
	}
}

// HistoryItem summarizes a finished series for the history store.
func HistoryItem(cfg config.Config, final report.Final) storage.HistoryItem {
	blob := float64(cfg.Bench.BlobSizeMiB)
	if final.Attempts > 0 && final.Successes > 0 {
		blob = final.MovedMiB / float64(final.Successes)
	}
	return storage.HistoryItem{
		ID:          storage.NewID(),
		Timestamp:   time.Now(),
		Label:       cfg.Bench.Label,
		Mode:        cfg.Bench.Mode,
		Workers:     cfg.Bench.Workers,
		BlobSizeMiB: blob,
		Summary: storage.Summary{
			Runs:        final.Runs,
			Attempts:    final.Attempts,
			Successes:   final.Successes,
			MovedMiB:    final.MovedMiB,
			Mbps:        final.Mbps,
			SuccessPct:  final.SuccessPct,
			BestSec:     final.Best.Time.Seconds(),
			WorstSec:    final.Worst.Time.Seconds(),
			AverageSec:  final.Average.Time.Seconds(),
			BestMbps:    report.Mbps(final.Best.Speed),
			WorstMbps:   report.Mbps(final.Worst.Speed),
			AverageMbps: report.Mbps(final.Average.Speed),
		},
	}
}
