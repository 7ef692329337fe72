// Package report turns run results and series statistics into the key: value text reports
// printed after every run and at the end of a series.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gatebench/internal/runner"
	"gatebench/internal/stats"
)

// SequentialCorrection is the empirical factor the single-upload benchmark applies to its
// per-run transfer rate.
const SequentialCorrection = 1.049

// Mbps converts bytes/s to mebibits per second.
func Mbps(bytesPerSec float64) float64 {
	return bytesPerSec * 8 / (1024 * 1024)
}

// SuccessPct is successes out of attempts as a percentage.
func SuccessPct(successes, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return float64(successes) / float64(attempts) * 100
}

// WeightedMbps scales a nominal rate down by the observed success ratio when some
// transfers failed.
func WeightedMbps(nominal float64, successes, attempts int) float64 {
	if attempts == 0 || successes >= attempts {
		return nominal
	}
	return nominal * float64(successes) / float64(attempts)
}

// Run is the per-run report.
type Run struct {
	Number     int
	Workers    int
	Successes  int
	Filename   string
	TotalMiB   float64
	SuccessMiB float64
	SuccessPct float64
	Mbps       float64

	Elapsed        time.Duration
	Slowest        time.Duration
	Fastest        time.Duration
	TimingsDefined bool
}

// NewRun computes the report for one run. correction multiplies the rate; pass 1 for none.
func NewRun(res runner.RunResult, correction float64) Run {
	total := stats.NominalBytes(res)
	nominal := Mbps(stats.Speed(total, res.Elapsed))

	r := Run{
		Number:         res.Run,
		Workers:        res.Workers,
		Successes:      res.Successes,
		Filename:       res.Filename,
		TotalMiB:       total / runner.MiB,
		SuccessPct:     SuccessPct(res.Successes, res.Workers),
		Mbps:           WeightedMbps(nominal, res.Successes, res.Workers) * correction,
		Elapsed:        res.Elapsed,
		TimingsDefined: res.TimingsDefined(),
	}
	if res.Workers > 0 {
		r.SuccessMiB = r.TotalMiB * float64(res.Successes) / float64(res.Workers)
	}
	if r.TimingsDefined {
		r.Slowest = res.Slowest
		r.Fastest = res.Fastest
	}
	return r
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2f seconds", d.Seconds())
}

func timing(defined bool, d time.Duration) string {
	if !defined {
		return "n/a"
	}
	return seconds(d)
}

func (r Run) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== Run %d ===\n", r.Number)
	fmt.Fprintf(&b, "Filename: %s\n", r.Filename)
	if r.Workers > 1 {
		fmt.Fprintf(&b, "\nWe performed %d uploads across %d threads, %d of which succeeded.\n", r.Workers, r.Workers, r.Successes)
		fmt.Fprintf(&b, "That's a success rate of %.2f%%.\n", r.SuccessPct)
	} else if r.Successes == 0 {
		b.WriteString("Upload failed.\n")
	}
	fmt.Fprintf(&b, "Data transferred: %.2f MiB\n", r.TotalMiB)
	if r.Workers > 1 {
		fmt.Fprintf(&b, "Data successfully transferred: %.2f MiB\n", r.SuccessMiB)
		fmt.Fprintf(&b, "Slowest thread: %s\n", timing(r.TimingsDefined, r.Slowest))
		fmt.Fprintf(&b, "Fastest thread: %s\n", timing(r.TimingsDefined, r.Fastest))
	}
	fmt.Fprintf(&b, "Transfer time: %s\n", seconds(r.Elapsed))
	fmt.Fprintf(&b, "Transfer rate: %.2f mbps\n", r.Mbps)
	return b.String()
}

func (r Run) Render(w io.Writer) error {
	_, err := io.WriteString(w, r.String())
	return err
}

// Final is the report of a whole series.
type Final struct {
	Runs       int
	Attempts   int
	Successes  int
	MovedMiB   float64
	TotalTime  time.Duration
	Mbps       float64
	SuccessPct float64

	Best    stats.Sample
	Worst   stats.Sample
	Average stats.Sample

	// Upload latency percentiles, present when at least one upload succeeded
	Latency map[int]time.Duration
}

var latencyQuantiles = []int{50, 90, 99}

func NewFinal(s *stats.Series) Final {
	f := Final{
		Runs:       s.Runs,
		Attempts:   s.Attempts,
		Successes:  s.Successes,
		MovedMiB:   s.BytesMoved() / runner.MiB,
		TotalTime:  s.TotalElapsed,
		Mbps:       Mbps(s.Rate()),
		SuccessPct: SuccessPct(s.Successes, s.Attempts),
		Best:       s.Best,
		Worst:      s.Worst,
		Average:    stats.Sample{Time: s.AverageTime(), Speed: s.AverageSpeed()},
	}
	if s.Latency != nil && s.Latency.TotalCount() > 0 {
		f.Latency = make(map[int]time.Duration, len(latencyQuantiles))
		for _, q := range latencyQuantiles {
			f.Latency[q] = s.Latency.Quantile(float64(q))
		}
	}
	return f
}

func (f Final) String() string {
	var b strings.Builder
	b.WriteString("\n=== Final Report ===\n")
	fmt.Fprintf(&b, "We moved %.2fMiB in %.2f seconds\n", f.MovedMiB, f.TotalTime.Seconds())
	fmt.Fprintf(&b, "That's a transfer rate of %.2f mbps.\n", f.Mbps)
	fmt.Fprintf(&b, "\nWe performed %d transfers across %d total run(s), %d of which succeeded.\n", f.Attempts, f.Runs, f.Successes)
	fmt.Fprintf(&b, "That's a success rate of %.2f%%.\n", f.SuccessPct)
	fmt.Fprintf(&b, "\nBest run time: %s\n", seconds(f.Best.Time))
	fmt.Fprintf(&b, "Best run speed: %.2f mbps\n", Mbps(f.Best.Speed))
	fmt.Fprintf(&b, "Slowest run time: %s\n", seconds(f.Worst.Time))
	fmt.Fprintf(&b, "Slowest run speed: %.2f mbps\n", Mbps(f.Worst.Speed))
	fmt.Fprintf(&b, "Average run time: %s\n", seconds(f.Average.Time))
	fmt.Fprintf(&b, "Average run speed: %.2f mbps\n", Mbps(f.Average.Speed))
	if len(f.Latency) > 0 {
		b.WriteString("\n")
		for _, q := range latencyQuantiles {
			fmt.Fprintf(&b, "Upload latency p%d: %s\n", q, seconds(f.Latency[q]))
		}
	}
	return b.String()
}

func (f Final) Render(w io.Writer) error {
	_, err := io.WriteString(w, f.String())
	return err
}
