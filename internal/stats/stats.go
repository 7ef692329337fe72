package stats

import (
	"time"

	"gatebench/internal/runner"
)

// Sample is a run time with the nominal speed (bytes/s) it produced.
type Sample struct {
	Time  time.Duration
	Speed float64
}

// Series accumulates results across a sequence of runs. It is owned by the goroutine that
// drives the runs and is not safe for concurrent use.
type Series struct {
	Runs         int
	Successes    int
	Attempts     int
	TotalElapsed time.Duration
	TotalSpeed   float64 // sum of per-run nominal speeds, bytes/s
	PayloadBytes float64 // one transfer

	Best  Sample
	Worst Sample

	// Upload latencies of every successful transfer
	Latency *SafeHistogram
}

func NewSeries() *Series {
	return &Series{Latency: NewSafeHistogram()}
}

// Speed returns bytes/s, or 0 when nothing was timed.
func Speed(bytes float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return bytes / elapsed.Seconds()
}

// NominalBytes is what a run would move if every worker succeeded.
func NominalBytes(res runner.RunResult) float64 {
	return float64(res.Workers) * res.PayloadMiB * runner.MiB
}

func (s *Series) Add(res runner.RunResult) {
	speed := Speed(NominalBytes(res), res.Elapsed)
	sample := Sample{Time: res.Elapsed, Speed: speed}

	if s.Runs == 0 || res.Elapsed < s.Best.Time {
		s.Best = sample
	}
	if s.Runs == 0 || res.Elapsed > s.Worst.Time {
		s.Worst = sample
	}

	s.Runs++
	s.Successes += res.Successes
	s.Attempts += res.Workers
	s.TotalElapsed += res.Elapsed
	s.TotalSpeed += speed
	s.PayloadBytes = res.PayloadMiB * runner.MiB

	for _, o := range res.Outcomes {
		if o.OK() {
			s.Latency.Record(o.Elapsed)
		}
	}
}

func (s *Series) AverageTime() time.Duration {
	if s.Runs == 0 {
		return 0
	}
	return s.TotalElapsed / time.Duration(s.Runs)
}

func (s *Series) AverageSpeed() float64 {
	if s.Runs == 0 {
		return 0
	}
	return s.TotalSpeed / float64(s.Runs)
}

// SuccessRatio is successes over attempted transfers, in [0, 1].
func (s *Series) SuccessRatio() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// BytesMoved counts only the transfers that succeeded.
func (s *Series) BytesMoved() float64 {
	return s.SuccessRatio() * float64(s.Attempts) * s.PayloadBytes
}

// Rate is the aggregate delivered throughput in bytes/s.
func (s *Series) Rate() float64 {
	return Speed(s.BytesMoved(), s.TotalElapsed)
}
