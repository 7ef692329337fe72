package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatebench/internal/runner"
	"gatebench/internal/stats"
)

func secs(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func result(elapsed time.Duration, durations []time.Duration, failed map[int]bool) runner.RunResult {
	res := runner.RunResult{
		Run:        1,
		Elapsed:    elapsed,
		Workers:    len(durations),
		PayloadMiB: 50,
		Filename:   "testfile-[threadid].bin",
		Slowest:    time.Duration(-1 << 63),
		Fastest:    time.Duration(1<<63 - 1),
	}
	for i, d := range durations {
		o := runner.Outcome{Worker: i, Kind: runner.Success, Elapsed: d}
		if failed[i] {
			o = runner.Outcome{Worker: i, Kind: runner.TransportFailure, Err: errors.New("connection refused")}
		} else {
			res.Successes++
			if d > res.Slowest {
				res.Slowest = d
			}
			if d < res.Fastest {
				res.Fastest = d
			}
		}
		res.Outcomes = append(res.Outcomes, o)
	}
	return res
}

func line(t *testing.T, text, key string) string {
	t.Helper()
	for _, l := range strings.Split(text, "\n") {
		if strings.HasPrefix(l, key) {
			return l
		}
	}
	t.Fatalf("no line starting with %q in:\n%s", key, text)
	return ""
}

func TestSingleWorkerSequential(t *testing.T) {
	res := result(secs(2), []time.Duration{secs(2)}, nil)
	res.Filename = "testfile-000.bin"

	out := NewRun(res, SequentialCorrection).String()
	assert.Equal(t, "Data transferred: 50.00 MiB", line(t, out, "Data transferred"))
	assert.Equal(t, "Transfer time: 2.00 seconds", line(t, out, "Transfer time"))
	assert.Equal(t, "Transfer rate: 209.80 mbps", line(t, out, "Transfer rate"))
	assert.Equal(t, "Filename: testfile-000.bin", line(t, out, "Filename"))
	assert.NotContains(t, out, "Slowest thread")

	parallel := NewRun(res, 1).String()
	assert.Equal(t, "Transfer rate: 200.00 mbps", line(t, parallel, "Transfer rate"))
}

func TestFourWorkersAllSucceed(t *testing.T) {
	res := result(secs(1.3), []time.Duration{secs(1.0), secs(1.2), secs(0.9), secs(1.1)}, nil)
	r := NewRun(res, 1)

	assert.Equal(t, 100.0, r.SuccessPct)
	assert.Equal(t, secs(1.2), r.Slowest)
	assert.Equal(t, secs(0.9), r.Fastest)
	assert.InDelta(t, 200.0/1.3*8, r.Mbps, 1e-9)

	out := r.String()
	assert.Equal(t, "That's a success rate of 100.00%.", line(t, out, "That's a success rate"))
	assert.Equal(t, "Slowest thread: 1.20 seconds", line(t, out, "Slowest thread"))
	assert.Equal(t, "Fastest thread: 0.90 seconds", line(t, out, "Fastest thread"))
	assert.Equal(t, "Data successfully transferred: 200.00 MiB", line(t, out, "Data successfully"))
}

func TestOneTransportFailure(t *testing.T) {
	res := result(secs(1.3), []time.Duration{secs(1.0), secs(1.2), secs(0.9), secs(1.1)}, map[int]bool{1: true})
	r := NewRun(res, 1)

	nominal := 200.0 / 1.3 * 8
	assert.Equal(t, 75.0, r.SuccessPct)
	assert.InDelta(t, nominal*0.75, r.Mbps, 1e-9)
	assert.InDelta(t, 150.0, r.SuccessMiB, 1e-9)

	out := r.String()
	assert.Equal(t, "We performed 4 uploads across 4 threads, 3 of which succeeded.", line(t, out, "We performed"))
	assert.Equal(t, "Data successfully transferred: 150.00 MiB", line(t, out, "Data successfully"))
	assert.Equal(t, "Slowest thread: 1.10 seconds", line(t, out, "Slowest thread"))
}

func TestNoSuccessesTimingsUndefined(t *testing.T) {
	res := result(secs(1), []time.Duration{0, 0, 0}, map[int]bool{0: true, 1: true, 2: true})
	r := NewRun(res, 1)

	assert.False(t, r.TimingsDefined)
	assert.Zero(t, r.Mbps)
	out := r.String()
	assert.Equal(t, "Slowest thread: n/a", line(t, out, "Slowest thread"))
	assert.Equal(t, "Fastest thread: n/a", line(t, out, "Fastest thread"))
}

func TestSuccessPctLaw(t *testing.T) {
	for n := 1; n <= 32; n++ {
		for s := 0; s <= n; s++ {
			want := fmt.Sprintf("%.2f", float64(s)/float64(n)*100)
			assert.Equal(t, want, fmt.Sprintf("%.2f", SuccessPct(s, n)), "s=%d n=%d", s, n)
		}
	}
}

func TestWeightedRateLaw(t *testing.T) {
	const nominal = 123.4
	for n := 1; n <= 16; n++ {
		for s := 0; s <= n; s++ {
			got := WeightedMbps(nominal, s, n)
			if s == n {
				assert.Equal(t, nominal, got)
			} else {
				assert.InDelta(t, nominal*float64(s)/float64(n), got, 1e-9)
			}
		}
	}
}

func TestFinalReport(t *testing.T) {
	s := stats.NewSeries()
	for _, d := range []float64{2.0, 1.5, 1.8} {
		s.Add(result(secs(d), []time.Duration{secs(d)}, nil))
	}
	f := NewFinal(s)

	assert.Equal(t, 3, f.Runs)
	assert.InDelta(t, 150.0, f.MovedMiB, 1e-9)
	assert.InDelta(t, 100.0, f.SuccessPct, 1e-9)

	out := f.String()
	assert.Equal(t, "We moved 150.00MiB in 5.30 seconds", line(t, out, "We moved"))
	assert.Equal(t, "Best run time: 1.50 seconds", line(t, out, "Best run time"))
	assert.Equal(t, "Slowest run time: 2.00 seconds", line(t, out, "Slowest run time"))
	assert.Equal(t, "Average run time: 1.77 seconds", line(t, out, "Average run time"))
	assert.Equal(t, "Best run speed: 266.67 mbps", line(t, out, "Best run speed"))
	assert.Equal(t, "We performed 3 transfers across 3 total run(s), 3 of which succeeded.", line(t, out, "We performed"))
	assert.Contains(t, out, "Upload latency p50:")
}

func TestFinalReportPartial(t *testing.T) {
	s := stats.NewSeries()
	s.Add(result(secs(1.3), []time.Duration{secs(1.0), secs(1.2), secs(0.9), secs(1.1)}, map[int]bool{1: true}))
	f := NewFinal(s)

	assert.InDelta(t, 150.0, f.MovedMiB, 1e-9)
	assert.InDelta(t, 75.0, f.SuccessPct, 1e-9)
	assert.InDelta(t, 150.0/1.3*8, f.Mbps, 1e-9)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	files := NewFiles(dir, "MooseFS", stamp)

	assert.Equal(t, filepath.Join(dir, "report-2024-01-02T03-04-05-MooseFS-007.txt"), files.RunPath(7))
	assert.Equal(t, filepath.Join(dir, "report-2024-01-02T03-04-05-MooseFS-final.txt"), files.FinalPath())

	r := NewRun(result(secs(2), []time.Duration{secs(2)}, nil), 1)
	path, err := files.SaveRun(r)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.String(), string(b))
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	res := result(secs(1.3), []time.Duration{secs(1.0), secs(1.2)}, map[int]bool{1: true})
	require.NoError(t, ExportCSV([]runner.RunResult{res}, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "run", rows[0][0])
	assert.Equal(t, []string{"1", "000", "success", "true", "1000", "0", "", ""}, rows[1])
	assert.Equal(t, "transport", rows[2][2])
	assert.Equal(t, "connection refused", rows[2][6])
}
