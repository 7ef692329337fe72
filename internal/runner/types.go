package runner

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"

	// DefaultEndpoint is the gateway upload handler the benchmark targets.
	DefaultEndpoint = "http://localhost:1313/upload"

	// SuccessMarker prefixes every CID the gateway returns for a stored upload.
	SuccessMarker = "baf"

	MiB = 1024 * 1024
)

// Config is fixed for the lifetime of a benchmark invocation.
type Config struct {
	Workers     int
	BlobSizeMiB int
	Label       string
	Silent      bool
	Mode        string // "parallel" or "sequential"

	Endpoint  string
	FormField string
	WorkDir   string

	// SourceFile replaces generated payloads with an existing file (sequential mode only).
	SourceFile string

	Settle        time.Duration
	UploadTimeout time.Duration // 0 means no per-request timeout
}

func (c Config) Validate() error {
	var err error
	if c.Workers < 1 {
		err = multierr.Append(err, errors.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.SourceFile == "" && c.BlobSizeMiB < 1 {
		err = multierr.Append(err, errors.Errorf("blob size must be at least 1 MiB, got %d", c.BlobSizeMiB))
	}
	switch c.Mode {
	case ModeParallel:
		if c.SourceFile != "" {
			err = multierr.Append(err, errors.New("a source file is only supported in sequential mode"))
		}
	case ModeSequential:
		if c.Workers != 1 {
			err = multierr.Append(err, errors.Errorf("sequential mode runs exactly 1 worker, got %d", c.Workers))
		}
	default:
		err = multierr.Append(err, errors.Errorf("unknown mode %q", c.Mode))
	}
	if c.Endpoint == "" {
		err = multierr.Append(err, errors.New("upload endpoint is empty"))
	}
	if c.Settle < 0 || c.UploadTimeout < 0 {
		err = multierr.Append(err, errors.New("durations must not be negative"))
	}
	return err
}

// OutcomeKind classifies how a single upload ended.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	TransportFailure
	ProtocolFailure
	ResourceFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case TransportFailure:
		return "transport"
	case ProtocolFailure:
		return "protocol"
	case ResourceFailure:
		return "resource"
	default:
		return "unknown"
	}
}

// Outcome is what one Upload Worker reports for one run.
type Outcome struct {
	Worker  int
	Kind    OutcomeKind
	Elapsed time.Duration
	Status  int
	Body    string // trimmed response body, kept for diagnostics
	Err     error
}

func (o Outcome) OK() bool { return o.Kind == Success }

// Sentinels for slowest/fastest before any upload succeeded.
const (
	undefinedSlowest = time.Duration(math.MinInt64)
	undefinedFastest = time.Duration(math.MaxInt64)
)

// RunResult aggregates one run after every worker has been joined.
type RunResult struct {
	Run        int
	Elapsed    time.Duration
	Slowest    time.Duration
	Fastest    time.Duration
	Successes  int
	Workers    int
	PayloadMiB float64 // size of one worker's payload
	Filename   string
	Outcomes   []Outcome
}

// TimingsDefined reports whether Slowest and Fastest hold real durations.
func (r RunResult) TimingsDefined() bool {
	return r.Successes > 0 && r.Slowest != undefinedSlowest && r.Fastest != undefinedFastest
}

// Phase is the coordinator step a run is currently in.
type Phase int

const (
	PhaseGenerating Phase = iota
	PhaseSettling
	PhaseWaiting
	PhaseUploading
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseGenerating:
		return "generating payloads"
	case PhaseSettling:
		return "settling"
	case PhaseWaiting:
		return "waiting for start signal"
	case PhaseUploading:
		return "uploading"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Progress is sent over the channel
type Progress struct {
	Run       int
	Phase     Phase
	Workers   int
	Completed int
	Succeeded int
	Elapsed   time.Duration // set once the run is done
}

// ProgressChan is the channel type
type ProgressChan chan Progress
