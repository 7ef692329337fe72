package runner

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTransport marks uploads that never got a complete response.
	ErrTransport = errors.New("transport failure")
	// ErrProtocol marks responses without the success marker.
	ErrProtocol = errors.New("protocol failure")
	// ErrResource marks payloads that could not be produced or read.
	ErrResource = errors.New("resource failure")
)

// UploadError carries the worker and failure kind alongside the cause.
type UploadError struct {
	Worker int
	Kind   OutcomeKind
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("worker %d: %s failure: %v", e.Worker, e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == TransportFailure
	case ErrProtocol:
		return e.Kind == ProtocolFailure
	case ErrResource:
		return e.Kind == ResourceFailure
	}
	return false
}

func failed(worker int, kind OutcomeKind, err error) *UploadError {
	return &UploadError{Worker: worker, Kind: kind, Err: err}
}
