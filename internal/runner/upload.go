package runner

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Uploader performs one multipart upload per call. It holds no per-run state, so a single
// Uploader is shared by every worker.
type Uploader struct {
	Client   *http.Client
	Endpoint string
	Field    string
	Timeout  time.Duration
}

func NewUploader(cfg Config) *Uploader {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	t.DisableCompression = true

	field := cfg.FormField
	if field == "" {
		field = "file"
	}

	return &Uploader{
		Client:   &http.Client{Transport: t},
		Endpoint: cfg.Endpoint,
		Field:    field,
		Timeout:  cfg.UploadTimeout,
	}
}

// Upload sends the file at path and classifies the result. Failures are reported in the
// returned Outcome, never as a panic or a run-level error.
func (u *Uploader) Upload(ctx context.Context, worker int, path string) Outcome {
	out := Outcome{Worker: worker}

	f, err := os.Open(path)
	if err != nil {
		out.Kind = ResourceFailure
		out.Err = failed(worker, ResourceFailure, errors.Wrap(err, "open payload"))
		return out
	}
	defer f.Close()

	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	// Stream the form so large payloads are never held in memory.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(u.Field, filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		out.Kind = TransportFailure
		out.Err = failed(worker, TransportFailure, errors.Wrap(err, "build request"))
		return out
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := u.Client.Do(req)
	if err != nil {
		out.Elapsed = time.Since(start)
		out.Kind = TransportFailure
		out.Err = failed(worker, TransportFailure, err)
		return out
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	out.Elapsed = time.Since(start)
	out.Status = resp.StatusCode

	if err != nil {
		out.Kind = TransportFailure
		out.Err = failed(worker, TransportFailure, errors.Wrap(err, "read response"))
		return out
	}

	out.Body = strings.TrimSpace(string(body))
	if !strings.HasPrefix(out.Body, SuccessMarker) {
		out.Kind = ProtocolFailure
		out.Err = failed(worker, ProtocolFailure, errors.Errorf("unexpected response (status %d)", resp.StatusCode))
		return out
	}

	out.Kind = Success
	return out
}
