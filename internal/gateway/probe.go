// Package gateway holds the collaborators that manage the gateway under test: the
// readiness probe and the stop/reset/start lifecycle between runs.
package gateway

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// ProbeCID is the CID of "hello world", pinned on every gateway under test.
	ProbeCID      = "QmT78zSuBmuS4z925WZfrqQ1qHaJ56DQaTfyMUF7F8ff5o"
	ProbeText     = "hello world"
	DefaultBase   = "http://localhost:1313"
	ProbeInterval = time.Second
)

// ProbeURL is where the gateway serves the probe content.
func ProbeURL(base, c string) string {
	return strings.TrimSuffix(base, "/") + "/gw/ipfs/" + c
}

// Prober waits until the gateway serves known content.
type Prober struct {
	URL      string
	Expect   string
	Interval time.Duration
	Client   *http.Client
	Log      *zap.Logger
}

func NewProber(base, probeCID string, log *zap.Logger) (*Prober, error) {
	if _, err := cid.Decode(probeCID); err != nil {
		return nil, errors.Wrapf(err, "probe cid %q", probeCID)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{
		URL:      ProbeURL(base, probeCID),
		Expect:   ProbeText,
		Interval: ProbeInterval,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Log:      log,
	}, nil
}

// WaitReady polls until the probe body matches or ctx ends. There is no attempt limit.
func (p *Prober) WaitReady(ctx context.Context) error {
	p.Log.Info("checking gateway liveness", zap.String("url", p.URL))

	b := backoff.WithContext(backoff.NewConstantBackOff(p.Interval), ctx)
	err := backoff.Retry(func() error {
		return p.check(ctx)
	}, b)
	if err != nil {
		return errors.Wrap(err, "gateway readiness")
	}

	p.Log.Info("gateway is live", zap.String("expect", p.Expect))
	return nil
}

func (p *Prober) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		p.Log.Debug("probe failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return errors.Errorf("probe status %d", resp.StatusCode)
	}
	if got := strings.TrimSpace(string(body)); got != p.Expect {
		return errors.Errorf("probe body %q", got)
	}
	return nil
}
