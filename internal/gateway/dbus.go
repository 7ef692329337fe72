package gateway

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/pkg/errors"
)

// DBus talks to systemd over its D-Bus API, for hosts where the benchmark runs with enough
// privilege to manage units without sudo.
type DBus struct {
	conn *dbus.Conn
}

func NewDBus(ctx context.Context) (*DBus, error) {
	conn, err := dbus.NewWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "connect to systemd")
	}
	return &DBus{conn: conn}, nil
}

func (d *DBus) Close() {
	d.conn.Close()
}

func (d *DBus) wait(ctx context.Context, op string, unit string, jobs chan string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case result := <-jobs:
		if result != "done" {
			return errors.Errorf("%s %s: job %s", op, unit, result)
		}
		return nil
	}
}

func (d *DBus) Stop(ctx context.Context, unit string) error {
	jobs := make(chan string, 1)
	if _, err := d.conn.StopUnitContext(ctx, unit, "replace", jobs); err != nil {
		return err
	}
	return d.wait(ctx, "stop", unit, jobs)
}

func (d *DBus) Start(ctx context.Context, unit string) error {
	jobs := make(chan string, 1)
	if _, err := d.conn.StartUnitContext(ctx, unit, "replace", jobs); err != nil {
		return err
	}
	return d.wait(ctx, "start", unit, jobs)
}

func (d *DBus) IsActive(ctx context.Context, unit string) (bool, error) {
	units, err := d.conn.ListUnitsByNamesContext(ctx, []string{unit})
	if err != nil {
		return false, err
	}
	for _, u := range units {
		if u.Name == unit {
			return u.ActiveState == "active", nil
		}
	}
	return false, nil
}
