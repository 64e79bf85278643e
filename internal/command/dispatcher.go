package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/AaronLay10/behaviorgraph/internal/events"
)

// Dispatcher applies queued commands to a Controller.
type Dispatcher struct {
	ctrl    Controller
	source  string
	workers int
	log     *slog.Logger
}

// NewDispatcher creates a dispatcher. source tags the resulting operator
// events, typically the queue driver name.
func NewDispatcher(ctrl Controller, source string, workers int, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{ctrl: ctrl, source: source, workers: workers, log: log}
}

// Run consumes c until ctx is done. A cancelled context is not an error.
func (d *Dispatcher) Run(ctx context.Context, c Consumer) error {
	err := c.Consume(ctx, d.workers, d.Handle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Handle applies one delivery. Rejected and undecodable commands are
// logged and recorded as system.error events.
func (d *Dispatcher) Handle(_ context.Context, dl Delivery) error {
	cmd := dl.Command
	err := dl.Err
	if err == nil {
		err = Apply(d.ctrl, &cmd, d.source)
	}
	if err != nil {
		d.log.Warn("queued command rejected", "source", d.source, "agent", cmd.Agent, "error", err)
		events.Emit("warning", "system.error", "queued command rejected", map[string]interface{}{
			"agent":  cmd.Agent,
			"source": d.source,
			"error":  err.Error(),
		})
		return err
	}
	if !dl.QueuedAt.IsZero() {
		d.log.Debug("queued command applied", "source", d.source, "agent", cmd.Agent, "op", cmd.Op,
			"waited", time.Since(dl.QueuedAt))
	}
	return nil
}
