package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Delivery is one command taken off a queue. Err is set when the payload
// could not be decoded; Command then holds whatever did decode, so a
// rejection can still name the agent.
type Delivery struct {
	Command  Command
	QueuedAt time.Time
	Err      error

	done func()
}

// Handler processes one delivery. Its error is reported by the caller's
// handler itself; queues never redeliver.
type Handler func(ctx context.Context, d Delivery) error

// Producer puts commands on a queue.
type Producer interface {
	Publish(ctx context.Context, cmd *Command) error
	Close() error
}

// Consumer takes commands off a queue. Consume returns nil once a closed
// queue is drained, ctx.Err() on cancellation, and any transport failure
// otherwise.
type Consumer interface {
	Consume(ctx context.Context, workers int, handler Handler) error
	Close() error
}

// Queue is both ends of a command queue.
type Queue interface {
	Producer
	Consumer
}

// ErrQueueClosed is returned when publishing to a closed queue.
var ErrQueueClosed = errors.New("command queue closed")

// ErrDeliveriesClosed is returned by Consume when the broker stops
// delivering while the consumer is still running.
var ErrDeliveriesClosed = errors.New("command queue: broker closed the delivery channel")

// errDrained ends a worker without an error.
var errDrained = errors.New("command queue drained")

// Enqueue validates cmd and publishes it. Every queued command names its
// agent.
func Enqueue(ctx context.Context, p Producer, cmd *Command) error {
	if cmd.Agent == "" {
		return fmt.Errorf("agent required")
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	return p.Publish(ctx, cmd)
}

// envelope is the wire form on brokers: the command plus when it was queued.
type envelope struct {
	Command
	QueuedAt time.Time `json:"queued_at"`
}

func encode(cmd *Command) ([]byte, error) {
	b, err := json.Marshal(envelope{Command: *cmd, QueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", cmd.Op, err)
	}
	return b, nil
}

func decode(payload []byte) Delivery {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Delivery{Command: env.Command, Err: fmt.Errorf("invalid command JSON: %w", err)}
	}
	return Delivery{Command: env.Command, QueuedAt: env.QueuedAt}
}

// consume runs workers that each pull with next and hand the result to h.
// next returns errDrained when the source is exhausted.
func consume(ctx context.Context, workers int, h Handler, next func(context.Context) (Delivery, error)) error {
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				d, err := next(gctx)
				if errors.Is(err, errDrained) {
					return nil
				}
				if err != nil {
					return err
				}
				_ = h(gctx, d)
				if d.done != nil {
					d.done()
				}
			}
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
