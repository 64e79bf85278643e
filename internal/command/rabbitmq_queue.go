package command

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig describes the RabbitMQ queue holding commands.
type RabbitMQConfig struct {
	URL        string
	Queue      string
	Prefetch   int
	Durable    bool
	AutoDelete bool
}

const defaultRabbitQueue = "behavior.commands"

// RabbitMQQueue publishes through the default exchange, routed by queue
// name. Each delivery is acked once its handler returns, applied or not.
type RabbitMQQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitMQQueue dials the broker and declares the queue.
func NewRabbitMQQueue(cfg RabbitMQConfig) (*RabbitMQQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url required")
	}
	q := &RabbitMQQueue{queue: cfg.Queue}
	if q.queue == "" {
		q.queue = defaultRabbitQueue
	}

	var err error
	if q.conn, err = amqp.Dial(cfg.URL); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	if q.ch, err = q.conn.Channel(); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	if cfg.Prefetch > 0 {
		if err := q.ch.Qos(cfg.Prefetch, 0, false); err != nil {
			q.Close()
			return nil, fmt.Errorf("failed to set rabbitmq prefetch: %w", err)
		}
	}
	if _, err := q.ch.QueueDeclare(q.queue, cfg.Durable, cfg.AutoDelete, false, false, nil); err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", q.queue, err)
	}
	return q, nil
}

func (q *RabbitMQQueue) ready() error {
	if q == nil || q.ch == nil {
		return errors.New("rabbitmq queue not initialized")
	}
	return nil
}

// Publish sends cmd as a persistent JSON message.
func (q *RabbitMQQueue) Publish(ctx context.Context, cmd *Command) error {
	if err := q.ready(); err != nil {
		return err
	}
	b, err := encode(cmd)
	if err != nil {
		return err
	}
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         cmd.Op,
		Body:         b,
	})
	if err != nil {
		return fmt.Errorf("failed to queue %s for %s: %w", cmd.Op, cmd.Agent, err)
	}
	return nil
}

// Consume registers a consumer and applies deliveries until ctx is done.
// If the broker closes the delivery channel first, ErrDeliveriesClosed is
// returned so the caller notices commands are no longer flowing.
func (q *RabbitMQQueue) Consume(ctx context.Context, workers int, handler Handler) error {
	if err := q.ready(); err != nil {
		return err
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", q.queue, err)
	}
	return consume(ctx, workers, handler, func(ctx context.Context) (Delivery, error) {
		return receive(ctx, deliveries)
	})
}

func receive(ctx context.Context, deliveries <-chan amqp.Delivery) (Delivery, error) {
	select {
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case m, ok := <-deliveries:
		if !ok {
			return Delivery{}, ErrDeliveriesClosed
		}
		d := decode(m.Body)
		d.done = func() { _ = m.Ack(false) }
		return d, nil
	}
}

// Close closes the channel and the connection.
func (q *RabbitMQQueue) Close() error {
	if q == nil {
		return nil
	}
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// Ping reports whether the connection is still open.
func (q *RabbitMQQueue) Ping(context.Context) error {
	if q == nil || q.conn == nil || q.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}
