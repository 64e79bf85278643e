package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the Redis list holding queued commands.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	Queue     string
	BlockWait time.Duration
}

const (
	defaultRedisKey  = "behavior:commands"
	defaultRedisWait = 5 * time.Second
)

// RedisQueue keeps commands in a list: LPUSH on publish, BRPOP on consume,
// so agents see their commands in publish order.
type RedisQueue struct {
	rdb  *redis.Client
	key  string
	wait time.Duration
}

// NewRedisQueue connects and checks the server answers.
func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address required")
	}
	q := &RedisQueue{key: cfg.Queue, wait: cfg.BlockWait}
	if q.key == "" {
		q.key = defaultRedisKey
	}
	if q.wait <= 0 {
		q.wait = defaultRedisWait
	}
	q.rdb = redis.NewClient(&redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB})
	if err := q.rdb.Ping(ctx).Err(); err != nil {
		q.rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}
	return q, nil
}

// Publish pushes cmd with its queue time.
func (q *RedisQueue) Publish(ctx context.Context, cmd *Command) error {
	b, err := encode(cmd)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("failed to queue %s for %s: %w", cmd.Op, cmd.Agent, err)
	}
	return nil
}

// Consume pops on every worker until ctx is done. A closed client or any
// other Redis error ends consumption with that error.
func (q *RedisQueue) Consume(ctx context.Context, workers int, handler Handler) error {
	return consume(ctx, workers, handler, q.pop)
}

// pop blocks in slices of q.wait so cancellation is noticed between them.
func (q *RedisQueue) pop(ctx context.Context) (Delivery, error) {
	for {
		res, err := q.rdb.BRPop(ctx, q.wait, q.key).Result()
		switch {
		case ctx.Err() != nil:
			return Delivery{}, ctx.Err()
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			return Delivery{}, fmt.Errorf("failed to pop %s: %w", q.key, err)
		}
		// BRPOP answers [key, value].
		return decode([]byte(res[len(res)-1])), nil
	}
}

// Ping reports whether the server is reachable.
func (q *RedisQueue) Ping(ctx context.Context) error {
	if q == nil || q.rdb == nil {
		return redis.ErrClosed
	}
	return q.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (q *RedisQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
