package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"metobs/internal/metrics"
)

// Handler stores one batch. A returned error leaves the entry pending.
type Handler func(ctx context.Context, b Batch) error

// Consumer reads batches through a consumer group
type Consumer struct {
	client redis.Cmdable
	stream string
	group  string
	name   string
	count  int64
	block  time.Duration
	logger *slog.Logger

	// retryDelay pauses reads after a read error or a failed entry
	retryDelay time.Duration
}

func NewConsumer(client redis.Cmdable, stream, group, name string, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		client: client,
		stream: stream,
		group:  group,
		name:   name,
		count:  10,
		block:  5 * time.Second,
		logger: logger.With("component", "stream-consumer", "stream", stream, "group", group),

		retryDelay: time.Second,
	}
}

// EnsureGroup creates the consumer group, and the stream with it, if missing
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.group, err)
	}
	return nil
}

// Run reads and handles entries until ctx is cancelled. Entries already
// delivered to this consumer but never acked are read again first, at startup
// and after every handler failure.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	backlog := true
	for {
		id := ">"
		if backlog {
			id = "0"
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, id},
			Count:    c.count,
			Block:    c.block,
		}).Result()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				c.logger.Error("failed to read from stream", "err", err)
				if !sleep(ctx, c.retryDelay) {
					return ctx.Err()
				}
			}
			continue
		}

		read, failed := 0, false
		for _, s := range streams {
			for _, msg := range s.Messages {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				read++
				if !c.process(ctx, msg, handle) {
					failed = true
					continue
				}
				if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
					c.logger.Error("failed to ack entry", "id", msg.ID, "err", err)
				}
			}
		}

		switch {
		case failed:
			backlog = true
			if !sleep(ctx, c.retryDelay) {
				return ctx.Err()
			}
		case backlog && read == 0:
			backlog = false
		}
	}
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// process handles one entry and reports whether it should be acked. Entries
// that cannot be decoded are acked so they do not block the group.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage, handle Handler) bool {
	raw, ok := msg.Values[dataField].(string)
	if !ok {
		metrics.RecordStreamMessage("consume", errors.New("missing data field"))
		c.logger.Warn("dropping entry without data field", "id", msg.ID)
		return true
	}

	b, err := Decode([]byte(raw))
	if err != nil {
		metrics.RecordStreamMessage("consume", err)
		c.logger.Warn("dropping undecodable entry", "id", msg.ID, "err", err)
		return true
	}

	err = handle(ctx, b)
	metrics.RecordStreamMessage("consume", err)
	if err != nil {
		c.logger.Error("failed to handle batch", "id", msg.ID, "batch", b.ID, "err", err)
		return false
	}

	c.logger.Info("handled batch", "id", msg.ID, "batch", b.ID, "kind", b.Kind, "rows", len(b.Rows))
	return true
}
