package stream

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"metobs/internal/metrics"
)

// Publisher appends batches to a Redis stream
type Publisher struct {
	client redis.Cmdable
	stream string
}

func NewPublisher(client redis.Cmdable, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Publish adds the batch to the stream and returns the entry id
func (p *Publisher) Publish(ctx context.Context, b Batch) (string, error) {
	args, err := p.xaddArgs(b)
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, args).Result()
	metrics.RecordStreamMessage("publish", err)
	if err != nil {
		return "", fmt.Errorf("failed to publish batch %s to %s: %w", b.ID, p.stream, err)
	}
	return id, nil
}

func (p *Publisher) xaddArgs(b Batch) (*redis.XAddArgs, error) {
	data, err := Encode(b)
	if err != nil {
		return nil, err
	}
	return &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{dataField: string(data)},
	}, nil
}
