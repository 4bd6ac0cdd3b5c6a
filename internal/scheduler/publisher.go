package scheduler

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

const streamPrefix = "tenantly:events:"

// Publisher delivers relayed outbox events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxMessage is one outbox row on its way out.
type OutboxMessage struct {
	ID             string
	OrganizationID string
	Topic          string
	Payload        []byte
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher appends events to one redis stream per topic. Without a
// redis client there is nowhere to deliver and it returns nil.
func NewRedisPublisher(client *redis.Client) Publisher {
	if client == nil {
		return nil
	}
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, event OutboxMessage) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamPrefix + event.Topic,
		Values: map[string]any{
			"id":              event.ID,
			"organization_id": event.OrganizationID,
			"payload":         string(event.Payload),
		},
	}).Err()
}
