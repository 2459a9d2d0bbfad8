package notify

import (
	"context"
	"encoding/json"

	redislib "github.com/redis/go-redis/v9"

	"github.com/immolink/backend/domain"
)

// Publisher pushes one serialized notification onto the delivery channel.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

type redisPublisher struct {
	client  *redislib.Client
	channel string
}

// NewRedisPublisher publishes notifications as JSON on a pub/sub channel
// that the push gateway subscribes to.
func NewRedisPublisher(client *redislib.Client, channel string) Publisher {
	if channel == "" {
		channel = "collaboration.events"
	}
	return &redisPublisher{client: client, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}
