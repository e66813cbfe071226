package observability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// Publisher publishes a message on a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

type rueidisPublisher struct {
	client rueidis.Client
}

// NewRedisClient connects to the Redis server at addr.
func NewRedisClient(addr string) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRueidisPublisher wraps a rueidis client as a Publisher.
func NewRueidisPublisher(client rueidis.Client) Publisher {
	return &rueidisPublisher{client: client}
}

func (p *rueidisPublisher) Publish(ctx context.Context, channel, message string) error {
	cmd := p.client.B().Publish().Channel(channel).Message(message).Build()
	return p.client.Do(ctx, cmd).Error()
}

// redisNotifier publishes each alert as JSON on <prefix>:<project_id>.
type redisNotifier struct {
	pub    Publisher
	prefix string
}

// NewRedisNotifier creates a Notifier that publishes alerts through pub.
func NewRedisNotifier(pub Publisher, channelPrefix string) Notifier {
	return &redisNotifier{pub: pub, prefix: channelPrefix}
}

// Channel returns the pub/sub channel for a project.
func Channel(prefix, projectID string) string {
	return prefix + ":" + projectID
}

func (r *redisNotifier) Notify(ctx context.Context, alerts []models.Alert) error {
	for _, a := range alerts {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshaling alert %s: %w", a.ID, err)
		}
		if err := r.pub.Publish(ctx, Channel(r.prefix, a.ProjectID), string(payload)); err != nil {
			return fmt.Errorf("publishing alert %s: %w", a.ID, err)
		}
	}
	return nil
}
