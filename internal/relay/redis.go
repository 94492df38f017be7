package relay

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func workspaceChannel(workspaceID string) string {
	return "canvas:workspace:" + workspaceID
}

var _ Relay = (*Redis)(nil)

// Redis relays envelopes over redis pub/sub, one channel per workspace.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, workspaceChannel(env.WorkspaceID), data).Err()
}

func (r *Redis) Subscribe(ctx context.Context, workspaceID string) (<-chan *Envelope, error) {
	pubsub := r.client.Subscribe(ctx, workspaceChannel(workspaceID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan *Envelope, subscriptionBuffer)
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				env := &Envelope{}
				if err := json.Unmarshal([]byte(msg.Payload), env); err != nil {
					logrus.Errorf("relay: dropping malformed envelope on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the redis client belongs to the caller.
func (r *Redis) Close() error {
	return nil
}
