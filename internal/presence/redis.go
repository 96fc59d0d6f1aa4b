package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// Redis keys: events are published on presence:<room>, the online set lives
// at presence:<room>:online.
func redisChannel(room string) string   { return "presence:" + room }
func redisOnlineKey(room string) string { return "presence:" + room + ":online" }

type redisTransport struct {
	client *redis.Client
	local  chan models.PresenceEvent

	mu   sync.Mutex
	room string
	sub  *redis.PubSub
	msgs <-chan *redis.Message
}

// RedisDialer builds a transport over Redis pub/sub. The client is shared and
// not closed by the transport.
func RedisDialer(client *redis.Client) Dialer {
	return func(ctx context.Context) (Transport, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping presence redis: %w", err)
		}
		return &redisTransport{client: client, local: make(chan models.PresenceEvent, 4)}, nil
	}
}

func (t *redisTransport) Join(ctx context.Context, room string) error {
	sub := t.client.Subscribe(ctx, redisChannel(room))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe presence room %s: %w", room, err)
	}
	t.mu.Lock()
	t.room = room
	t.sub = sub
	t.msgs = sub.Channel()
	t.mu.Unlock()
	return nil
}

func (t *redisTransport) RequestSnapshot(ctx context.Context) error {
	t.mu.Lock()
	room := t.room
	t.mu.Unlock()
	if room == "" {
		return errors.New("presence room not joined")
	}
	ids, err := t.client.SMembers(ctx, redisOnlineKey(room)).Result()
	if err != nil {
		return fmt.Errorf("load presence snapshot: %w", err)
	}
	select {
	case t.local <- models.PresenceEvent{Kind: models.PresenceSnapshot, UserIDs: ids}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *redisTransport) Receive(ctx context.Context) (models.PresenceEvent, error) {
	t.mu.Lock()
	msgs := t.msgs
	t.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return models.PresenceEvent{}, ctx.Err()
		case ev := <-t.local:
			return ev, nil
		case msg, ok := <-msgs:
			if !ok {
				return models.PresenceEvent{}, ErrClosed
			}
			var ev models.PresenceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			return ev, nil
		}
	}
}

func (t *redisTransport) Close() error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Close()
}
