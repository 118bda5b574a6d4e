// Package redis connects the relay to the backend over pub/sub: user
// online/offline events go out, backend-originated room events come in.
package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"chat-relay/internal/models"
)

// Channel the relay publishes presence transitions on.
const presenceChannel = "presence"

// Event types published for the backend.
const (
	EventPresenceJoin  = "presence:join"
	EventPresenceLeave = "presence:leave"
)

type Client struct {
	rdb *redis.Client
	ctx context.Context
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		panic(err)
	}

	rdb := redis.NewClient(opt)
	ctx := context.Background()

	// Test connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		panic(err)
	}

	slog.Info("Connected to Redis")

	return &Client{
		rdb: rdb,
		ctx: ctx,
	}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// PublishPresenceJoin announces that a user came online (first live
// connection opened).
func (c *Client) PublishPresenceJoin(userId string) error {
	event := models.Event{
		Type:      EventPresenceJoin,
		Timestamp: time.Now().Unix(),
		Data: map[string]string{
			"userId": userId,
		},
	}
	return c.publishEvent(presenceChannel, event)
}

// PublishPresenceLeave announces that a user went offline (last live
// connection closed).
func (c *Client) PublishPresenceLeave(userId string) error {
	event := models.Event{
		Type:      EventPresenceLeave,
		Timestamp: time.Now().Unix(),
		Data: map[string]string{
			"userId": userId,
		},
	}
	return c.publishEvent(presenceChannel, event)
}

func (c *Client) publishEvent(channel string, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("[REDIS] Failed to marshal event", "type", event.Type, "channel", channel, "error", err)
		return err
	}

	if err := c.rdb.Publish(c.ctx, channel, payload).Err(); err != nil {
		slog.Error("[REDIS] Failed to publish event", "type", event.Type, "channel", channel, "error", err)
		return err
	}

	return nil
}
