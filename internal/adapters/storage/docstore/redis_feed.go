package docstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel carries document changes between server instances.
const DefaultRedisChannel = "sportify:changes"

// redisMessage is the wire form of a Change.
type redisMessage struct {
	Origin string `json:"origin"`
	Change
}

// RedisFeed is a Feed that also relays changes through Redis pub/sub so live
// queries on other instances refresh. Local delivery never waits on Redis.
type RedisFeed struct {
	local   *LocalFeed
	client  *redis.Client
	channel string
	origin  string
}

// Compile-time check that *RedisFeed satisfies Feed.
var _ Feed = (*RedisFeed)(nil)

// NewRedisFeed creates a feed relaying through client on channel.
// PRE: client is connected
func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisFeed{
		local:   NewLocalFeed(),
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

// Publish delivers c locally, then relays it to other instances.
// A relay failure is logged; local listeners have already been notified.
func (f *RedisFeed) Publish(ctx context.Context, c Change) {
	f.local.Publish(ctx, c)
	body, err := json.Marshal(redisMessage{Origin: f.origin, Change: c})
	if err != nil {
		slog.Error("feed_event", "event", "encode_failed", "error", err)
		return
	}
	if err := f.client.Publish(ctx, f.channel, body).Err(); err != nil {
		slog.Warn("feed_event", "event", "relay_failed", "collection", c.Collection, "error", err)
	}
}

// Listen registers fn for local and relayed changes.
func (f *RedisFeed) Listen(fn func(Change)) func() {
	return f.local.Listen(fn)
}

// Run consumes relayed changes until ctx is done.
// POST: every change published by another instance is delivered locally
func (f *RedisFeed) Run(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	slog.Info("feed_event", "event", "relay_subscribed", "channel", f.channel)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.handle(ctx, msg.Payload)
		}
	}
}

// handle delivers one relayed payload, skipping this instance's own changes.
func (f *RedisFeed) handle(ctx context.Context, payload string) {
	var m redisMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		slog.Warn("feed_event", "event", "decode_failed", "error", err)
		return
	}
	if m.Origin == f.origin || m.Collection == "" {
		return
	}
	f.local.Publish(ctx, m.Change)
}
