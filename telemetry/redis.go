package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// Redis publishes each event on a channel and appends it to the session's
// history list.
type Redis struct {
	client  *redis.Client
	channel string
	log     logrus.FieldLogger
}

// NewRedis connects to addr (host:port).
func NewRedis(addr, channel string, log logrus.FieldLogger) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{Addr: addr}), channel, log)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, channel string, log logrus.FieldLogger) *Redis {
	if channel == "" {
		channel = "cosmic-isles:progress"
	}
	return &Redis{client: client, channel: channel, log: logger.OrDiscard(log)}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// historyKey is the list of events reported for a session.
func (r *Redis) historyKey(sessionID string) string {
	return r.channel + ":" + sessionID
}

func (r *Redis) Report(ctx context.Context, ev types.ProgressEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	if err := r.client.RPush(ctx, r.historyKey(ev.SessionID), data).Err(); err != nil {
		return fmt.Errorf("redis rpush failed: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	r.log.WithFields(logrus.Fields{"session": ev.SessionID, "island": ev.IslandIndex}).Debug("progress published")
	return nil
}

// History returns the events reported for a session, oldest first.
func (r *Redis) History(ctx context.Context, sessionID string) ([]types.ProgressEvent, error) {
	raw, err := r.client.LRange(ctx, r.historyKey(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	events := make([]types.ProgressEvent, 0, len(raw))
	for _, s := range raw {
		var ev types.ProgressEvent
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			r.log.WithError(err).WithField("session", sessionID).Warn("skipping malformed progress entry")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
