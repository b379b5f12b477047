package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/logger"
)

// KeyPrefix namespaces progress keys in a shared Redis.
const KeyPrefix = "cosmicisles:"

// Redis stores progress as plain string values.
type Redis struct {
	client *redis.Client
	log    logrus.FieldLogger
}

// NewRedis connects to addr (host:port).
func NewRedis(addr string, log logrus.FieldLogger) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{Addr: addr}), log)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, log logrus.FieldLogger) *Redis {
	return &Redis{client: client, log: logger.OrDiscard(log)}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *Redis) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, KeyPrefix+key, data, 0).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis SET failed")
		return fmt.Errorf("redis set failed: %w", err)
	}
	r.log.WithFields(logrus.Fields{"key": key, "bytes": len(data)}).Debug("redis SET successful")
	return nil
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.log.WithField("key", key).Debug("redis key not found")
		return nil, false, nil
	}
	if err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis GET failed")
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return data, true, nil
}

func (r *Redis) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, KeyPrefix+key).Err(); err != nil {
		r.log.WithError(err).WithField("key", key).Error("redis DEL failed")
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
