package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CZERTAINLY/Spotter/internal/model"

	backend "github.com/redis/go-redis/v9"
)

// Redis publishes notifications as JSON to a pub/sub channel.
type Redis struct {
	client  *backend.Client
	channel string
}

func NewRedis(cfg model.Redis) *Redis {
	rdb := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisFromClient(rdb, cfg.Channel)
}

func NewRedisFromClient(client *backend.Client, channel string) *Redis {
	return &Redis{
		client:  client,
		channel: channel,
	}
}

func (r *Redis) Notify(ctx context.Context, n model.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		return fmt.Errorf("publishing to redis channel %s: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
