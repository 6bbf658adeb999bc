// Package presence mirrors the relay's online set into an external store so
// sibling services can query who is connected without talking to the relay.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ajayjoseph-creator/vibex-relay/pkg/config"
)

// Mirror receives the full online set after every registry mutation.
// Implementations must not block the caller; mirroring is best-effort and a
// mirror failure never affects relay behavior.
type Mirror interface {
	Publish(online []string)
	Close() error
}

// Noop is the mirror used when no redis address is configured.
type Noop struct{}

func (Noop) Publish([]string) {}
func (Noop) Close() error     { return nil }

const onlineKey = "vibex:online"

// RedisMirror rewrites the online set under a single redis key on every
// change. Full rewrites keep the key consistent without tracking deltas.
type RedisMirror struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisMirror(cfg config.RedisConfig, logger *slog.Logger) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisMirror{
		client: client,
		logger: logger.With(slog.String("component", "presence_mirror")),
	}, nil
}

func (m *RedisMirror) Publish(online []string) {
	snapshot := make([]any, len(online))
	for i, userID := range online {
		snapshot[i] = userID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pipe := m.client.TxPipeline()
		pipe.Del(ctx, onlineKey)
		if len(snapshot) > 0 {
			pipe.SAdd(ctx, onlineKey, snapshot...)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			m.logger.Warn("Failed to mirror online set", slog.Any("error", err))
		}
	}()
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
