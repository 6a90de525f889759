package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/config"
)

const channelPrefix = "draftwise:session:"

// Channel returns the redis channel of a session.
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// RedisBus fans events out through redis pub/sub so every server instance
// can stream any session.
type RedisBus struct {
	rdb    *redis.Client
	logger *zap.Logger
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewRedisBus connects to redis and verifies the connection.
func NewRedisBus(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBus{rdb: rdb, logger: logger, done: make(chan struct{})}, nil
}

// Publish sends ev on the session channel.
func (b *RedisBus) Publish(ctx context.Context, sessionID string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel(sessionID), raw).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the session channel until cancel is called or ctx is
// done.
func (b *RedisBus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	ctx, stop := context.WithCancel(ctx)
	sub := b.rdb.Subscribe(ctx, Channel(sessionID))
	if _, err := sub.Receive(ctx); err != nil {
		stop()
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.logger.Warn("bad redis stream payload", zap.String("channel", m.Channel), zap.Error(err))
					continue
				}
				if dropped, ok := offer(out, ev); ok {
					b.logger.Warn("dropping stream event for slow subscriber",
						zap.String("session_id", sessionID),
						zap.String("type", string(dropped.Type)),
					)
				}
			}
		}
	}()
	return out, stop, nil
}

// Close stops every forwarder and closes the client.
func (b *RedisBus) Close() error {
	b.once.Do(func() { close(b.done) })
	b.wg.Wait()
	return b.rdb.Close()
}
