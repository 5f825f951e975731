package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kthendral/optimizehub/internal/platform/logger"
)

// RedisBus forwards Events over a single Redis pub/sub channel.
// Grounded on internal/realtime/bus/redis_bus.go, adapted field for
// field to the jobstore domain (SSEMessage -> Event) and to this
// spec's REDIS_ADDR/REDIS_CHANNEL configuration (§6).
type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus dials addr and verifies connectivity before returning,
// so a misconfigured REALTIME_BUS fails fast at startup rather than on
// the first publish.
func NewRedisBus(log *logger.Logger, addr, channel string) (*RedisBus, error) {
	if addr == "" {
		return nil, fmt.Errorf("bus: REDIS_ADDR is required when REALTIME_BUS=redis")
	}
	if channel == "" {
		channel = "optimizehub:job-events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("bus: redis ping: %w", err)
	}

	return &RedisBus{
		log:     log.With("component", "RedisJobEventBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bus: encode event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBus) StartForwarder(ctx context.Context, onEvent func(ev Event)) error {
	if onEvent == nil {
		return fmt.Errorf("bus: onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("bus: redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad job-event payload on bus", "error", err.Error())
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *RedisBus) Close() error {
	if b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
