package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis Streams transport.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// MaxLen caps each stream approximately. Zero keeps everything.
	MaxLen int64
}

const (
	redisKeyField   = "key"
	redisValueField = "value"
	redisBlock      = time.Second
)

// Redis maps topics to Redis streams and subscriptions to consumer
// groups. Entries stay in the group's pending list until acked, and a
// restarted consumer reads its pending entries before new ones.
type Redis struct {
	client *redis.Client
	maxLen int64
	logger *slog.Logger
}

// NewRedis creates a Redis transport.
func NewRedis(cfg RedisConfig, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		maxLen: cfg.MaxLen,
		logger: logger,
	}
}

// Ping implements Transport.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return err
	}
	r.logger.Info("redis connected", slog.String("addr", r.client.Options().Addr))
	return nil
}

// Publish implements Transport.
func (r *Redis) Publish(ctx context.Context, topic string, msg Message) error {
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: r.maxLen,
		Approx: r.maxLen > 0,
		Values: map[string]any{redisKeyField: msg.Key, redisValueField: msg.Value},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe implements Transport. The consumer group is created on first
// use.
func (r *Redis) Subscribe(ctx context.Context, topic string, opts SubscribeOptions) (Consumer, error) {
	if opts.Group == "" {
		return nil, errors.New("redis subscriptions need a consumer group")
	}
	start := "0"
	if opts.Latest {
		start = "$"
	}
	err := r.client.XGroupCreateMkStream(ctx, topic, opts.Group, start).Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create group %s on %s: %w", opts.Group, topic, err)
	}
	return &redisConsumer{client: r.client, topic: topic, group: opts.Group, pending: "0"}, nil
}

// Close implements Transport.
func (r *Redis) Close() error {
	return r.client.Close()
}

type redisConsumer struct {
	client *redis.Client
	topic  string
	group  string
	// pending walks the group's unacked backlog by entry ID until it is
	// drained; then pendingDone is set and only new entries are read.
	pending     string
	pendingDone bool
}

func (c *redisConsumer) Fetch(ctx context.Context) (Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Delivery{}, err
		}
		id := ">"
		block := redisBlock
		if !c.pendingDone {
			id = c.pending
			block = -1
		}
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.group,
			Streams:  []string{c.topic, id},
			Count:    1,
			Block:    block,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case errors.Is(err, redis.ErrClosed):
			return Delivery{}, ErrClosed
		case err != nil:
			return Delivery{}, err
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			c.pendingDone = true
			continue
		}
		m := streams[0].Messages[0]
		if !c.pendingDone {
			c.pending = m.ID
		}
		return c.delivery(m), nil
	}
}

func (c *redisConsumer) delivery(m redis.XMessage) Delivery {
	key, _ := m.Values[redisKeyField].(string)
	value, _ := m.Values[redisValueField].(string)
	return Delivery{
		Message: Message{Key: key, Value: []byte(value)},
		Topic:   c.topic,
		ack: func(ctx context.Context) error {
			return c.client.XAck(ctx, c.topic, c.group, m.ID).Err()
		},
	}
}

func (c *redisConsumer) Close() error { return nil }
