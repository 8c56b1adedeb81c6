// Package transport is the opaque publish/consume channel between the
// market and trading sides. Delivery is at-least-once and FIFO within a
// topic: a message stays pending for its consumer group until acked.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport closed")

// Message is one payload on a topic.
type Message struct {
	Key   string
	Value []byte
}

// Delivery is a fetched message awaiting acknowledgment. Until Ack
// succeeds the message may be delivered again.
type Delivery struct {
	Message
	Topic string
	ack   func(ctx context.Context) error
}

// Ack marks the delivery as processed for its consumer group.
func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// SubscribeOptions selects the consumer group of a subscription.
// Subscribers in the same group share the stream; separate groups each
// see every message.
type SubscribeOptions struct {
	Group string
	// Latest makes a new group start after the messages already on the
	// topic instead of at the beginning.
	Latest bool
}

// Consumer fetches deliveries from one topic for one consumer group.
type Consumer interface {
	// Fetch blocks until a delivery is available or ctx is done.
	Fetch(ctx context.Context) (Delivery, error)
	Close() error
}

// Transport publishes messages and opens consumers.
type Transport interface {
	// Ping verifies the transport can be reached.
	Ping(ctx context.Context) error
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string, opts SubscribeOptions) (Consumer, error)
	Close() error
}

// Transport kinds.
const (
	KindMemory = "memory"
	KindKafka  = "kafka"
	KindRedis  = "redis"
)

// Config selects and configures a transport.
type Config struct {
	Kind          string
	KafkaBrokers  []string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Topics are created up front when the backend supports it.
	Topics []string
}

// Open builds the configured transport and verifies it is reachable. A
// failure here is fatal for the caller.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Transport, error) {
	var t Transport
	switch strings.ToLower(cfg.Kind) {
	case KindMemory:
		t = NewMemory()
	case KindKafka:
		t = NewKafka(KafkaConfig{Brokers: cfg.KafkaBrokers, Topics: cfg.Topics}, logger)
	case KindRedis:
		t = NewRedis(RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, logger)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Kind)
	}
	if err := t.Ping(ctx); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("connect %s transport: %w", cfg.Kind, err)
	}
	return t, nil
}
