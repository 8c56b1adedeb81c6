package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the Kafka transport.
type KafkaConfig struct {
	Brokers []string
	// Topics are created with a single partition on Ping so each stream
	// keeps one total order.
	Topics []string
}

// Kafka publishes through one shared writer and consumes through one
// reader per subscription. Offsets are committed only on Ack.
type Kafka struct {
	cfg    KafkaConfig
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafka creates a Kafka transport. No connection is made until Ping
// or the first publish.
func NewKafka(cfg KafkaConfig, logger *slog.Logger) *Kafka {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			Compression:            kafka.Gzip,
		},
		logger: logger,
	}
}

// Ping dials the first broker and creates the configured topics.
func (k *Kafka) Ping(ctx context.Context) error {
	if len(k.cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", k.cfg.Brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	if len(k.cfg.Topics) == 0 {
		return nil
	}
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	cconn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cconn.Close()

	configs := make([]kafka.TopicConfig, len(k.cfg.Topics))
	for i, topic := range k.cfg.Topics {
		configs[i] = kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}
	}
	if err := cconn.CreateTopics(configs...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topics: %w", err)
	}
	k.logger.Info("kafka connected", slog.Any("brokers", k.cfg.Brokers), slog.Any("topics", k.cfg.Topics))
	return nil
}

// Publish implements Transport.
func (k *Kafka) Publish(ctx context.Context, topic string, msg Message) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(msg.Key),
		Value: msg.Value,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe implements Transport.
func (k *Kafka) Subscribe(_ context.Context, topic string, opts SubscribeOptions) (Consumer, error) {
	start := kafka.FirstOffset
	if opts.Latest {
		start = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.cfg.Brokers,
		Topic:       topic,
		GroupID:     opts.Group,
		StartOffset: start,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	k.logger.Info("kafka consumer started",
		slog.String("topic", topic),
		slog.String("group_id", opts.Group),
	)
	return &kafkaConsumer{reader: reader, topic: topic}, nil
}

// Close implements Transport.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

type kafkaConsumer struct {
	reader *kafka.Reader
	topic  string
}

func (c *kafkaConsumer) Fetch(ctx context.Context) (Delivery, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Delivery{}, ErrClosed
		}
		return Delivery{}, err
	}
	return Delivery{
		Message: Message{Key: string(m.Key), Value: m.Value},
		Topic:   c.topic,
		ack: func(ctx context.Context) error {
			return c.reader.CommitMessages(ctx, m)
		},
	}, nil
}

func (c *kafkaConsumer) Close() error {
	return c.reader.Close()
}
