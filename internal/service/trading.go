package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/metrics"
	"github.com/efreitasn/stocksim/internal/protocol"
	"github.com/efreitasn/stocksim/internal/report"
	"github.com/efreitasn/stocksim/internal/scheduler"
	"github.com/efreitasn/stocksim/internal/store"
	"github.com/efreitasn/stocksim/internal/strategy"
	"github.com/efreitasn/stocksim/internal/transport"
)

// TradingOptions configures a TradingService.
type TradingOptions struct {
	SnapshotTopic string
	ActivityTopic string
	// ConsumerGroup is the snapshot consumer's group. Every trading
	// process needs its own group to see every snapshot.
	ConsumerGroup string
	// Session stamps every emitted activity. Empty generates one.
	Session string
	// BrokerDelay paces brokers within a round.
	BrokerDelay time.Duration
	// ReadyPoll is the log cadence while waiting for the first snapshot.
	ReadyPoll time.Duration
	// Console receives the per-round tables. Nil disables them.
	Console io.Writer
	// ReplayBacklog makes a new snapshot group start at the beginning of
	// the topic instead of at its end. Only a bus that starts empty with
	// the process should set it.
	ReplayBacklog bool
}

// TradingService runs the trading side: a consumer replacing the replica
// on every snapshot, and one round per tick in which every broker
// decides and acts in roster order.
type TradingService struct {
	brokers   *store.BrokerStore
	replica   *store.Replica
	rng       strategy.Source
	transport transport.Transport
	opts      TradingOptions
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewTradingService creates a TradingService. rng is only used from the
// round goroutine.
func NewTradingService(
	brokers *store.BrokerStore,
	replica *store.Replica,
	rng strategy.Source,
	tr transport.Transport,
	opts TradingOptions,
	m *metrics.Metrics,
	logger *slog.Logger,
) *TradingService {
	if opts.SnapshotTopic == "" {
		opts.SnapshotTopic = protocol.SnapshotStream
	}
	if opts.ActivityTopic == "" {
		opts.ActivityTopic = protocol.ActivityStream
	}
	if opts.Session == "" {
		opts.Session = uuid.NewString()
	}
	if m == nil {
		m = metrics.New("trading")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TradingService{
		brokers:   brokers,
		replica:   replica,
		rng:       rng,
		transport: tr,
		opts:      opts,
		metrics:   m,
		logger:    logger.With(slog.String("session", opts.Session)),
	}
}

// Session returns the id stamped on this process's activities.
func (s *TradingService) Session() string {
	return s.opts.Session
}

// ConsumeSnapshots replaces the replica with every snapshot received
// until ctx is cancelled or the transport is closed.
func (s *TradingService) ConsumeSnapshots(ctx context.Context) error {
	consumer, err := s.transport.Subscribe(ctx, s.opts.SnapshotTopic, transport.SubscribeOptions{
		Group:  s.opts.ConsumerGroup,
		Latest: !s.opts.ReplayBacklog,
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.opts.SnapshotTopic, err)
	}
	defer consumer.Close()

	s.logger.Info("consuming stock updates", slog.String("topic", s.opts.SnapshotTopic))
	return consume(ctx, consumer, s.logger, s.HandleSnapshot)
}

// HandleSnapshot decodes one delivery into the replica, then acks it.
// A malformed snapshot leaves the replica untouched.
func (s *TradingService) HandleSnapshot(ctx context.Context, d transport.Delivery) {
	stream := s.opts.SnapshotTopic
	s.metrics.Consumed.WithLabelValues(stream).Inc()

	snap, err := protocol.DecodeSnapshot(d.Value)
	if err != nil {
		s.metrics.Malformed.WithLabelValues(stream).Inc()
		s.logger.Warn("failed to parse stock updates", slog.String("error", err.Error()))
	} else {
		s.replica.Replace(snap)
		s.metrics.ReplicaSize.Set(float64(len(snap)))
		s.logger.Debug("replica replaced", slog.Int("instruments", len(snap)))
	}

	if err := d.Ack(ctx); err != nil {
		s.metrics.AckFailures.WithLabelValues(stream).Inc()
		s.logger.Error("failed to acknowledge message",
			slog.String("stream", stream),
			slog.String("error", err.Error()),
		)
	}
}

// PrintAccounts writes the broker account table to the console.
func (s *TradingService) PrintAccounts(title string) {
	if s.opts.Console == nil {
		return
	}
	if err := report.Brokers(s.opts.Console, title, s.brokers.All(), s.replica.Current()); err != nil {
		s.logger.Warn("print broker accounts", slog.String("error", err.Error()))
	}
}

// Round waits for the first snapshot, then runs every broker's decide
// and act steps sequentially against one copy of the replica and
// publishes each resulting activity. It has the scheduler.TickFunc
// signature. An empty replica skips the round.
func (s *TradingService) Round(ctx context.Context, now time.Time) {
	err := s.replica.WaitReady(ctx, s.opts.ReadyPoll, func() {
		s.logger.Info("waiting for stock data")
	})
	if err != nil {
		return
	}

	replica := s.replica.Current()
	if len(replica) == 0 {
		s.metrics.Rounds.WithLabelValues("skipped").Inc()
		s.logger.Info("no stocks available for trading", slog.String("time", now.Format(scheduler.DisplayLayout)))
		return
	}

	s.PrintAccounts("Current Broker Accounts")
	if s.opts.Console != nil {
		if err := report.Instruments(s.opts.Console, "Updated Stock Prices", replica); err != nil {
			s.logger.Warn("print stock prices", slog.String("error", err.Error()))
		}
	}

	for _, b := range s.brokers.All() {
		if s.opts.BrokerDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.opts.BrokerDelay):
			}
		}
		s.runBroker(ctx, b, replica)
	}
	s.metrics.Rounds.WithLabelValues("ok").Inc()
}

func (s *TradingService) runBroker(ctx context.Context, b *domain.Broker, replica []domain.Instrument) {
	b.Mu.Lock()
	intent, a, ok := strategy.Step(b, replica, s.rng)
	if ok {
		a.Session = s.opts.Session
		a.Seq = b.NextSeq()
	}
	cash := b.Cash
	total := b.TotalValue(replica)
	b.Mu.Unlock()

	label := metrics.BrokerLabel(b.ID)
	s.metrics.BrokerCash.WithLabelValues(label).Set(cash.InexactFloat64())
	s.metrics.BrokerTotalValue.WithLabelValues(label).Set(total.InexactFloat64())

	if !ok {
		s.logger.Info("broker holding position",
			slog.Int("broker_id", b.ID),
			slog.String("strategy", b.Variant.String()),
			slog.String("intent", intent.String()),
		)
		return
	}

	s.logger.Info("broker activity",
		slog.Int("broker_id", b.ID),
		slog.String("strategy", b.Variant.String()),
		slog.String("intent", intent.String()),
		slog.String("action", string(a.Action)),
		slog.String("stock_id", a.Ticker),
		slog.Int64("quantity", a.Quantity),
		slog.Uint64("seq", a.Seq),
	)
	s.metrics.BrokerActivities.WithLabelValues(label, string(a.Action)).Inc()

	if err := s.publishActivity(ctx, a); err != nil {
		s.logger.Error("failed to send broker activity",
			slog.Int("broker_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TradingService) publishActivity(ctx context.Context, a domain.Activity) error {
	payload, err := protocol.EncodeActivity(a)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	err = s.transport.Publish(ctx, s.opts.ActivityTopic, transport.Message{
		Key:   strconv.Itoa(a.BrokerID),
		Value: payload,
	})
	if err != nil {
		s.metrics.PublishFailures.WithLabelValues(s.opts.ActivityTopic).Inc()
		return err
	}
	s.metrics.Published.WithLabelValues(s.opts.ActivityTopic).Inc()
	return nil
}
