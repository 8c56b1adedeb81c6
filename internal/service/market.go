package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/efreitasn/stocksim/internal/metrics"
	"github.com/efreitasn/stocksim/internal/protocol"
	"github.com/efreitasn/stocksim/internal/report"
	"github.com/efreitasn/stocksim/internal/scheduler"
	"github.com/efreitasn/stocksim/internal/transport"
)

// fetchRetryDelay is the pause after a failed fetch before the consumer
// loop tries again.
const fetchRetryDelay = time.Second

// MarketOptions configures a MarketService.
type MarketOptions struct {
	SnapshotTopic string
	ActivityTopic string
	// ConsumerGroup is the group the activity consumer joins.
	ConsumerGroup string
	// Console receives the per-round price table. Nil disables it.
	Console io.Writer
}

// MarketService runs the market side: one fluctuate-and-publish round per
// tick, and a consumer applying broker activities to the registry.
type MarketService struct {
	registry   *engine.Registry
	fluctuator *engine.Fluctuator
	processor  *engine.Processor
	transport  transport.Transport
	opts       MarketOptions
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(
	registry *engine.Registry,
	fluctuator *engine.Fluctuator,
	processor *engine.Processor,
	tr transport.Transport,
	opts MarketOptions,
	m *metrics.Metrics,
	logger *slog.Logger,
) *MarketService {
	if opts.SnapshotTopic == "" {
		opts.SnapshotTopic = protocol.SnapshotStream
	}
	if opts.ActivityTopic == "" {
		opts.ActivityTopic = protocol.ActivityStream
	}
	if m == nil {
		m = metrics.New("market")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		registry:   registry,
		fluctuator: fluctuator,
		processor:  processor,
		transport:  tr,
		opts:       opts,
		metrics:    m,
		logger:     logger,
	}
}

// Round perturbs every price and publishes the resulting snapshot. It
// has the scheduler.TickFunc signature. A failed publish is logged and
// the round ends; the next round publishes a fresh snapshot.
func (s *MarketService) Round(ctx context.Context, now time.Time) {
	snap := s.registry.Fluctuate(s.fluctuator.Draw)
	s.observe(snap)

	if s.opts.Console != nil {
		title := fmt.Sprintf("Stock Prices at %s", now.Format(scheduler.DisplayLayout))
		if err := report.Instruments(s.opts.Console, title, snap); err != nil {
			s.logger.Warn("print stock prices", slog.String("error", err.Error()))
		}
	}

	if err := s.PublishSnapshot(ctx, snap); err != nil {
		s.metrics.Rounds.WithLabelValues("publish_failed").Inc()
		s.logger.Error("failed to send stock updates",
			slog.String("time", now.Format(scheduler.DisplayLayout)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.Rounds.WithLabelValues("ok").Inc()
	s.logger.Info("stock updates sent",
		slog.String("time", now.Format(scheduler.DisplayLayout)),
		slog.Int("instruments", len(snap)),
	)
}

// PublishSnapshot encodes snap and publishes it on the snapshot topic.
func (s *MarketService) PublishSnapshot(ctx context.Context, snap []domain.Instrument) error {
	payload, err := protocol.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	err = s.transport.Publish(ctx, s.opts.SnapshotTopic, transport.Message{
		Key:   uuid.NewString(),
		Value: payload,
	})
	if err != nil {
		s.metrics.PublishFailures.WithLabelValues(s.opts.SnapshotTopic).Inc()
		return err
	}
	s.metrics.Published.WithLabelValues(s.opts.SnapshotTopic).Inc()
	return nil
}

// ConsumeActivities applies broker activities one at a time until ctx is
// cancelled or the transport is closed.
func (s *MarketService) ConsumeActivities(ctx context.Context) error {
	consumer, err := s.transport.Subscribe(ctx, s.opts.ActivityTopic, transport.SubscribeOptions{
		Group: s.opts.ConsumerGroup,
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.opts.ActivityTopic, err)
	}
	defer consumer.Close()

	s.logger.Info("consuming broker activities", slog.String("topic", s.opts.ActivityTopic))
	return consume(ctx, consumer, s.logger, s.HandleActivity)
}

// HandleActivity decodes and applies one delivery, then acks it.
// Malformed payloads are logged and acked so they are not redelivered.
// The ack happens only after the apply attempt finished.
func (s *MarketService) HandleActivity(ctx context.Context, d transport.Delivery) {
	stream := s.opts.ActivityTopic
	s.metrics.Consumed.WithLabelValues(stream).Inc()

	a, err := protocol.DecodeActivity(d.Value)
	if err != nil {
		s.metrics.Malformed.WithLabelValues(stream).Inc()
		s.logger.Warn("failed to parse broker activity", slog.String("error", err.Error()))
	} else {
		outcome, err := s.processor.Apply(ctx, a)
		if err != nil {
			s.logger.Error("broker activity not applied",
				slog.String("activity", a.String()),
				slog.String("error", err.Error()),
			)
			return
		}
		s.metrics.ActivityOutcomes.WithLabelValues(outcome.String()).Inc()
	}

	if err := d.Ack(ctx); err != nil {
		s.metrics.AckFailures.WithLabelValues(stream).Inc()
		s.logger.Error("failed to acknowledge message",
			slog.String("stream", stream),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) observe(snap []domain.Instrument) {
	for _, in := range snap {
		s.metrics.InstrumentPrice.WithLabelValues(in.Ticker).Set(in.Price.InexactFloat64())
		s.metrics.InstrumentQty.WithLabelValues(in.Ticker).Set(float64(in.Available))
	}
}

// consume runs handle for every delivery until ctx is done or the
// transport closes. Fetch errors are logged and retried after a pause.
func consume(ctx context.Context, c transport.Consumer, logger *slog.Logger, handle func(context.Context, transport.Delivery)) error {
	for {
		d, err := c.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				return nil
			}
			logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchRetryDelay):
			}
			continue
		}
		handle(ctx, d)
	}
}
