// Package kafkaconsumer feeds document changes from a Kafka topic into the
// indexer.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
	obs "github.com/mohammed-shakir/geoshape-index/internal/core/observability"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	mylog "github.com/mohammed-shakir/geoshape-index/internal/logger"
)

// Applier applies one document change.
type Applier interface {
	Apply(ctx context.Context, ch model.Change) error
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	apply  Applier
}

func New(cfg Config, logger *slog.Logger, apply Applier) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{cfg: cfg, logger: logger, apply: apply}
}

func (c *Consumer) handler() *claimHandler {
	return &claimHandler{process: c.ProcessOne, log: c.logger}
}

// Start consumes the topic until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.apply == nil {
		return errors.New("kafkaconsumer: missing indexer")
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, c.cfg.Sarama())
	if err != nil {
		return errors.Wrap(err, "create consumer group")
	}
	defer func() { _ = group.Close() }()

	go func() {
		for err := range group.Errors() {
			obs.IncKafkaConsumerError("group")
			c.logger.Warn("consumer group error", "err", err)
		}
	}()

	c.logger.Info("kafka document consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	h := c.handler()
	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, h); err != nil {
			c.logger.Error("consumer session failed", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.RetryBackoff):
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("kafka document consumer shutting down")
			return nil
		}
	}
}

// ProcessOne applies a single change message. Documents the schema rejects
// are logged and skipped; store failures are returned so the message is
// not marked.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ch model.Change
	if err := json.Unmarshal(msg.Value, &ch); err != nil {
		obs.IncKafkaConsumerError("decode")
		c.logFailure(ctx, msg, "decode", err)
		return nil
	}
	if ch.ID == "" {
		obs.IncKafkaConsumerError("missing_id")
		c.logFailure(ctx, msg, "missing_id", errors.New("change has no document id"))
		return nil
	}

	ctx = mylog.WithDocID(ctx, ch.ID)
	err := c.apply.Apply(ctx, ch)
	switch {
	case err == nil:
		c.logger.Debug("change applied", "id", ch.ID, "op", ch.Op)
		return nil
	case errors.Is(err, geoerr.ErrGeometryParse),
		errors.Is(err, geoerr.ErrGeometryOperation),
		errors.Is(err, geoerr.ErrConfiguration):
		obs.IncKafkaConsumerError("rejected")
		c.logFailure(ctx, msg, "rejected", err)
		return nil
	default:
		obs.IncKafkaConsumerError("apply")
		c.logFailure(ctx, msg, "apply", err)
		return errors.Wrapf(err, "apply %s %q", ch.Op, ch.ID)
	}
}

func (c *Consumer) logFailure(ctx context.Context, msg *sarama.ConsumerMessage, kind string, err error) {
	c.logger.ErrorContext(ctx, "kafka change failed",
		"kind", kind,
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"err", err)
}
