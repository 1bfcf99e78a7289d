package kafkaconsumer

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"

	mylog "github.com/mohammed-shakir/geoshape-index/internal/logger"
)

// claimHandler applies the changes of each claimed partition in offset
// order. A change is marked only once applied, so one that failed is
// delivered again to whichever member owns the partition next.
type claimHandler struct {
	process func(context.Context, *sarama.ConsumerMessage) error
	log     *slog.Logger
}

func (h *claimHandler) Setup(s sarama.ConsumerGroupSession) error {
	h.log.Info("partitions assigned",
		"member", s.MemberID(), "generation", s.GenerationID(), "claims", s.Claims())
	return nil
}

// Cleanup flushes the marked offsets before the partitions move on.
func (h *claimHandler) Cleanup(s sarama.ConsumerGroupSession) error {
	s.Commit()
	h.log.Info("partitions released", "generation", s.GenerationID())
	return nil
}

func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := mylog.WithComponent(sess.Context(), "kafka_consumer")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(ctx, msg); err != nil {
				return errors.Wrapf(err, "%s/%d at offset %d", msg.Topic, msg.Partition, msg.Offset)
			}
			sess.MarkMessage(msg, "")
		}
	}
}
