package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"monteur/internal/infra/inbox"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			// left unmarked; the group redelivers from the last committed offset
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// Dispatcher receives decoded integration events.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt inbox.Event) error
}

// CloudEventHandler decodes CloudEvents payloads and hands them to the
// inbox router. Malformed messages are logged and acknowledged.
type CloudEventHandler struct {
	Router Dispatcher
	Logger *slog.Logger
}

func (h CloudEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	evt, err := inbox.ParseCloudEvent(msg.Value)
	if err != nil {
		logger.WarnContext(ctx, "dropping malformed event", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return nil
	}
	if err := h.Router.Dispatch(ctx, evt); err != nil {
		logger.ErrorContext(ctx, "event handling failed", "event", evt.Type, "id", evt.ID, "error", err)
		return err
	}
	return nil
}
