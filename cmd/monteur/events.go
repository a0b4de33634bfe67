package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"monteur/internal/infra/broker/kafka"
	"monteur/internal/infra/config"
	"monteur/internal/infra/inbox"
	infraoutbox "monteur/internal/infra/outbox"
)

// localProducer hands CloudEvents straight to the router when no broker is
// configured but the outbox is durable.
type localProducer struct {
	router *inbox.Router
}

func (p localProducer) Publish(ctx context.Context, _ string, _ string, payload []byte, _ map[string]string) error {
	evt, err := inbox.ParseCloudEvent(payload)
	if err != nil {
		return err
	}
	return p.router.Dispatch(ctx, evt)
}

// startEventPipeline runs the outbox worker and, with a broker, the
// consumer feeding the inbox router. The returned func waits for both.
func startEventPipeline(ctx context.Context, cfg config.Config, st *storage, router *inbox.Router, logger *slog.Logger) (func(), error) {
	var wg sync.WaitGroup
	var closers []func() error

	worker := &infraoutbox.Worker{
		Source:      st.source,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	if cfg.Durable() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, producer.Close)
		worker.Producer = producer

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, sarama.NewConfig(), kafka.CloudEventHandler{Router: router, Logger: logger})
		if err != nil {
			_ = producer.Close()
			return nil, err
		}
		closers = append(closers, consumer.Close)
		topics := infraoutbox.Topics(cfg.KafkaTopicPrefix, "reservation", "payment")
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("event consumer starting", "topics", topics, "group", cfg.KafkaGroupID)
			if err := consumer.Run(ctx, topics); err != nil && ctx.Err() == nil {
				logger.Error("event consumer stopped", "error", err)
			}
		}()
	} else {
		logger.Info("no broker configured, relaying outbox in process")
		worker.Producer = localProducer{router: router}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	return func() {
		wg.Wait()
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("event pipeline close failed", "error", err)
			}
		}
	}, nil
}
