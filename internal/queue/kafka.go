package queue

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	producerWriteTimeout = 5 * time.Second
	producerMaxAttempts  = 3
)

// FailureHandler receives each message the producer gave up on
type FailureHandler func(key, value []byte, err error)

// Producer publishes keyed messages to one topic. Publish only enqueues;
// delivery happens in the background and failures go to the FailureHandler.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string, onFailure FailureHandler) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: producerWriteTimeout,
			MaxAttempts:  producerMaxAttempts,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err == nil {
					return
				}
				logger.WarnWithFields("Kafka delivery failed", err, zap.Int("messages", len(messages)))
				if onFailure == nil {
					return
				}
				for _, m := range messages {
					onFailure(m.Key, m.Value, err)
				}
			},
		},
	}
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Handler processes one consumed message. A returned error is logged and the
// message is still committed; poison messages are not retried.
type Handler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic as part of a consumer group
type Consumer struct {
	reader *kafka.Reader
	handle Handler
}

func NewConsumer(brokers []string, groupID, topic string, h Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		handle: h,
	}
}

// Run consumes until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		_ = c.reader.Close()
	}()

	cfg := c.reader.Config()
	logger.Log.Info("Kafka consumer started",
		zap.String("group", cfg.GroupID),
		zap.String("topic", cfg.Topic),
		zap.Strings("brokers", cfg.Brokers),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				logger.Log.Info("Kafka consumer shutting down")
				return nil
			}
			logger.WarnWithFields("Kafka fetch failed", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		if err := c.handle(ctx, m.Key, m.Value); err != nil {
			logger.WarnWithFields("Kafka handler failed", err,
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			logger.WarnWithFields("Kafka commit failed", err, zap.Int64("offset", m.Offset))
		}
	}
}
