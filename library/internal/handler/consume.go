package handler

import (
	"context"

	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/pkg/kafka"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type recordEvent func(ctx context.Context, e kafka.EventLoan) error

// Consumer stores loan lifecycle events for the dashboard.
type Consumer struct {
	record recordEvent
	log    *zap.Logger
	ready  chan bool
}

func NewConsumer(record recordEvent, log *zap.Logger) *Consumer {
	return &Consumer{
		record: record,
		log:    log.Named("consumer"),
		ready:  make(chan bool),
	}
}

// Ready is closed once the first session is set up.
func (consumer *Consumer) Ready() <-chan bool {
	return consumer.ready
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	select {
	case <-consumer.ready:
	default:
		close(consumer.ready)
	}
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event kafka.EventLoan
			if err := json.Unmarshal(message.Value, &event); err != nil || event.ID == "" {
				consumer.log.Error("malformed loan event", zap.ByteString("value", message.Value), zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			if err := consumer.record(session.Context(), event); err != nil {
				// left unmarked so the event is redelivered after a rebalance
				consumer.log.Error("consumer.record", zap.String("eventID", event.ID), zap.Error(err))
				continue
			}

			consumer.log.Debug("Message claimed:",
				zap.String("eventType", string(event.EventType)),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
