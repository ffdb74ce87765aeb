package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	LoanEventsTopic    = "library.loan-events"
	StatsConsumerGroup = "library.stats"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

type EventType string

const (
	EventLoanRequested EventType = "LOAN_REQUESTED"
	EventLoanApproved  EventType = "LOAN_APPROVED"
	EventLoanRejected  EventType = "LOAN_REJECTED"
	EventLoanReturned  EventType = "LOAN_RETURNED"
	EventLoanRenewed   EventType = "LOAN_RENEWED"
)

// EventLoan is published after every committed loan lifecycle transition.
type EventLoan struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	EventType   EventType `json:"eventType"`
	UserID      int       `json:"userId"`
	BookID      int       `json:"bookId"`
	RequestID   int       `json:"requestId,omitempty"`
	LoanID      int       `json:"loanId,omitempty"`
	ActorID     int       `json:"actorId"`
	DaysOverdue int       `json:"daysOverdue,omitempty"`
	Penalty     float64   `json:"penalty,omitempty"`
}

func NewEventLoan(t EventType, now time.Time) EventLoan {
	return EventLoan{ID: uuid.NewString(), Timestamp: now.UTC(), EventType: t}
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	defaultCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume joins the group until ctx is done, re-joining after every rebalance.
func Consume(ctx context.Context, group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, log *zap.Logger, topics ...string) {
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			log.Error("kafka.Consume", zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

type Publisher struct {
	producer sarama.SyncProducer
}

func NewPublisher(producer sarama.SyncProducer) *Publisher {
	return &Publisher{producer: producer}
}

func (p *Publisher) Publish(_ context.Context, topic string, v any) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{Topic: topic, Value: sarama.ByteEncoder(data)}
	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
