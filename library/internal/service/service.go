package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
	"github.com/Astemirdum/solidarity-library/pkg/auth"
	"github.com/Astemirdum/solidarity-library/pkg/kafka"
	"github.com/Astemirdum/solidarity-library/pkg/mailer"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type ExternalCatalog interface {
	Search(ctx context.Context, query string, limit int) ([]model.ExternalBook, error)
}

type TokenIssuer interface {
	Issue(p auth.Profile, now time.Time) (string, error)
}

type eventRecorder interface {
	RecordEvent(ctx context.Context, e kafka.EventLoan) error
}

// LocalPublisher stands in for the kafka publisher when no brokers are
// configured and records loan events in-process.
type LocalPublisher struct {
	log      *zap.Logger
	recorder eventRecorder
}

func NewLocalPublisher(recorder eventRecorder, log *zap.Logger) *LocalPublisher {
	return &LocalPublisher{log: log.Named("events"), recorder: recorder}
}

func (p *LocalPublisher) Publish(ctx context.Context, topic string, v any) error {
	e, ok := v.(kafka.EventLoan)
	if !ok {
		p.log.Debug("skip event", zap.String("topic", topic), zap.Any("payload", v))
		return nil
	}
	return p.recorder.RecordEvent(ctx, e)
}

// authorize loads the acting user and checks action against policy.
func authorize(ctx context.Context, repo repository.Users, actorID int, action policy.Action, target any) (model.User, error) {
	if actorID == 0 {
		return model.User{}, errs.ErrUnauthorized
	}
	actor, err := repo.GetUser(ctx, actorID, false)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.ErrUnauthorized
		}
		return model.User{}, err
	}
	if !policy.Can(actor, action, target) {
		return model.User{}, errs.ErrForbidden
	}
	return actor, nil
}
