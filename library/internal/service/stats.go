package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
	"github.com/Astemirdum/solidarity-library/pkg/kafka"
)

const (
	popularBooksLimit      = 10
	topUsersLimit          = 10
	popularCategoriesLimit = 8
	recentEventsLimit      = 20
)

type StatsService struct {
	log  *zap.Logger
	repo repository.Repository
	now  func() time.Time
}

func NewStatsService(repo repository.Repository, log *zap.Logger) *StatsService {
	return &StatsService{
		log:  log.Named("stats"),
		repo: repo,
		now:  time.Now,
	}
}

func (s *StatsService) Dashboard(ctx context.Context, actorID int) (model.Dashboard, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionViewDashboard, nil); err != nil {
		return model.Dashboard{}, err
	}

	var d model.Dashboard
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.KPIs, err = s.repo.KPIs(gCtx, model.Day(s.now()))
		return err
	})
	g.Go(func() error {
		excellent, good, fair, poor, err := s.repo.ScoreBuckets(gCtx)
		d.ScoreDistribution = model.Distribution(excellent, good, fair, poor)
		return err
	})
	g.Go(func() (err error) {
		d.PopularBooks, err = s.repo.PopularBooks(gCtx, popularBooksLimit)
		return err
	})
	g.Go(func() (err error) {
		d.TopUsers, err = s.repo.TopUsers(gCtx, topUsersLimit)
		return err
	})
	g.Go(func() (err error) {
		d.PopularCategories, err = s.repo.PopularCategories(gCtx, popularCategoriesLimit)
		return err
	})
	g.Go(func() (err error) {
		d.RecentEvents, err = s.repo.RecentLoanEvents(gCtx, recentEventsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Dashboard{}, err
	}
	return d, nil
}

// RecordEvent stores a consumed loan event. Redelivered events are ignored.
func (s *StatsService) RecordEvent(ctx context.Context, e kafka.EventLoan) error {
	return s.repo.SaveLoanEvent(ctx, model.LoanEvent{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		EventType:   string(e.EventType),
		UserID:      e.UserID,
		BookID:      e.BookID,
		RequestID:   e.RequestID,
		LoanID:      e.LoanID,
		ActorID:     e.ActorID,
		DaysOverdue: e.DaysOverdue,
		Penalty:     e.Penalty,
	})
}
