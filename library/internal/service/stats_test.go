package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/pkg/kafka"
)

func TestLocalPublisher(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newFakeRepo()
	stats := NewStatsService(repo, zap.NewNop())
	pub := NewLocalPublisher(stats, zap.NewNop())

	e := kafka.NewEventLoan(kafka.EventLoanReturned, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	e.UserID, e.BookID, e.LoanID, e.DaysOverdue, e.Penalty = 2, 3, 4, 5, 2.5

	require.NoError(t, pub.Publish(ctx, kafka.LoanEventsTopic, e))
	require.NoError(t, pub.Publish(ctx, kafka.LoanEventsTopic, e), "redelivery is a no-op")
	require.NoError(t, pub.Publish(ctx, "other", "not an event"))

	require.Len(t, repo.events, 1)
	got := repo.events[0]
	require.Equal(t, e.ID, got.ID)
	require.Equal(t, "LOAN_RETURNED", got.EventType)
	require.Equal(t, 5, got.DaysOverdue)
	require.InDelta(t, 2.5, got.Penalty, 1e-9)
}

func TestStatsService_DashboardRequiresStaff(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	reader := repo.addUser(model.User{Username: "ana", DNI: "1", Role: model.RoleReader, IsActiveMember: true})
	stats := NewStatsService(repo, zap.NewNop())

	_, err := stats.Dashboard(context.Background(), reader.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)
	_, err = stats.Dashboard(context.Background(), 0)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}
