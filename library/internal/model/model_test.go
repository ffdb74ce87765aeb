package model_test

import (
	"testing"
	"time"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"Gabriel García Márquez", "Mario Vargas Llosa"}, model.SplitList(" Gabriel García Márquez, ,Mario Vargas Llosa,"))
	require.Empty(t, model.SplitList(" , "))
}

func TestLoanType_TermDays(t *testing.T) {
	t.Parallel()
	require.Equal(t, 15, model.LoanNormal.TermDays())
	require.Equal(t, 3, model.LoanExpress.TermDays())
	require.Equal(t, 60, model.LoanSummer.TermDays())
	require.False(t, model.LoanType("weekly").Valid())
}

func TestLoan_EffectiveStatus(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	l := model.Loan{Status: model.LoanActive, DueDate: due}

	require.Equal(t, model.LoanActive, l.EffectiveStatus(due.Add(23*time.Hour)))
	require.Equal(t, model.LoanOverdue, l.EffectiveStatus(due.AddDate(0, 0, 1)))

	l.Status = model.LoanReturned
	require.Equal(t, model.LoanReturned, l.EffectiveStatus(due.AddDate(0, 1, 0)))
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()
	a := time.Date(2024, 2, 27, 22, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)
	require.Equal(t, 4, model.DaysBetween(a, b))
	require.Equal(t, -4, model.DaysBetween(b, a))
}

func TestUser_LoanLimit(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 7)
	tests := []struct {
		name string
		user model.User
		want int
	}{
		{name: "inactive", user: model.User{Role: model.RoleReader, Score: 5, IsActiveMember: false}, want: 0},
		{name: "suspended", user: model.User{Role: model.RoleReader, Score: 5, IsActiveMember: true, SuspensionEndDate: &future}, want: 0},
		{name: "staff", user: model.User{Role: model.RoleLibrarian, Score: 0, IsActiveMember: true}, want: 10},
		{name: "excellent", user: model.User{Role: model.RoleReader, Score: 5, IsActiveMember: true}, want: 5},
		{name: "good", user: model.User{Role: model.RoleReader, Score: 3.5, IsActiveMember: true}, want: 3},
		{name: "fair", user: model.User{Role: model.RoleReader, Score: 2, IsActiveMember: true}, want: 2},
		{name: "poor", user: model.User{Role: model.RoleReader, Score: 0.5, IsActiveMember: true}, want: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.user.LoanLimit(now))
		})
	}
}

func TestDistribution(t *testing.T) {
	t.Parallel()
	require.Equal(t, model.ScoreDistribution{}, model.Distribution(0, 0, 0, 0))
	d := model.Distribution(2, 1, 1, 0)
	require.InDelta(t, 50.0, d.Excellent, 1e-9)
	require.InDelta(t, 25.0, d.Good, 1e-9)
	require.InDelta(t, 0.0, d.Poor, 1e-9)
}
