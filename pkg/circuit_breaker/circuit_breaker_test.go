package circuit_breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_circuitBreaker_Call(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	var transitions []string
	cb := newWithClock(Settings{
		Window:       10,
		FailureRatio: 0.3,
		OpenTimeout:  2 * time.Second,
		Probes:       3,
		OnStateChange: func(from, to Status) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}, clock)

	ok := func(context.Context) error { return nil }
	errUpstream := errors.New("upstream error")
	fail := func(context.Context) error { return errUpstream }

	for i := 0; i < 20; i++ {
		require.NoError(t, cb.Call(ctx, ok))
	}
	require.Equal(t, Closed, cb.State())

	// three failures out of ten reach the 30% threshold
	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Call(ctx, fail), errUpstream)
	}
	require.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpenCB)
	require.False(t, called)

	now = now.Add(3 * time.Second)
	require.NoError(t, cb.Call(ctx, ok))
	require.Equal(t, HalfOpen, cb.State())

	require.ErrorIs(t, cb.Call(ctx, fail), errUpstream)
	require.Equal(t, Open, cb.State())

	now = now.Add(3 * time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, cb.Call(ctx, ok))
	}
	require.Equal(t, Closed, cb.State())

	require.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func Test_circuitBreaker_CanceledIsNotAFailure(t *testing.T) {
	t.Parallel()
	cb := New(Settings{Window: 1, FailureRatio: 1, OpenTimeout: time.Minute, Probes: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Closed, cb.State())

	err = cb.Call(context.Background(), func(context.Context) error { return context.DeadlineExceeded })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, Open, cb.State())
}

func Test_circuitBreaker_Reset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cb := New(Settings{Window: 1, FailureRatio: 1, OpenTimeout: time.Minute, Probes: 1})
	require.Error(t, cb.Call(ctx, func(context.Context) error { return errors.New("boom") }))
	require.Equal(t, Open, cb.State())
	cb.Reset()
	require.Equal(t, Closed, cb.State())
	require.NoError(t, cb.Call(ctx, func(context.Context) error { return nil }))
}
