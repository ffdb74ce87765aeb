package errs_test

import (
	"testing"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestClasses(t *testing.T) {
	t.Parallel()
	for _, err := range []error{
		errs.ErrBookUnavailable, errs.ErrAlreadyResolved, errs.ErrLoanLimit,
		errs.ErrDuplicateReview, errs.ErrAlreadyCataloged, errs.ErrAlreadySubscribed,
	} {
		require.ErrorIs(t, err, errs.ErrConflict)
	}
	require.ErrorIs(t, errs.ErrInvalidCredentials, errs.ErrUnauthorized)

	err := errors.Wrap(errs.ErrBookUnavailable, "approve 3")
	require.ErrorIs(t, err, errs.ErrBookUnavailable)
	require.ErrorIs(t, err, errs.ErrConflict)
	require.NotErrorIs(t, err, errs.ErrLoanLimit)
	require.Equal(t, "book unavailable", errs.Message(err))

	v := errs.Validation("stock must not be negative")
	require.ErrorIs(t, v, errs.ErrValidation)
	require.Equal(t, "stock must not be negative", v.Error())

	require.Empty(t, errs.Message(errors.New("db down")))
}
