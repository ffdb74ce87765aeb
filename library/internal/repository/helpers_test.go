package repository

import (
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
)

func Test_escapeLike(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"borges":     "borges",
		"100%":       `100\%`,
		"snake_case": `snake\_case`,
		`c:\books`:   `c:\\books`,
		`\%_`:        `\\\%\_`,
	}
	for in, want := range tests {
		require.Equal(t, want, escapeLike(in), in)
	}
}

func Test_forUpdate(t *testing.T) {
	t.Parallel()
	base := qb.Select("b.id").From("books b").Where(sq.Eq{"b.id": 1})

	tests := []struct {
		name string
		lock bool
		of   string
		want string
	}{
		{name: "no lock", want: "SELECT b.id FROM books b WHERE b.id = $1"},
		{name: "whole row set", lock: true, want: "SELECT b.id FROM books b WHERE b.id = $1 FOR UPDATE"},
		{name: "single table", lock: true, of: "b", want: "SELECT b.id FROM books b WHERE b.id = $1 FOR UPDATE OF b"},
		{name: "of ignored without lock", of: "b", want: "SELECT b.id FROM books b WHERE b.id = $1"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			q, args, err := forUpdate(base, tt.lock, tt.of).ToSql()
			require.NoError(t, err)
			require.Equal(t, tt.want, q)
			require.Equal(t, []any{1}, args)
		})
	}
}

func Test_uniqueViolation(t *testing.T) {
	t.Parallel()
	dup := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "book_stocks_physical_id_key"}
	require.Equal(t, errs.ErrDuplicateCopy, uniqueViolation(dup, errs.ErrDuplicateCopy))

	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	require.Equal(t, error(fk), uniqueViolation(fk, errs.ErrDuplicateCopy))

	plain := errors.New("conn closed")
	require.Equal(t, plain, uniqueViolation(plain, errs.ErrDuplicateUser))
}
