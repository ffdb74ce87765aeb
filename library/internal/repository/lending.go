package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

func loanRequestSelect() sq.SelectBuilder {
	return qb.Select("lr.id", "lr.user_id", "u.username", "lr.book_id", "b.title as book_title",
		"lr.loan_type", "lr.status", "lr.request_date", "lr.approved_by", "lr.approved_date").
		From(loanRequestsTableName + " lr").
		Join(fmt.Sprintf("%s u on u.id = lr.user_id", usersTableName)).
		Join(fmt.Sprintf("%s b on b.id = lr.book_id", booksTableName))
}

func loanSelect() sq.SelectBuilder {
	return qb.Select("l.id", "l.user_id", "l.book_id", "b.title as book_title", "l.request_id", "l.loan_type",
		"l.loan_date", "l.due_date", "l.return_date", "l.renewed", "l.status").
		From(loansTableName + " l").
		Join(fmt.Sprintf("%s b on b.id = l.book_id", booksTableName))
}

func (r *repository) CreateLoanRequest(ctx context.Context, lr model.LoanRequest) (model.LoanRequest, error) {
	q := `
insert into loan_requests (user_id, book_id, loan_type, status, request_date)
values (@user_id, @book_id, @loan_type, @status, @request_date)
returning id`
	args := pgx.NamedArgs{
		"user_id":      lr.UserID,
		"book_id":      lr.BookID,
		"loan_type":    lr.LoanType,
		"status":       lr.Status,
		"request_date": lr.RequestDate,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&lr.ID); err != nil {
		return model.LoanRequest{}, errors.Wrap(err, "insert loan request")
	}
	return lr, nil
}

// GetLoanRequest locks only the request row when lock is set; the book and
// user rows are locked by their own getters.
func (r *repository) GetLoanRequest(ctx context.Context, id int, lock bool) (model.LoanRequest, error) {
	b := loanRequestSelect().Where(sq.Eq{"lr.id": id})
	return selectOne[model.LoanRequest](ctx, r.db, forUpdate(b, lock, "lr"))
}

func (r *repository) UpdateLoanRequest(ctx context.Context, lr model.LoanRequest) error {
	n, err := exec(ctx, r.db, qb.Update(loanRequestsTableName).
		Set("status", lr.Status).
		Set("approved_by", lr.ApprovedBy).
		Set("approved_date", lr.ApprovedDate).
		Where(sq.Eq{"id": lr.ID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) ListLoanRequests(ctx context.Context, f RequestFilter) ([]model.LoanRequest, error) {
	b := loanRequestSelect()
	if f.UserID != 0 {
		b = b.Where(sq.Eq{"lr.user_id": f.UserID})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"lr.status": f.Status})
	}
	return selectMany[model.LoanRequest](ctx, r.db, b.OrderBy("lr.request_date desc", "lr.id desc"))
}

func (r *repository) CreateLoan(ctx context.Context, l model.Loan) (model.Loan, error) {
	q := `
insert into loans (user_id, book_id, request_id, loan_type, loan_date, due_date, renewed, status)
values (@user_id, @book_id, @request_id, @loan_type, @loan_date, @due_date, @renewed, @status)
returning id`
	args := pgx.NamedArgs{
		"user_id":    l.UserID,
		"book_id":    l.BookID,
		"request_id": l.RequestID,
		"loan_type":  l.LoanType,
		"loan_date":  l.LoanDate,
		"due_date":   l.DueDate,
		"renewed":    l.Renewed,
		"status":     l.Status,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&l.ID); err != nil {
		return model.Loan{}, errors.Wrap(err, "insert loan")
	}
	return l, nil
}

func (r *repository) GetLoan(ctx context.Context, id int, lock bool) (model.Loan, error) {
	b := loanSelect().Where(sq.Eq{"l.id": id})
	return selectOne[model.Loan](ctx, r.db, forUpdate(b, lock, "l"))
}

func (r *repository) UpdateLoan(ctx context.Context, l model.Loan) error {
	n, err := exec(ctx, r.db, qb.Update(loansTableName).
		Set("due_date", l.DueDate).
		Set("return_date", l.ReturnDate).
		Set("renewed", l.Renewed).
		Set("status", l.Status).
		Where(sq.Eq{"id": l.ID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) ListLoans(ctx context.Context, f LoanFilter) ([]model.Loan, error) {
	b := loanSelect()
	if f.UserID != 0 {
		b = b.Where(sq.Eq{"l.user_id": f.UserID})
	}
	if len(f.Statuses) > 0 {
		b = b.Where(sq.Eq{"l.status": f.Statuses})
	}
	if f.ExcludeOpen {
		b = b.Where(sq.NotEq{"l.status": model.LoanActive})
	}
	return selectMany[model.Loan](ctx, r.db, b.OrderBy("l.loan_date desc", "l.id desc"))
}

func (r *repository) CountActiveLoans(ctx context.Context, userID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`select count(*) from loans where user_id = @user_id and status = @status`,
		pgx.NamedArgs{"user_id": userID, "status": model.LoanActive},
	).Scan(&n)
	return n, err
}

func (r *repository) CountBookLoans(ctx context.Context, bookID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `select count(*) from loans where book_id = $1`, bookID).Scan(&n)
	return n, err
}

func (r *repository) CreateRenewal(ctx context.Context, rn model.Renewal) (model.Renewal, error) {
	q := `
insert into renewals (loan_id, renewal_date, previous_due_date, new_due_date)
values (@loan_id, @renewal_date, @previous_due_date, @new_due_date)
returning id`
	args := pgx.NamedArgs{
		"loan_id":           rn.LoanID,
		"renewal_date":      rn.RenewalDate,
		"previous_due_date": rn.PreviousDueDate,
		"new_due_date":      rn.NewDueDate,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&rn.ID); err != nil {
		return model.Renewal{}, errors.Wrap(err, "insert renewal")
	}
	return rn, nil
}
