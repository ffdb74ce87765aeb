package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

func (r *repository) KPIs(ctx context.Context, today time.Time) (model.KPIs, error) {
	q := `
select (select count(*) from loans where status = 'active')                      as active_loans,
       (select count(*) from users where is_active_member)                        as active_members,
       (select count(*) from loans where status = 'active' and due_date < @today) as overdue_loans,
       (select count(*) from books where available)                               as available_books,
       (select count(*) from users where score < @low)                            as low_score_users`
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"today": today, "low": model.LowScoreBound})
	if err != nil {
		return model.KPIs{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.KPIs])
}

func (r *repository) ScoreBuckets(ctx context.Context) (excellent, good, fair, poor int, err error) {
	q := `
select count(*) filter (where score >= 4),
       count(*) filter (where score >= 3 and score < 4),
       count(*) filter (where score >= 2 and score < 3),
       count(*) filter (where score < 2)
from users`
	err = r.db.QueryRow(ctx, q).Scan(&excellent, &good, &fair, &poor)
	return
}

func (r *repository) PopularBooks(ctx context.Context, limit int) ([]model.BookLoanCount, error) {
	b := qb.Select("b.id as book_id", "b.title", "count(l.id) as loan_count").
		From(booksTableName + " b").
		LeftJoin(loansTableName + " l on l.book_id = b.id").
		GroupBy("b.id", "b.title").
		OrderBy("loan_count desc", "b.id").
		Limit(uint64(limit))
	return selectMany[model.BookLoanCount](ctx, r.db, b)
}

func (r *repository) TopUsers(ctx context.Context, limit int) ([]model.UserRank, error) {
	b := qb.Select("u.id as user_id", "u.username", "u.score",
		"(select count(*) from loans l where l.user_id = u.id and l.status = 'returned') as completed_loans",
		"(select count(*) from reviews r where r.user_id = u.id) as review_count").
		From(usersTableName + " u").
		OrderBy("u.score desc", "u.id").
		Limit(uint64(limit))
	return selectMany[model.UserRank](ctx, r.db, b)
}

func (r *repository) PopularCategories(ctx context.Context, limit int) ([]model.CategoryLoanCount, error) {
	b := qb.Select("c.id as category_id", "c.name",
		"count(distinct bc.book_id) as book_count", "count(l.id) as loan_count").
		From(categoriesTableName + " c").
		LeftJoin(bookCategoriesTableName + " bc on bc.category_id = c.id").
		LeftJoin(loansTableName + " l on l.book_id = bc.book_id").
		GroupBy("c.id", "c.name").
		OrderBy("loan_count desc", "c.id").
		Limit(uint64(limit))
	return selectMany[model.CategoryLoanCount](ctx, r.db, b)
}

func (r *repository) SaveLoanEvent(ctx context.Context, e model.LoanEvent) error {
	q := `
insert into loan_events (id, occurred_at, event_type, user_id, book_id, request_id, loan_id, actor_id, days_overdue, penalty)
values (@id, @occurred_at, @event_type, @user_id, @book_id, @request_id, @loan_id, @actor_id, @days_overdue, @penalty)
on conflict (id) do nothing`
	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":           e.ID,
		"occurred_at":  e.Timestamp,
		"event_type":   e.EventType,
		"user_id":      e.UserID,
		"book_id":      e.BookID,
		"request_id":   e.RequestID,
		"loan_id":      e.LoanID,
		"actor_id":     e.ActorID,
		"days_overdue": e.DaysOverdue,
		"penalty":      e.Penalty,
	})
	return err
}

func (r *repository) RecentLoanEvents(ctx context.Context, limit int) ([]model.LoanEvent, error) {
	b := qb.Select("id", "occurred_at", "event_type", "user_id", "book_id", "request_id",
		"loan_id", "actor_id", "days_overdue", "penalty").
		From(loanEventsTableName).
		OrderBy("occurred_at desc").
		Limit(uint64(limit))
	return selectMany[model.LoanEvent](ctx, r.db, b)
}
