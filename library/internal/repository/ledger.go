package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

func reviewSelect() sq.SelectBuilder {
	return qb.Select("r.id", "r.user_id", "u.username", "r.book_id", "r.rating", "r.comment", "r.created_at").
		From(reviewsTableName + " r").
		Join(fmt.Sprintf("%s u on u.id = r.user_id", usersTableName))
}

func (r *repository) CreateReview(ctx context.Context, rv model.Review) (model.Review, error) {
	q := `
insert into reviews (user_id, book_id, rating, comment)
values (@user_id, @book_id, @rating, @comment)
returning id, created_at`
	args := pgx.NamedArgs{
		"user_id": rv.UserID,
		"book_id": rv.BookID,
		"rating":  rv.Rating,
		"comment": rv.Comment,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&rv.ID, &rv.CreatedAt); err != nil {
		return model.Review{}, uniqueViolation(err, errs.ErrDuplicateReview)
	}
	return rv, nil
}

func (r *repository) GetReview(ctx context.Context, userID, bookID int) (model.Review, error) {
	b := reviewSelect().Where(sq.Eq{"r.user_id": userID, "r.book_id": bookID})
	return selectOne[model.Review](ctx, r.db, b)
}

func (r *repository) UpdateReview(ctx context.Context, rv model.Review) (model.Review, error) {
	n, err := exec(ctx, r.db, qb.Update(reviewsTableName).
		Set("rating", rv.Rating).
		Set("comment", rv.Comment).
		Where(sq.Eq{"id": rv.ID}))
	if err != nil {
		return model.Review{}, err
	}
	if n == 0 {
		return model.Review{}, errs.ErrNotFound
	}
	return rv, nil
}

func (r *repository) DeleteReview(ctx context.Context, id int) error {
	n, err := exec(ctx, r.db, qb.Delete(reviewsTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) RecentReviews(ctx context.Context, bookID, limit int) ([]model.Review, error) {
	b := reviewSelect().
		Where(sq.Eq{"r.book_id": bookID}).
		OrderBy("r.created_at desc", "r.id desc").
		Limit(uint64(limit))
	return selectMany[model.Review](ctx, r.db, b)
}

func (r *repository) ReviewSummary(ctx context.Context, bookID int) (int, float64, error) {
	var (
		count int
		avg   float64
	)
	err := r.db.QueryRow(ctx,
		`select count(*), coalesce(avg(rating), 0)::float8 from reviews where book_id = $1`, bookID,
	).Scan(&count, &avg)
	return count, avg, err
}

func (r *repository) AddFavorite(ctx context.Context, userID, bookID int) error {
	_, err := exec(ctx, r.db, qb.Insert(favoritesTableName).
		Columns("user_id", "book_id").
		Values(userID, bookID).
		Suffix("on conflict do nothing"))
	return err
}

func (r *repository) RemoveFavorite(ctx context.Context, userID, bookID int) (bool, error) {
	n, err := exec(ctx, r.db, qb.Delete(favoritesTableName).
		Where(sq.Eq{"user_id": userID, "book_id": bookID}))
	return n > 0, err
}

func (r *repository) IsFavorite(ctx context.Context, userID, bookID int) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`select exists(select 1 from favorites where user_id = $1 and book_id = $2)`, userID, bookID,
	).Scan(&ok)
	return ok, err
}

func (r *repository) ListFavorites(ctx context.Context, userID int) ([]model.Book, error) {
	b := qb.Select(bookColumns...).
		From(favoritesTableName + " f").
		Join(fmt.Sprintf("%s b on b.id = f.book_id", booksTableName)).
		Where(sq.Eq{"f.user_id": userID}).
		OrderBy("f.added_at desc")
	return selectMany[model.Book](ctx, r.db, b)
}
