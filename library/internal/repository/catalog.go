package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

var bookColumns = []string{
	"b.id", "b.openlibrary_id", "b.title", "b.authors", "b.isbn", "b.publish_date",
	"b.number_of_pages", "b.cover_url", "b.stock", "b.available", "b.created_at",
}

func (r *repository) CreateBook(ctx context.Context, b model.Book) (model.Book, error) {
	q := `
insert into books (openlibrary_id, title, authors, isbn, publish_date, number_of_pages, cover_url, stock, available)
values (@openlibrary_id, @title, @authors, @isbn, @publish_date, @number_of_pages, @cover_url, @stock, @available)
returning id, created_at`
	args := bookArgs(b)
	if err := r.db.QueryRow(ctx, q, args).Scan(&b.ID, &b.CreatedAt); err != nil {
		return model.Book{}, uniqueViolation(err, errs.ErrAlreadyCataloged)
	}
	return b, nil
}

func (r *repository) UpdateBook(ctx context.Context, b model.Book) (model.Book, error) {
	q := `
update books
set openlibrary_id = @openlibrary_id, title = @title, authors = @authors, isbn = @isbn,
    publish_date = @publish_date, number_of_pages = @number_of_pages, cover_url = @cover_url,
    stock = @stock, available = @available
where id = @id
returning created_at`
	args := bookArgs(b)
	args["id"] = b.ID
	if err := r.db.QueryRow(ctx, q, args).Scan(&b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, uniqueViolation(err, errs.ErrAlreadyCataloged)
	}
	return b, nil
}

func bookArgs(b model.Book) pgx.NamedArgs {
	if b.Authors == nil {
		b.Authors = []string{}
	}
	if b.ISBN == nil {
		b.ISBN = []string{}
	}
	return pgx.NamedArgs{
		"openlibrary_id":  b.OpenLibraryID,
		"title":           b.Title,
		"authors":         b.Authors,
		"isbn":            b.ISBN,
		"publish_date":    b.PublishDate,
		"number_of_pages": b.NumberOfPages,
		"cover_url":       b.CoverURL,
		"stock":           b.Stock,
		"available":       b.Available,
	}
}

func (r *repository) DeleteBook(ctx context.Context, id int) error {
	n, err := exec(ctx, r.db, qb.Delete(booksTableName).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repository) GetBook(ctx context.Context, id int, lock bool) (model.Book, error) {
	b := qb.Select(bookColumns...).
		From(booksTableName + " b").
		Where(sq.Eq{"b.id": id})
	return selectOne[model.Book](ctx, r.db, forUpdate(b, lock, ""))
}

// FindDuplicateBook returns a book other than excludeID sharing the
// openlibrary id or any ISBN.
func (r *repository) FindDuplicateBook(ctx context.Context, openlibraryID string, isbn []string, excludeID int) (model.Book, error) {
	or := sq.Or{}
	if openlibraryID != "" {
		or = append(or, sq.Eq{"b.openlibrary_id": openlibraryID})
	}
	if len(isbn) > 0 {
		or = append(or, sq.Expr("b.isbn && ?", isbn))
	}
	if len(or) == 0 {
		return model.Book{}, errs.ErrNotFound
	}
	b := qb.Select(bookColumns...).
		From(booksTableName + " b").
		Where(or).
		Where(sq.NotEq{"b.id": excludeID}).
		OrderBy("b.id").
		Limit(1)
	return selectOne[model.Book](ctx, r.db, b)
}

func (r *repository) FindCataloged(ctx context.Context, openlibraryIDs, isbn []string) ([]model.Book, error) {
	if len(openlibraryIDs) == 0 && len(isbn) == 0 {
		return nil, nil
	}
	b := qb.Select(bookColumns...).
		From(booksTableName + " b").
		Where(sq.Or{
			sq.Expr("b.openlibrary_id = any(?)", openlibraryIDs),
			sq.Expr("b.isbn && ?", isbn),
		})
	return selectMany[model.Book](ctx, r.db, b)
}

func (r *repository) SetBookAvailable(ctx context.Context, id int, available bool) error {
	n, err := exec(ctx, r.db, qb.Update(booksTableName).
		Set("available", available).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SearchBooks matches title, any author or any category name, case-insensitively.
func (r *repository) SearchBooks(ctx context.Context, query string) ([]model.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	b := qb.Select(bookColumns...).
		Distinct().
		From(booksTableName + " b").
		LeftJoin(bookCategoriesTableName + " bc on bc.book_id = b.id").
		LeftJoin(categoriesTableName + " c on c.id = bc.category_id").
		Where(sq.Or{
			sq.ILike{"b.title": pattern},
			sq.Expr("array_to_string(b.authors, ' ') ilike ?", pattern),
			sq.ILike{"c.name": pattern},
		}).
		OrderBy("b.id")

	r.log.Debug("SearchBooks", zap.String("pattern", pattern))
	return selectMany[model.Book](ctx, r.db, b)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *repository) RecentAvailableBooks(ctx context.Context, limit int) ([]model.Book, error) {
	b := qb.Select(bookColumns...).
		From(booksTableName + " b").
		Where(sq.Eq{"b.available": true}).
		OrderBy("b.created_at desc", "b.id desc").
		Limit(uint64(limit))
	return selectMany[model.Book](ctx, r.db, b)
}

func (r *repository) FeaturedAuthors(ctx context.Context, limit int) ([]model.AuthorCount, error) {
	b := qb.Select("a.name", "count(*) as books_count").
		From(booksTableName + " b").
		JoinClause("cross join lateral unnest(b.authors) as a(name)").
		GroupBy("a.name").
		OrderBy("books_count desc", "a.name").
		Limit(uint64(limit))
	return selectMany[model.AuthorCount](ctx, r.db, b)
}

func (r *repository) HomeStats(ctx context.Context) (model.HomeStats, error) {
	q := `
select (select count(*) from books where available)            as total_books,
       (select count(*) from users where is_active_member)     as active_members,
       (select count(*) from loans where status = 'active')   as active_loans,
       (select count(*) from categories)                      as categories`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return model.HomeStats{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[model.HomeStats])
}

func (r *repository) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	q := `insert into categories (name, description, created_by) values (@name, @description, @created_by) returning id`
	args := pgx.NamedArgs{
		"name":        c.Name,
		"description": c.Description,
		"created_by":  c.CreatedBy,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&c.ID); err != nil {
		return model.Category{}, uniqueViolation(err, errs.New(errs.ErrConflict, "category already exists"))
	}
	return c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]model.Category, error) {
	b := qb.Select("id", "name", "description", "created_by").
		From(categoriesTableName).
		OrderBy("name")
	return selectMany[model.Category](ctx, r.db, b)
}

func (r *repository) SetBookCategories(ctx context.Context, bookID int, categoryIDs []int) error {
	if _, err := exec(ctx, r.db, qb.Delete(bookCategoriesTableName).Where(sq.Eq{"book_id": bookID})); err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	ins := qb.Insert(bookCategoriesTableName).Columns("book_id", "category_id")
	for _, id := range categoryIDs {
		ins = ins.Values(bookID, id)
	}
	_, err := exec(ctx, r.db, ins.Suffix("on conflict do nothing"))
	return err
}

type bookCategory struct {
	BookID      int    `db:"book_id"`
	ID          int    `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	CreatedBy   int    `db:"created_by"`
}

func (r *repository) BookCategories(ctx context.Context, bookIDs ...int) (map[int][]model.Category, error) {
	out := make(map[int][]model.Category, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}
	b := qb.Select("bc.book_id", "c.id", "c.name", "c.description", "c.created_by").
		From(bookCategoriesTableName + " bc").
		Join(fmt.Sprintf("%s c on c.id = bc.category_id", categoriesTableName)).
		Where(sq.Eq{"bc.book_id": bookIDs}).
		OrderBy("c.name")
	rows, err := selectMany[bookCategory](ctx, r.db, b)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.BookID] = append(out[row.BookID], model.Category{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			CreatedBy:   row.CreatedBy,
		})
	}
	return out, nil
}

func (r *repository) AddCopy(ctx context.Context, s model.BookStock) (model.BookStock, error) {
	q := `
insert into book_stocks (book_id, physical_id, status, condition)
values (@book_id, @physical_id, @status, @condition)
returning id, added_date`
	args := pgx.NamedArgs{
		"book_id":     s.BookID,
		"physical_id": s.PhysicalID,
		"status":      s.Status,
		"condition":   s.Condition,
	}
	if err := r.db.QueryRow(ctx, q, args).Scan(&s.ID, &s.AddedDate); err != nil {
		return model.BookStock{}, uniqueViolation(err, errs.ErrDuplicateCopy)
	}
	return s, nil
}

func (r *repository) SetCopyStatus(ctx context.Context, id int, status model.CopyStatus) (model.BookStock, error) {
	b := qb.Update(bookStocksTableName).
		Set("status", status).
		Where(sq.Eq{"id": id}).
		Suffix("returning id, book_id, physical_id, status, condition, added_date")
	return selectOne[model.BookStock](ctx, r.db, b)
}

func (r *repository) ListCopies(ctx context.Context, bookID int) ([]model.BookStock, error) {
	b := qb.Select("id", "book_id", "physical_id", "status", "condition", "added_date").
		From(bookStocksTableName).
		Where(sq.Eq{"book_id": bookID}).
		OrderBy("id")
	return selectMany[model.BookStock](ctx, r.db, b)
}
