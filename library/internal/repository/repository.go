package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

type Repository interface {
	Catalog
	Users
	Lending
	Ledger
	Newsletter
	Stats

	// WithinTx runs fn against a repository bound to one transaction.
	// Nested calls open a savepoint.
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

type Catalog interface {
	CreateBook(ctx context.Context, b model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, b model.Book) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	GetBook(ctx context.Context, id int, forUpdate bool) (model.Book, error)
	FindDuplicateBook(ctx context.Context, openlibraryID string, isbn []string, excludeID int) (model.Book, error)
	FindCataloged(ctx context.Context, openlibraryIDs, isbn []string) ([]model.Book, error)
	SetBookAvailable(ctx context.Context, id int, available bool) error
	SearchBooks(ctx context.Context, query string) ([]model.Book, error)
	RecentAvailableBooks(ctx context.Context, limit int) ([]model.Book, error)
	FeaturedAuthors(ctx context.Context, limit int) ([]model.AuthorCount, error)
	HomeStats(ctx context.Context) (model.HomeStats, error)

	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	SetBookCategories(ctx context.Context, bookID int, categoryIDs []int) error
	BookCategories(ctx context.Context, bookIDs ...int) (map[int][]model.Category, error)

	AddCopy(ctx context.Context, s model.BookStock) (model.BookStock, error)
	SetCopyStatus(ctx context.Context, id int, status model.CopyStatus) (model.BookStock, error)
	ListCopies(ctx context.Context, bookID int) ([]model.BookStock, error)
}

type Users interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	CreateProfile(ctx context.Context, p model.UserProfile) (model.UserProfile, error)
	GetUser(ctx context.Context, id int, forUpdate bool) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetProfile(ctx context.Context, userID int) (model.UserProfile, error)
	UpdateScore(ctx context.Context, userID int, score float64) error
}

// LoanFilter narrows loan listings. Zero values match everything.
type LoanFilter struct {
	UserID      int
	Statuses    []model.LoanStatus
	ExcludeOpen bool
}

// RequestFilter narrows loan request listings. Zero values match everything.
type RequestFilter struct {
	UserID int
	Status model.RequestStatus
}

type Lending interface {
	CreateLoanRequest(ctx context.Context, r model.LoanRequest) (model.LoanRequest, error)
	GetLoanRequest(ctx context.Context, id int, forUpdate bool) (model.LoanRequest, error)
	UpdateLoanRequest(ctx context.Context, r model.LoanRequest) error
	ListLoanRequests(ctx context.Context, f RequestFilter) ([]model.LoanRequest, error)

	CreateLoan(ctx context.Context, l model.Loan) (model.Loan, error)
	GetLoan(ctx context.Context, id int, forUpdate bool) (model.Loan, error)
	UpdateLoan(ctx context.Context, l model.Loan) error
	ListLoans(ctx context.Context, f LoanFilter) ([]model.Loan, error)
	CountActiveLoans(ctx context.Context, userID int) (int, error)
	CountBookLoans(ctx context.Context, bookID int) (int, error)
	CreateRenewal(ctx context.Context, r model.Renewal) (model.Renewal, error)
}

type Ledger interface {
	CreateReview(ctx context.Context, r model.Review) (model.Review, error)
	GetReview(ctx context.Context, userID, bookID int) (model.Review, error)
	UpdateReview(ctx context.Context, r model.Review) (model.Review, error)
	DeleteReview(ctx context.Context, id int) error
	RecentReviews(ctx context.Context, bookID, limit int) ([]model.Review, error)
	ReviewSummary(ctx context.Context, bookID int) (count int, avg float64, err error)

	AddFavorite(ctx context.Context, userID, bookID int) error
	RemoveFavorite(ctx context.Context, userID, bookID int) (bool, error)
	IsFavorite(ctx context.Context, userID, bookID int) (bool, error)
	ListFavorites(ctx context.Context, userID int) ([]model.Book, error)
}

type Newsletter interface {
	CreateSubscriber(ctx context.Context, s model.Subscriber) (model.Subscriber, error)
	UpdateSubscriber(ctx context.Context, s model.Subscriber) error
	GetSubscriberByEmail(ctx context.Context, email string) (model.Subscriber, error)
	GetSubscriberByToken(ctx context.Context, token string) (model.Subscriber, error)
	ListActiveSubscribers(ctx context.Context) ([]model.Subscriber, error)

	CreateCampaign(ctx context.Context, c model.Campaign) (model.Campaign, error)
	GetCampaign(ctx context.Context, id int) (model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	ListDueCampaigns(ctx context.Context, now time.Time) ([]model.Campaign, error)
	// ClaimCampaign marks an unsent campaign sent and returns it. A campaign
	// that is missing or already claimed yields errs.ErrNotFound.
	ClaimCampaign(ctx context.Context, id int, sentAt time.Time) (model.Campaign, error)
	RecordCampaignTotals(ctx context.Context, id, recipients, sent int) error
}

type Stats interface {
	KPIs(ctx context.Context, today time.Time) (model.KPIs, error)
	ScoreBuckets(ctx context.Context) (excellent, good, fair, poor int, err error)
	PopularBooks(ctx context.Context, limit int) ([]model.BookLoanCount, error)
	TopUsers(ctx context.Context, limit int) ([]model.UserRank, error)
	PopularCategories(ctx context.Context, limit int) ([]model.CategoryLoanCount, error)
	SaveLoanEvent(ctx context.Context, e model.LoanEvent) error
	RecentLoanEvents(ctx context.Context, limit int) ([]model.LoanEvent, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db  querier
	log *zap.Logger
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

func (r *repository) WithinTx(ctx context.Context, fn func(Repository) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&repository{db: tx, log: r.log})
	})
}

const (
	usersTableName          = `users`
	profilesTableName       = `user_profiles`
	booksTableName          = `books`
	categoriesTableName     = `categories`
	bookCategoriesTableName = `book_categories`
	bookStocksTableName     = `book_stocks`
	loanRequestsTableName   = `loan_requests`
	loansTableName          = `loans`
	renewalsTableName       = `renewals`
	reviewsTableName        = `reviews`
	favoritesTableName      = `favorites`
	subscribersTableName    = `newsletter_subscribers`
	campaignsTableName      = `newsletter_campaigns`
	loanEventsTableName     = `loan_events`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// selectOne runs a built query and scans exactly one row into T.
func selectOne[T any](ctx context.Context, db querier, b sq.Sqlizer) (T, error) {
	var zero T
	q, args, err := b.ToSql()
	if err != nil {
		return zero, err
	}
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return zero, err
	}
	v, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, errs.ErrNotFound
		}
		return zero, errors.Wrap(err, "pgx.CollectOneRow")
	}
	return v, nil
}

func selectMany[T any](ctx context.Context, db querier, b sq.Sqlizer) ([]T, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	v, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return v, nil
}

func exec(ctx context.Context, db querier, b sq.Sqlizer) (int64, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := db.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// uniqueViolation maps a unique constraint failure to conflict, passing other errors through.
func uniqueViolation(err, conflict error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return conflict
	}
	return err
}

func forUpdate(b sq.SelectBuilder, lock bool, of string) sq.SelectBuilder {
	if !lock {
		return b
	}
	if of != "" {
		return b.Suffix("FOR UPDATE OF " + of)
	}
	return b.Suffix("FOR UPDATE")
}
