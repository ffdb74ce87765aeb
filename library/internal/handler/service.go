package handler

import (
	"context"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ CatalogService    = (*service.CatalogService)(nil)
	_ UserService       = (*service.UserService)(nil)
	_ LendingService    = (*service.LendingService)(nil)
	_ LedgerService     = (*service.LedgerService)(nil)
	_ NewsletterService = (*service.NewsletterService)(nil)
	_ StatsService      = (*service.StatsService)(nil)
)

type CatalogService interface {
	CreateBook(ctx context.Context, actorID int, inp model.BookInput) (model.Book, error)
	UpdateBook(ctx context.Context, actorID, bookID int, inp model.BookInput) (model.Book, error)
	DeleteBook(ctx context.Context, actorID, bookID int) error
	CreateCategory(ctx context.Context, actorID int, inp model.CategoryInput) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	SetBookCategories(ctx context.Context, actorID, bookID int, categoryIDs []int) ([]model.Category, error)
	AddCopy(ctx context.Context, actorID, bookID int, inp model.CopyInput) (model.BookStock, error)
	SetCopyStatus(ctx context.Context, actorID, copyID int, status model.CopyStatus) (model.BookStock, error)
	ListCopies(ctx context.Context, bookID int) ([]model.BookStock, error)
	SearchAll(ctx context.Context, query string) (model.SearchResult, error)
	SearchExternal(ctx context.Context, query string) ([]model.ExternalBook, error)
	BookDetail(ctx context.Context, bookID, viewerID int) (model.BookDetail, error)
	Home(ctx context.Context) (model.Home, error)
}

type UserService interface {
	Register(ctx context.Context, inp model.RegisterRequest) (model.Registration, error)
	Login(ctx context.Context, inp model.LoginRequest) (model.LoginResponse, error)
	Profile(ctx context.Context, userID int) (model.ProfileView, error)
}

type LendingService interface {
	SubmitRequest(ctx context.Context, userID int, inp model.LoanRequestInput) (model.LoanRequest, error)
	ApproveRequest(ctx context.Context, approverID, requestID int) (model.ApproveResult, error)
	RejectRequest(ctx context.Context, approverID, requestID int) (model.LoanRequest, error)
	ReturnLoan(ctx context.Context, approverID, loanID int) (model.ReturnResult, error)
	RenewLoan(ctx context.Context, userID, loanID int) (model.RenewResult, error)
	PendingRequests(ctx context.Context, actorID int) ([]model.LoanRequest, error)
	UserRequests(ctx context.Context, userID int) ([]model.LoanRequest, error)
	UserLoans(ctx context.Context, userID int) ([]model.Loan, error)
}

type LedgerService interface {
	CreateReview(ctx context.Context, userID, bookID int, inp model.ReviewInput) (model.Review, error)
	EditReview(ctx context.Context, userID, bookID int, inp model.ReviewInput) (model.Review, error)
	DeleteReview(ctx context.Context, userID, bookID int) error
	ToggleFavorite(ctx context.Context, userID, bookID int) (model.FavoriteState, error)
	RemoveFavorite(ctx context.Context, userID, bookID int) error
	Favorites(ctx context.Context, userID int) ([]model.Book, error)
}

type NewsletterService interface {
	Subscribe(ctx context.Context, email string, userID *int) (model.Subscriber, error)
	Unsubscribe(ctx context.Context, token string) error
	UnsubscribeByEmail(ctx context.Context, email string) error
	CreateCampaign(ctx context.Context, actorID int, inp model.CampaignInput) (model.Campaign, error)
	ListCampaigns(ctx context.Context, actorID int) ([]model.Campaign, error)
}

type StatsService interface {
	Dashboard(ctx context.Context, actorID int) (model.Dashboard, error)
}
