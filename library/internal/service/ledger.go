package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
)

var ErrNotFavorite = errs.New(errs.ErrNotFound, "book is not a favorite")

type LedgerService struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewLedgerService(repo repository.Repository, log *zap.Logger) *LedgerService {
	return &LedgerService{
		log:  log.Named("ledger"),
		repo: repo,
	}
}

func reviewFromInput(inp model.ReviewInput) (model.Review, error) {
	comment := strings.TrimSpace(inp.Comment)
	switch {
	case inp.Rating < 1 || inp.Rating > 5:
		return model.Review{}, errs.Validation("rating must be between 1 and 5")
	case comment == "":
		return model.Review{}, errs.Validation("comment is required")
	}
	return model.Review{Rating: inp.Rating, Comment: comment}, nil
}

func (s *LedgerService) CreateReview(ctx context.Context, userID, bookID int, inp model.ReviewInput) (model.Review, error) {
	if userID == 0 {
		return model.Review{}, errs.ErrUnauthorized
	}
	rv, err := reviewFromInput(inp)
	if err != nil {
		return model.Review{}, err
	}
	if _, err = s.repo.GetBook(ctx, bookID, false); err != nil {
		return model.Review{}, err
	}
	_, err = s.repo.GetReview(ctx, userID, bookID)
	switch {
	case err == nil:
		return model.Review{}, errs.ErrDuplicateReview
	case !errors.Is(err, errs.ErrNotFound):
		return model.Review{}, err
	}
	rv.UserID, rv.BookID = userID, bookID
	return s.repo.CreateReview(ctx, rv)
}

// ownReview loads the caller's review of the book and checks action on it.
func (s *LedgerService) ownReview(ctx context.Context, userID, bookID int, action policy.Action) (model.Review, error) {
	if userID == 0 {
		return model.Review{}, errs.ErrUnauthorized
	}
	user, err := s.repo.GetUser(ctx, userID, false)
	if err != nil {
		return model.Review{}, err
	}
	rv, err := s.repo.GetReview(ctx, userID, bookID)
	if err != nil {
		return model.Review{}, err
	}
	if !policy.Can(user, action, rv) {
		return model.Review{}, errs.ErrForbidden
	}
	return rv, nil
}

// EditReview keeps the review id and replaces rating and comment.
func (s *LedgerService) EditReview(ctx context.Context, userID, bookID int, inp model.ReviewInput) (model.Review, error) {
	upd, err := reviewFromInput(inp)
	if err != nil {
		return model.Review{}, err
	}
	rv, err := s.ownReview(ctx, userID, bookID, policy.ActionEditReview)
	if err != nil {
		return model.Review{}, err
	}
	rv.Rating, rv.Comment = upd.Rating, upd.Comment
	return s.repo.UpdateReview(ctx, rv)
}

func (s *LedgerService) DeleteReview(ctx context.Context, userID, bookID int) error {
	rv, err := s.ownReview(ctx, userID, bookID, policy.ActionDeleteReview)
	if err != nil {
		return err
	}
	return s.repo.DeleteReview(ctx, rv.ID)
}

// ToggleFavorite adds the book when absent and removes it when present.
func (s *LedgerService) ToggleFavorite(ctx context.Context, userID, bookID int) (model.FavoriteState, error) {
	if userID == 0 {
		return model.FavoriteState{}, errs.ErrUnauthorized
	}
	state := model.FavoriteState{BookID: bookID}
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		if _, err := tx.GetBook(ctx, bookID, false); err != nil {
			return err
		}
		removed, err := tx.RemoveFavorite(ctx, userID, bookID)
		if err != nil || removed {
			return err
		}
		state.IsFavorite = true
		return tx.AddFavorite(ctx, userID, bookID)
	})
	if err != nil {
		return model.FavoriteState{}, err
	}
	return state, nil
}

func (s *LedgerService) RemoveFavorite(ctx context.Context, userID, bookID int) error {
	if userID == 0 {
		return errs.ErrUnauthorized
	}
	removed, err := s.repo.RemoveFavorite(ctx, userID, bookID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFavorite
	}
	return nil
}

func (s *LedgerService) IsFavorite(ctx context.Context, userID, bookID int) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.repo.IsFavorite(ctx, userID, bookID)
}

func (s *LedgerService) Favorites(ctx context.Context, userID int) ([]model.Book, error) {
	if userID == 0 {
		return nil, errs.ErrUnauthorized
	}
	return s.repo.ListFavorites(ctx, userID)
}
