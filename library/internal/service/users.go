package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
	"github.com/Astemirdum/solidarity-library/pkg/auth"
)

// RegisteredHook runs after a registration has been committed.
type RegisteredHook func(ctx context.Context, reg model.Registration, newsletter bool) error

type UserService struct {
	log          *zap.Logger
	repo         repository.Repository
	tokens       TokenIssuer
	onRegistered []RegisteredHook
	now          func() time.Time
}

func NewUserService(repo repository.Repository, tokens TokenIssuer, log *zap.Logger) *UserService {
	return &UserService{
		log:    log.Named("users"),
		repo:   repo,
		tokens: tokens,
		now:    time.Now,
	}
}

// OnRegistered adds a hook. Hook failures are logged, never returned.
func (s *UserService) OnRegistered(h RegisteredHook) {
	s.onRegistered = append(s.onRegistered, h)
}

func VirtualCardID(userID int) string {
	return fmt.Sprintf("VCARD-%05d", userID)
}

// Register creates the user and its profile in one transaction.
func (s *UserService) Register(ctx context.Context, inp model.RegisterRequest) (model.Registration, error) {
	username := strings.TrimSpace(inp.Username)
	if username == "" {
		return model.Registration{}, errs.Validation("username is required")
	}
	if len(inp.Password) < 8 {
		return model.Registration{}, errs.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(inp.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.Registration{}, errors.Wrap(err, "bcrypt")
	}

	var reg model.Registration
	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		u, err := tx.CreateUser(ctx, model.User{
			Username:       username,
			Email:          strings.ToLower(strings.TrimSpace(inp.Email)),
			PasswordHash:   string(hash),
			FirstName:      strings.TrimSpace(inp.FirstName),
			LastName:       strings.TrimSpace(inp.LastName),
			DNI:            strings.TrimSpace(inp.DNI),
			Address:        strings.TrimSpace(inp.Address),
			Phone:          strings.TrimSpace(inp.Phone),
			Role:           model.RoleReader,
			Score:          model.DefaultScore,
			IsActiveMember: true,
		})
		if err != nil {
			return err
		}
		p, err := tx.CreateProfile(ctx, model.UserProfile{
			UserID:        u.ID,
			VirtualCardID: VirtualCardID(u.ID),
		})
		if err != nil {
			return err
		}
		reg = model.Registration{User: u, Profile: p}
		return nil
	})
	if err != nil {
		return model.Registration{}, err
	}

	s.log.Info("user registered", zap.Int("userID", reg.User.ID), zap.String("card", reg.Profile.VirtualCardID))
	for _, h := range s.onRegistered {
		if err := h(ctx, reg, inp.Newsletter); err != nil {
			s.log.Warn("registration hook", zap.Int("userID", reg.User.ID), zap.Error(err))
		}
	}
	if len(s.onRegistered) > 0 {
		p, err := s.repo.GetProfile(ctx, reg.User.ID)
		if err != nil {
			s.log.Warn("reload profile", zap.Int("userID", reg.User.ID), zap.Error(err))
			return reg, nil
		}
		reg.Profile = p
	}
	return reg, nil
}

func (s *UserService) Login(ctx context.Context, inp model.LoginRequest) (model.LoginResponse, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(inp.Username))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.LoginResponse{}, errs.ErrInvalidCredentials
		}
		return model.LoginResponse{}, err
	}
	if err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(inp.Password)); err != nil {
		return model.LoginResponse{}, errs.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(auth.Profile{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	}, s.now())
	if err != nil {
		return model.LoginResponse{}, errors.Wrap(err, "issue token")
	}
	return model.LoginResponse{Token: token, User: u}, nil
}

func (s *UserService) Profile(ctx context.Context, userID int) (model.ProfileView, error) {
	if userID == 0 {
		return model.ProfileView{}, errs.ErrUnauthorized
	}
	var v model.ProfileView
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		v.User, err = s.repo.GetUser(gCtx, userID, false)
		return err
	})
	g.Go(func() (err error) {
		v.Profile, err = s.repo.GetProfile(gCtx, userID)
		return err
	})
	g.Go(func() (err error) {
		v.Favorites, err = s.repo.ListFavorites(gCtx, userID)
		return err
	})
	g.Go(func() (err error) {
		v.ActiveLoans, err = s.repo.ListLoans(gCtx, repository.LoanFilter{
			UserID:   userID,
			Statuses: []model.LoanStatus{model.LoanActive},
		})
		return err
	})
	g.Go(func() (err error) {
		v.LoanHistory, err = s.repo.ListLoans(gCtx, repository.LoanFilter{UserID: userID, ExcludeOpen: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ProfileView{}, err
	}
	now := s.now()
	v.ActiveLoans = withEffectiveStatus(v.ActiveLoans, now)
	return v, nil
}
