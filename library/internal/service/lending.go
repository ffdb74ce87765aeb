package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/lending"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
	"github.com/Astemirdum/solidarity-library/library/internal/repository"
	"github.com/Astemirdum/solidarity-library/pkg/kafka"
)

type LendingService struct {
	log    *zap.Logger
	repo   repository.Repository
	events EventPublisher
	now    func() time.Time
}

func NewLendingService(repo repository.Repository, events EventPublisher, log *zap.Logger) *LendingService {
	return &LendingService{
		log:    log.Named("lending"),
		repo:   repo,
		events: events,
		now:    time.Now,
	}
}

func (s *LendingService) SubmitRequest(ctx context.Context, userID int, inp model.LoanRequestInput) (model.LoanRequest, error) {
	if userID == 0 {
		return model.LoanRequest{}, errs.ErrUnauthorized
	}
	user, err := s.repo.GetUser(ctx, userID, false)
	if err != nil {
		return model.LoanRequest{}, err
	}
	book, err := s.repo.GetBook(ctx, inp.BookID, false)
	if err != nil {
		return model.LoanRequest{}, err
	}
	now := s.now()
	req, err := lending.DecideSubmit(user, book, inp.LoanType, now)
	if err != nil {
		return model.LoanRequest{}, err
	}
	if req, err = s.repo.CreateLoanRequest(ctx, req); err != nil {
		return model.LoanRequest{}, err
	}

	e := kafka.NewEventLoan(kafka.EventLoanRequested, now)
	e.UserID, e.BookID, e.RequestID, e.ActorID = req.UserID, req.BookID, req.ID, userID
	s.publish(ctx, e)
	return req, nil
}

// ApproveRequest locks the request, the book and the borrower, in that order,
// so two concurrent approvals for one book serialize and the later one sees
// the book as unavailable.
func (s *LendingService) ApproveRequest(ctx context.Context, approverID, requestID int) (model.ApproveResult, error) {
	approver, err := authorize(ctx, s.repo, approverID, policy.ActionApproveLoan, nil)
	if err != nil {
		return model.ApproveResult{}, err
	}

	now := s.now()
	var res model.ApproveResult
	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		req, err := tx.GetLoanRequest(ctx, requestID, true)
		if err != nil {
			return err
		}
		book, err := tx.GetBook(ctx, req.BookID, true)
		if err != nil {
			return err
		}
		borrower, err := tx.GetUser(ctx, req.UserID, true)
		if err != nil {
			return err
		}
		active, err := tx.CountActiveLoans(ctx, borrower.ID)
		if err != nil {
			return err
		}

		res, err = lending.DecideApprove(lending.Approval{
			Approver:    approver,
			Request:     req,
			Book:        book,
			Borrower:    borrower,
			ActiveLoans: active,
		}, now)
		if err != nil {
			return err
		}

		if err = tx.UpdateLoanRequest(ctx, res.Request); err != nil {
			return err
		}
		if res.Loan, err = tx.CreateLoan(ctx, res.Loan); err != nil {
			return err
		}
		return tx.SetBookAvailable(ctx, book.ID, false)
	})
	if err != nil {
		s.log.Info("approve refused", zap.Int("requestID", requestID), zap.Error(err))
		return model.ApproveResult{}, err
	}

	e := kafka.NewEventLoan(kafka.EventLoanApproved, now)
	e.UserID, e.BookID, e.RequestID, e.LoanID, e.ActorID = res.Loan.UserID, res.Loan.BookID, res.Request.ID, res.Loan.ID, approverID
	s.publish(ctx, e)
	return res, nil
}

func (s *LendingService) RejectRequest(ctx context.Context, approverID, requestID int) (model.LoanRequest, error) {
	approver, err := authorize(ctx, s.repo, approverID, policy.ActionRejectLoan, nil)
	if err != nil {
		return model.LoanRequest{}, err
	}

	now := s.now()
	var req model.LoanRequest
	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		cur, err := tx.GetLoanRequest(ctx, requestID, true)
		if err != nil {
			return err
		}
		if req, err = lending.DecideReject(approver, cur, now); err != nil {
			return err
		}
		return tx.UpdateLoanRequest(ctx, req)
	})
	if err != nil {
		return model.LoanRequest{}, err
	}

	e := kafka.NewEventLoan(kafka.EventLoanRejected, now)
	e.UserID, e.BookID, e.RequestID, e.ActorID = req.UserID, req.BookID, req.ID, approverID
	s.publish(ctx, e)
	return req, nil
}

// ReturnLoan closes the loan, frees the book and applies the late penalty.
// The originating request, if any, moves to returned.
func (s *LendingService) ReturnLoan(ctx context.Context, approverID, loanID int) (model.ReturnResult, error) {
	approver, err := authorize(ctx, s.repo, approverID, policy.ActionReturnLoan, nil)
	if err != nil {
		return model.ReturnResult{}, err
	}

	now := s.now()
	var res model.ReturnResult
	err = s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		loan, err := tx.GetLoan(ctx, loanID, true)
		if err != nil {
			return err
		}
		if _, err = tx.GetBook(ctx, loan.BookID, true); err != nil {
			return err
		}
		borrower, err := tx.GetUser(ctx, loan.UserID, true)
		if err != nil {
			return err
		}

		if res, err = lending.DecideReturn(approver, loan, borrower, now); err != nil {
			return err
		}

		if err = tx.UpdateLoan(ctx, res.Loan); err != nil {
			return err
		}
		if err = tx.SetBookAvailable(ctx, loan.BookID, true); err != nil {
			return err
		}
		if res.Penalized {
			if err = tx.UpdateScore(ctx, borrower.ID, res.ScoreAfter); err != nil {
				return err
			}
		}
		if loan.RequestID == nil {
			return nil
		}
		req, err := tx.GetLoanRequest(ctx, *loan.RequestID, true)
		if err != nil {
			return err
		}
		if req.Status != model.RequestApproved {
			return nil
		}
		req.Status = model.RequestReturned
		return tx.UpdateLoanRequest(ctx, req)
	})
	if err != nil {
		return model.ReturnResult{}, err
	}

	if res.Penalized {
		s.log.Info("late return",
			zap.Int("loanID", loanID),
			zap.Int("daysOverdue", res.DaysOverdue),
			zap.Float64("penalty", res.Penalty),
			zap.Float64("score", res.ScoreAfter))
	}
	e := kafka.NewEventLoan(kafka.EventLoanReturned, now)
	e.UserID, e.BookID, e.LoanID, e.ActorID = res.Loan.UserID, res.Loan.BookID, res.Loan.ID, approverID
	e.DaysOverdue, e.Penalty = res.DaysOverdue, res.Penalty
	if res.Loan.RequestID != nil {
		e.RequestID = *res.Loan.RequestID
	}
	s.publish(ctx, e)
	return res, nil
}

func (s *LendingService) RenewLoan(ctx context.Context, userID, loanID int) (model.RenewResult, error) {
	if userID == 0 {
		return model.RenewResult{}, errs.ErrUnauthorized
	}
	now := s.now()
	var res model.RenewResult
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		user, err := tx.GetUser(ctx, userID, false)
		if err != nil {
			return err
		}
		loan, err := tx.GetLoan(ctx, loanID, true)
		if err != nil {
			return err
		}
		if res, err = lending.DecideRenew(user, loan, now); err != nil {
			return err
		}
		if err = tx.UpdateLoan(ctx, res.Loan); err != nil {
			return err
		}
		res.Renewal, err = tx.CreateRenewal(ctx, res.Renewal)
		return err
	})
	if err != nil {
		return model.RenewResult{}, err
	}

	e := kafka.NewEventLoan(kafka.EventLoanRenewed, now)
	e.UserID, e.BookID, e.LoanID, e.ActorID = res.Loan.UserID, res.Loan.BookID, res.Loan.ID, userID
	s.publish(ctx, e)
	return res, nil
}

func (s *LendingService) PendingRequests(ctx context.Context, actorID int) ([]model.LoanRequest, error) {
	if _, err := authorize(ctx, s.repo, actorID, policy.ActionListPending, nil); err != nil {
		return nil, err
	}
	return s.repo.ListLoanRequests(ctx, repository.RequestFilter{Status: model.RequestPending})
}

func (s *LendingService) UserRequests(ctx context.Context, userID int) ([]model.LoanRequest, error) {
	if userID == 0 {
		return nil, errs.ErrUnauthorized
	}
	return s.repo.ListLoanRequests(ctx, repository.RequestFilter{UserID: userID})
}

// UserLoans lists the user's loans newest first with overdue derived from today.
func (s *LendingService) UserLoans(ctx context.Context, userID int) ([]model.Loan, error) {
	if userID == 0 {
		return nil, errs.ErrUnauthorized
	}
	loans, err := s.repo.ListLoans(ctx, repository.LoanFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	return withEffectiveStatus(loans, s.now()), nil
}

func withEffectiveStatus(loans []model.Loan, now time.Time) []model.Loan {
	for i := range loans {
		loans[i].Status = loans[i].EffectiveStatus(now)
	}
	return loans
}

func (s *LendingService) publish(ctx context.Context, e kafka.EventLoan) {
	if err := s.events.Publish(ctx, kafka.LoanEventsTopic, e); err != nil {
		s.log.Warn("publish loan event",
			zap.String("type", string(e.EventType)),
			zap.Int("loanID", e.LoanID),
			zap.Int("requestID", e.RequestID),
			zap.Error(err))
	}
}
