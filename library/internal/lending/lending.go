// Package lending decides loan request and loan transitions.
//
// Every Decide function is pure: it takes the state loaded (and locked) by the
// caller plus the current time and returns either the records to persist or the
// reason the transition is refused. Nothing is mutated when an error is returned.
package lending

import (
	"math"
	"time"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
)

// PenaltyPerDay is the score deducted for each day a loan is returned late.
const PenaltyPerDay = 0.5

// Penalty returns the deduction for daysOverdue and the resulting score,
// which never drops below zero.
func Penalty(score float64, daysOverdue int) (penalty, after float64) {
	if daysOverdue <= 0 {
		return 0, score
	}
	penalty = float64(daysOverdue) * PenaltyPerDay
	return penalty, math.Max(0, score-penalty)
}

// DecideSubmit builds a pending request. No stock is reserved: concurrent
// requests for one book are settled at approval time.
func DecideSubmit(user model.User, book model.Book, loanType model.LoanType, now time.Time) (model.LoanRequest, error) {
	if !policy.Can(user, policy.ActionSubmitLoanRequest, nil) {
		return model.LoanRequest{}, errs.ErrForbidden
	}
	if loanType == "" {
		loanType = model.LoanNormal
	}
	if !loanType.Valid() {
		return model.LoanRequest{}, errs.Validation("unknown loan type " + string(loanType))
	}
	if !book.Available {
		return model.LoanRequest{}, errs.ErrBookNotLendable
	}
	return model.LoanRequest{
		UserID:      user.ID,
		Username:    user.Username,
		BookID:      book.ID,
		BookTitle:   book.Title,
		LoanType:    loanType,
		Status:      model.RequestPending,
		RequestDate: now,
	}, nil
}

// Approval is the state an approval is decided on.
type Approval struct {
	Approver    model.User
	Request     model.LoanRequest
	Book        model.Book
	Borrower    model.User
	ActiveLoans int
}

// DecideApprove checks role, request status, book availability and the
// borrower's loan limit, in that order, and returns the approved request
// together with the new active loan.
func DecideApprove(a Approval, now time.Time) (model.ApproveResult, error) {
	if !policy.Can(a.Approver, policy.ActionApproveLoan, a.Request) {
		return model.ApproveResult{}, errs.ErrForbidden
	}
	if a.Request.Status != model.RequestPending {
		return model.ApproveResult{}, errs.ErrAlreadyResolved
	}
	if !a.Book.Available {
		return model.ApproveResult{}, errs.ErrBookUnavailable
	}
	if a.ActiveLoans >= a.Borrower.LoanLimit(now) {
		return model.ApproveResult{}, errs.ErrLoanLimit
	}

	req := a.Request
	approver := a.Approver.ID
	approvedAt := now
	req.Status = model.RequestApproved
	req.ApprovedBy = &approver
	req.ApprovedDate = &approvedAt

	loanType := req.LoanType
	if loanType == "" {
		loanType = model.LoanNormal
	}
	requestID := req.ID
	today := model.Day(now)
	loan := model.Loan{
		UserID:    req.UserID,
		BookID:    req.BookID,
		BookTitle: a.Book.Title,
		RequestID: &requestID,
		LoanType:  loanType,
		LoanDate:  today,
		DueDate:   today.AddDate(0, 0, loanType.TermDays()),
		Status:    model.LoanActive,
	}
	return model.ApproveResult{Request: req, Loan: loan}, nil
}

// DecideReject resolves a pending request as rejected. The book is untouched.
func DecideReject(approver model.User, req model.LoanRequest, now time.Time) (model.LoanRequest, error) {
	if !policy.Can(approver, policy.ActionRejectLoan, req) {
		return model.LoanRequest{}, errs.ErrForbidden
	}
	if req.Status != model.RequestPending {
		return model.LoanRequest{}, errs.ErrAlreadyResolved
	}
	id := approver.ID
	at := now
	req.Status = model.RequestRejected
	req.ApprovedBy = &id
	req.ApprovedDate = &at
	return req, nil
}

// DecideReturn closes an active loan and computes the late-return penalty
// against the borrower's current score.
func DecideReturn(approver model.User, loan model.Loan, borrower model.User, now time.Time) (model.ReturnResult, error) {
	if !policy.Can(approver, policy.ActionReturnLoan, loan) {
		return model.ReturnResult{}, errs.ErrForbidden
	}
	if loan.Status != model.LoanActive {
		return model.ReturnResult{}, errs.ErrLoanNotActive
	}

	returned := model.Day(now)
	loan.ReturnDate = &returned
	loan.Status = model.LoanReturned

	res := model.ReturnResult{
		Loan:        loan,
		ScoreBefore: borrower.Score,
		ScoreAfter:  borrower.Score,
	}
	if days := model.DaysBetween(loan.DueDate, returned); days > 0 {
		res.Penalized = true
		res.DaysOverdue = days
		res.Penalty, res.ScoreAfter = Penalty(borrower.Score, days)
	}
	return res, nil
}

// DecideRenew extends an active loan once by another term of its type.
// Only the borrower may renew, and only before the due date has passed.
func DecideRenew(actor model.User, loan model.Loan, now time.Time) (model.RenewResult, error) {
	if !policy.Can(actor, policy.ActionRenewLoan, loan) {
		return model.RenewResult{}, errs.ErrForbidden
	}
	switch loan.EffectiveStatus(now) {
	case model.LoanActive:
	case model.LoanOverdue:
		return model.RenewResult{}, errs.ErrLoanOverdue
	default:
		return model.RenewResult{}, errs.ErrLoanNotActive
	}
	if loan.Renewed {
		return model.RenewResult{}, errs.ErrAlreadyRenewed
	}

	previous := loan.DueDate
	loan.DueDate = previous.AddDate(0, 0, loan.LoanType.TermDays())
	loan.Renewed = true
	return model.RenewResult{
		Loan: loan,
		Renewal: model.Renewal{
			LoanID:          loan.ID,
			RenewalDate:     model.Day(now),
			PreviousDueDate: previous,
			NewDueDate:      loan.DueDate,
		},
	}, nil
}
