package model

import (
	"time"
)

type LoanType string

const (
	LoanNormal  LoanType = "normal"
	LoanExpress LoanType = "express"
	LoanSummer  LoanType = "summer"
)

// TermDays is the number of days added to the loan date to get the due date.
func (t LoanType) TermDays() int {
	switch t {
	case LoanExpress:
		return 3
	case LoanSummer:
		return 60
	default:
		return 15
	}
}

func (t LoanType) Valid() bool {
	switch t {
	case LoanNormal, LoanExpress, LoanSummer:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestReturned RequestStatus = "returned"
)

type LoanRequest struct {
	ID           int           `json:"id" db:"id"`
	UserID       int           `json:"userId" db:"user_id"`
	Username     string        `json:"username" db:"username"`
	BookID       int           `json:"bookId" db:"book_id"`
	BookTitle    string        `json:"bookTitle" db:"book_title"`
	LoanType     LoanType      `json:"loanType" db:"loan_type"`
	Status       RequestStatus `json:"status" db:"status"`
	RequestDate  time.Time     `json:"requestDate" db:"request_date"`
	ApprovedBy   *int          `json:"approvedBy,omitempty" db:"approved_by"`
	ApprovedDate *time.Time    `json:"approvedDate,omitempty" db:"approved_date"`
}

type LoanRequestInput struct {
	BookID   int      `json:"bookId" form:"book_id" validate:"required,gt=0"`
	LoanType LoanType `json:"loanType" form:"loan_type"`
}

type LoanStatus string

const (
	LoanPending  LoanStatus = "pending"
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
	LoanOverdue  LoanStatus = "overdue"
	LoanLost     LoanStatus = "lost"
)

type Loan struct {
	ID         int        `json:"id" db:"id"`
	UserID     int        `json:"userId" db:"user_id"`
	BookID     int        `json:"bookId" db:"book_id"`
	BookTitle  string     `json:"bookTitle" db:"book_title"`
	RequestID  *int       `json:"requestId,omitempty" db:"request_id"`
	LoanType   LoanType   `json:"loanType" db:"loan_type"`
	LoanDate   time.Time  `json:"loanDate" db:"loan_date"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
	Renewed    bool       `json:"renewed" db:"renewed"`
	Status     LoanStatus `json:"status" db:"status"`
}

// EffectiveStatus reports overdue for an active loan whose due date has passed.
// Overdue is never stored.
func (l Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.Status == LoanActive && Day(now).After(Day(l.DueDate)) {
		return LoanOverdue
	}
	return l.Status
}

type Renewal struct {
	ID              int       `json:"id" db:"id"`
	LoanID          int       `json:"loanId" db:"loan_id"`
	RenewalDate     time.Time `json:"renewalDate" db:"renewal_date"`
	PreviousDueDate time.Time `json:"previousDueDate" db:"previous_due_date"`
	NewDueDate      time.Time `json:"newDueDate" db:"new_due_date"`
}

type ApproveResult struct {
	Request LoanRequest `json:"request"`
	Loan    Loan        `json:"loan"`
}

type ReturnResult struct {
	Loan        Loan    `json:"loan"`
	Penalized   bool    `json:"penalized"`
	DaysOverdue int     `json:"daysOverdue"`
	Penalty     float64 `json:"penalty"`
	ScoreBefore float64 `json:"scoreBefore"`
	ScoreAfter  float64 `json:"scoreAfter"`
}

type RenewResult struct {
	Loan    Loan    `json:"loan"`
	Renewal Renewal `json:"renewal"`
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween is the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
