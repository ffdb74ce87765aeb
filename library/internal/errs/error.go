package errs

import (
	"github.com/pkg/errors"
)

// Error classes. Handlers map them to status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream unavailable")
)

// Error is a user-facing condition belonging to one class.
type Error struct {
	class error
	msg   string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.class }

func New(class error, msg string) *Error {
	return &Error{class: class, msg: msg}
}

var (
	ErrBookUnavailable    = New(ErrConflict, "book unavailable")
	ErrBookNotLendable    = New(ErrValidation, "book is not available for loan")
	ErrAlreadyResolved    = New(ErrConflict, "request already resolved")
	ErrLoanLimit          = New(ErrConflict, "loan limit reached")
	ErrDuplicateReview    = New(ErrConflict, "review already exists, edit it instead")
	ErrAlreadyCataloged   = New(ErrConflict, "book already cataloged")
	ErrDuplicateCopy      = New(ErrConflict, "physical id already in use")
	ErrDuplicateUser      = New(ErrConflict, "username or dni already registered")
	ErrLoanNotActive      = New(ErrConflict, "loan is not active")
	ErrAlreadyRenewed     = New(ErrConflict, "loan already renewed")
	ErrLoanOverdue        = New(ErrConflict, "loan is overdue")
	ErrAlreadySubscribed  = New(ErrConflict, "email already subscribed")
	ErrCampaignSent       = New(ErrConflict, "campaign already sent")
	ErrInvalidCredentials = New(ErrUnauthorized, "invalid credentials")
)

func Validation(reason string) error {
	return New(ErrValidation, reason)
}

// Message returns the user-facing text of err, or "" when err carries none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}
