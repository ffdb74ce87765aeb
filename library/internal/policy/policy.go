// Package policy decides which role may perform which action.
package policy

import (
	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

type Action string

const (
	ActionSubmitLoanRequest Action = "loan_request:submit"
	ActionApproveLoan       Action = "loan_request:approve"
	ActionRejectLoan        Action = "loan_request:reject"
	ActionListPending       Action = "loan_request:list_pending"
	ActionReturnLoan        Action = "loan:return"
	ActionRenewLoan         Action = "loan:renew"
	ActionManageCatalog     Action = "catalog:manage"
	ActionEditReview        Action = "review:edit"
	ActionDeleteReview      Action = "review:delete"
	ActionViewDashboard     Action = "dashboard:view"
	ActionManageNewsletter  Action = "newsletter:manage"
)

var staffOnly = map[Action]bool{
	ActionApproveLoan:      true,
	ActionRejectLoan:       true,
	ActionListPending:      true,
	ActionReturnLoan:       true,
	ActionManageCatalog:    true,
	ActionViewDashboard:    true,
	ActionManageNewsletter: true,
}

// Can reports whether user may perform action on target. target may be nil
// for actions that do not depend on a particular record.
func Can(user model.User, action Action, target any) bool {
	if user.ID == 0 {
		return false
	}
	if staffOnly[action] {
		return user.IsStaff()
	}
	switch action {
	case ActionSubmitLoanRequest:
		return user.IsActiveMember
	case ActionRenewLoan:
		loan, ok := target.(model.Loan)
		return ok && loan.UserID == user.ID
	case ActionEditReview, ActionDeleteReview:
		review, ok := target.(model.Review)
		return ok && review.UserID == user.ID
	}
	return false
}
