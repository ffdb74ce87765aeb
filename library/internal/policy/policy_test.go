package policy_test

import (
	"testing"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
	"github.com/Astemirdum/solidarity-library/library/internal/policy"
	"github.com/stretchr/testify/require"
)

func TestCan(t *testing.T) {
	t.Parallel()
	reader := model.User{ID: 1, Role: model.RoleReader, IsActiveMember: true}
	librarian := model.User{ID: 2, Role: model.RoleLibrarian, IsActiveMember: true}
	admin := model.User{ID: 3, Role: model.RoleAdmin, IsActiveMember: true}

	tests := []struct {
		name   string
		user   model.User
		action policy.Action
		target any
		want   bool
	}{
		{name: "reader cannot approve", user: reader, action: policy.ActionApproveLoan, want: false},
		{name: "librarian approves", user: librarian, action: policy.ActionApproveLoan, want: true},
		{name: "admin returns", user: admin, action: policy.ActionReturnLoan, want: true},
		{name: "reader cannot reject", user: reader, action: policy.ActionRejectLoan, want: false},
		{name: "reader cannot manage catalog", user: reader, action: policy.ActionManageCatalog, want: false},
		{name: "anonymous", user: model.User{}, action: policy.ActionSubmitLoanRequest, want: false},
		{name: "active reader submits", user: reader, action: policy.ActionSubmitLoanRequest, want: true},
		{name: "inactive member cannot submit", user: model.User{ID: 9, Role: model.RoleReader}, action: policy.ActionSubmitLoanRequest, want: false},
		{name: "owner renews", user: reader, action: policy.ActionRenewLoan, target: model.Loan{UserID: 1}, want: true},
		{name: "other cannot renew", user: librarian, action: policy.ActionRenewLoan, target: model.Loan{UserID: 1}, want: false},
		{name: "owner edits review", user: reader, action: policy.ActionEditReview, target: model.Review{UserID: 1}, want: true},
		{name: "admin cannot edit foreign review", user: admin, action: policy.ActionDeleteReview, target: model.Review{UserID: 1}, want: false},
		{name: "wrong target type", user: reader, action: policy.ActionEditReview, target: model.Loan{UserID: 1}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, policy.Can(tt.user, tt.action, tt.target))
		})
	}
}
