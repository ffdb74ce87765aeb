package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

// SubmitLoanRequest godoc
// @Summary  request a loan
// @Tags     lending
// @Accept   json
// @Produce  json
// @Param    request body model.LoanRequestInput true "book and loan type"
// @Success  201 {object} model.LoanRequest
// @Failure  400 {object} echo.HTTPError
// @Router   /api/v1/loan-requests [post]
func (h *Handler) SubmitLoanRequest(c echo.Context) error {
	var req model.LoanRequestInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	lr, err := h.lendingSvc.SubmitRequest(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, lr)
}

func (h *Handler) MyLoanRequests(c echo.Context) error {
	list, err := h.lendingSvc.UserRequests(c.Request().Context(), userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) PendingLoanRequests(c echo.Context) error {
	list, err := h.lendingSvc.PendingRequests(c.Request().Context(), userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ApproveLoanRequest godoc
// @Summary  approve a pending loan request
// @Tags     lending
// @Produce  json
// @Param    requestID path int true "request id"
// @Success  200 {object} model.ApproveResult
// @Failure  409 {object} echo.HTTPError
// @Router   /api/v1/loan-requests/{requestID}/approve [post]
func (h *Handler) ApproveLoanRequest(c echo.Context) error {
	requestID, err := intParam(c, "requestID")
	if err != nil {
		return err
	}
	res, err := h.lendingSvc.ApproveRequest(c.Request().Context(), userID(c), requestID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) RejectLoanRequest(c echo.Context) error {
	requestID, err := intParam(c, "requestID")
	if err != nil {
		return err
	}
	lr, err := h.lendingSvc.RejectRequest(c.Request().Context(), userID(c), requestID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, lr)
}

func (h *Handler) MyLoans(c echo.Context) error {
	loans, err := h.lendingSvc.UserLoans(c.Request().Context(), userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, loans)
}

// ReturnLoan godoc
// @Summary  register the return of a loan
// @Tags     lending
// @Produce  json
// @Param    loanID path int true "loan id"
// @Success  200 {object} model.ReturnResult
// @Router   /api/v1/loans/{loanID}/return [post]
func (h *Handler) ReturnLoan(c echo.Context) error {
	loanID, err := intParam(c, "loanID")
	if err != nil {
		return err
	}
	res, err := h.lendingSvc.ReturnLoan(c.Request().Context(), userID(c), loanID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) RenewLoan(c echo.Context) error {
	loanID, err := intParam(c, "loanID")
	if err != nil {
		return err
	}
	res, err := h.lendingSvc.RenewLoan(c.Request().Context(), userID(c), loanID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
