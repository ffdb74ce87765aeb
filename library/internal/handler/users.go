package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reg, err := h.userSvc.Register(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, reg)
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.userSvc.Login(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout is stateless: tokens are not tracked server side, the client drops it.
func (h *Handler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Profile(c echo.Context) error {
	profile, err := h.userSvc.Profile(c.Request().Context(), userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}
