package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

func (h *Handler) Subscribe(c echo.Context) error {
	var req model.SubscribeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	var uid *int
	if id := userID(c); id != 0 {
		uid = &id
	}
	sub, err := h.newsletterSvc.Subscribe(c.Request().Context(), req.Email, uid)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, sub)
}

// UnsubscribeToken serves the link embedded in every newsletter mail.
func (h *Handler) UnsubscribeToken(c echo.Context) error {
	if err := h.newsletterSvc.Unsubscribe(c.Request().Context(), c.Param("token")); err != nil {
		return h.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnsubscribeEmail(c echo.Context) error {
	var req model.SubscribeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.newsletterSvc.UnsubscribeByEmail(c.Request().Context(), req.Email); err != nil {
		return h.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateCampaign(c echo.Context) error {
	var req model.CampaignInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	campaign, err := h.newsletterSvc.CreateCampaign(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, campaign)
}

func (h *Handler) ListCampaigns(c echo.Context) error {
	list, err := h.newsletterSvc.ListCampaigns(c.Request().Context(), userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
