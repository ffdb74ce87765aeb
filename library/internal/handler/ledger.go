package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

func (h *Handler) CreateReview(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	var req model.ReviewInput
	if err = bindAndValidate(c, &req); err != nil {
		return err
	}
	r, err := h.ledgerSvc.CreateReview(c.Request().Context(), userID(c), bookID, req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) EditReview(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	var req model.ReviewInput
	if err = bindAndValidate(c, &req); err != nil {
		return err
	}
	r, err := h.ledgerSvc.EditReview(c.Request().Context(), userID(c), bookID, req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	if err = h.ledgerSvc.DeleteReview(c.Request().Context(), userID(c), bookID); err != nil {
		return h.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ToggleFavorite(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	state, err := h.ledgerSvc.ToggleFavorite(c.Request().Context(), userID(c), bookID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) RemoveFavorite(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	if err = h.ledgerSvc.RemoveFavorite(c.Request().Context(), userID(c), bookID); err != nil {
		return h.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Favorites(c echo.Context) error {
	books, err := h.ledgerSvc.Favorites(c.Request().Context(), userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}
