package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.statsSvc.Dashboard(c.Request().Context(), userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
