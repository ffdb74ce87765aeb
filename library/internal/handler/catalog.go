package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/model"
)

// Home godoc
// @Summary  home page statistics
// @Tags     catalog
// @Produce  json
// @Success  200 {object} model.Home
// @Router   /api/v1/home [get]
func (h *Handler) Home(c echo.Context) error {
	home, err := h.catalogSvc.Home(c.Request().Context())
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, home)
}

// SearchBooks godoc
// @Summary  search the local catalog and the external catalog
// @Tags     catalog
// @Produce  json
// @Param    q query string false "title, author or category"
// @Success  200 {object} model.SearchResult
// @Router   /api/v1/books/search [get]
func (h *Handler) SearchBooks(c echo.Context) error {
	res, err := h.catalogSvc.SearchAll(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type externalResponse struct {
	Books []model.ExternalBook `json:"books"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const externalUnavailable = "external catalog unavailable"

// SearchExternal godoc
// @Summary  proxy the external bibliographic search
// @Tags     catalog
// @Produce  json
// @Param    q query string true "query"
// @Success  200 {object} externalResponse
// @Failure  400 {object} errorResponse
// @Failure  502 {object} errorResponse
// @Router   /api/v1/books/external [get]
func (h *Handler) SearchExternal(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query parameter q is required"})
	}
	books, err := h.catalogSvc.SearchExternal(c.Request().Context(), q)
	if err != nil {
		code := statusOf(err)
		switch code {
		case http.StatusBadRequest:
			return c.JSON(code, errorResponse{Error: err.Error()})
		case http.StatusBadGateway:
			h.log.Warn("external search", zap.String("query", q), zap.Error(err))
			return c.JSON(code, errorResponse{Error: externalUnavailable})
		default:
			h.log.Error("external search", zap.String("query", q), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		}
	}
	if books == nil {
		books = []model.ExternalBook{}
	}
	return c.JSON(http.StatusOK, externalResponse{Books: books})
}

// GetBook godoc
// @Summary  book detail
// @Tags     catalog
// @Produce  json
// @Param    bookID path int true "book id"
// @Success  200 {object} model.BookDetail
// @Failure  404 {object} echo.HTTPError
// @Router   /api/v1/books/{bookID} [get]
func (h *Handler) GetBook(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	detail, err := h.catalogSvc.BookDetail(c.Request().Context(), bookID, userID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.BookInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	book, err := h.catalogSvc.CreateBook(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	var req model.BookInput
	if err = bindAndValidate(c, &req); err != nil {
		return err
	}
	book, err := h.catalogSvc.UpdateBook(c.Request().Context(), userID(c), bookID, req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	if err = h.catalogSvc.DeleteBook(c.Request().Context(), userID(c), bookID); err != nil {
		return h.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCategories(c echo.Context) error {
	cats, err := h.catalogSvc.ListCategories(c.Request().Context())
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) CreateCategory(c echo.Context) error {
	var req model.CategoryInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cat, err := h.catalogSvc.CreateCategory(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *Handler) SetBookCategories(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	type Req struct {
		CategoryIDs []int `json:"categoryIds"`
	}
	var req Req
	if err = c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cats, err := h.catalogSvc.SetBookCategories(c.Request().Context(), userID(c), bookID, req.CategoryIDs)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) ListCopies(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	copies, err := h.catalogSvc.ListCopies(c.Request().Context(), bookID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, copies)
}

func (h *Handler) AddCopy(c echo.Context) error {
	bookID, err := intParam(c, "bookID")
	if err != nil {
		return err
	}
	var req model.CopyInput
	if err = bindAndValidate(c, &req); err != nil {
		return err
	}
	cp, err := h.catalogSvc.AddCopy(c.Request().Context(), userID(c), bookID, req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, cp)
}

func (h *Handler) SetCopyStatus(c echo.Context) error {
	copyID, err := intParam(c, "copyID")
	if err != nil {
		return err
	}
	var req model.CopyStatusInput
	if err = bindAndValidate(c, &req); err != nil {
		return err
	}
	cp, err := h.catalogSvc.SetCopyStatus(c.Request().Context(), userID(c), copyID, req.Status)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, cp)
}
