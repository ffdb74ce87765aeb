package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/solidarity-library/library/internal/errs"
	"github.com/Astemirdum/solidarity-library/pkg/auth"
	md "github.com/Astemirdum/solidarity-library/pkg/middleware"
	"github.com/Astemirdum/solidarity-library/pkg/validate"
	_ "github.com/Astemirdum/solidarity-library/swagger"
)

type Services struct {
	Catalog    CatalogService
	Users      UserService
	Lending    LendingService
	Ledger     LedgerService
	Newsletter NewsletterService
	Stats      StatsService
}

type Handler struct {
	catalogSvc    CatalogService
	userSvc       UserService
	lendingSvc    LendingService
	ledgerSvc     LedgerService
	newsletterSvc NewsletterService
	statsSvc      StatsService
	tokens        md.TokenParser
	log           *zap.Logger
}

func New(svc Services, tokens md.TokenParser, log *zap.Logger) *Handler {
	return &Handler{
		catalogSvc:    svc.Catalog,
		userSvc:       svc.Users,
		lendingSvc:    svc.Lending,
		ledgerSvc:     svc.Ledger,
		newsletterSvc: svc.Newsletter,
		statsSvc:      svc.Stats,
		tokens:        tokens,
		log:           log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS, 2*baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS, 2*apiRPS),
	)
	authMW := md.JwtAuthentication(h.tokens)

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout, authMW)

	api.GET("/home", h.Home)
	api.GET("/books/search", h.SearchBooks)
	api.GET("/books/external", h.SearchExternal)
	api.GET("/books/:bookID", h.GetBook, md.OptionalJwt(h.tokens))
	api.GET("/books/:bookID/copies", h.ListCopies)
	api.GET("/categories", h.ListCategories)

	api.POST("/newsletter/subscribe", h.Subscribe, md.OptionalJwt(h.tokens))
	api.GET("/newsletter/unsubscribe/:token", h.UnsubscribeToken)
	api.POST("/newsletter/unsubscribe/:token", h.UnsubscribeToken)
	api.POST("/newsletter/unsubscribe", h.UnsubscribeEmail)

	private := api.Group("", authMW)

	private.POST("/books", h.CreateBook)
	private.PUT("/books/:bookID", h.UpdateBook)
	private.DELETE("/books/:bookID", h.DeleteBook)
	private.POST("/books/:bookID/copies", h.AddCopy)
	private.PATCH("/copies/:copyID", h.SetCopyStatus)
	private.POST("/categories", h.CreateCategory)
	private.PUT("/books/:bookID/categories", h.SetBookCategories)

	private.POST("/books/:bookID/review", h.CreateReview)
	private.PUT("/books/:bookID/review", h.EditReview)
	private.DELETE("/books/:bookID/review", h.DeleteReview)
	private.POST("/books/:bookID/favorite", h.ToggleFavorite)
	private.DELETE("/books/:bookID/favorite", h.RemoveFavorite)
	private.GET("/favorites", h.Favorites)

	private.GET("/profile", h.Profile)

	private.POST("/loan-requests", h.SubmitLoanRequest)
	private.GET("/loan-requests", h.MyLoanRequests)
	private.GET("/loan-requests/pending", h.PendingLoanRequests)
	private.POST("/loan-requests/:requestID/approve", h.ApproveLoanRequest)
	private.POST("/loan-requests/:requestID/reject", h.RejectLoanRequest)
	private.GET("/loans", h.MyLoans)
	private.POST("/loans/:loanID/return", h.ReturnLoan)
	private.POST("/loans/:loanID/renew", h.RenewLoan)

	private.GET("/dashboard", h.Dashboard)
	private.POST("/newsletter/campaigns", h.CreateCampaign)
	private.GET("/newsletter/campaigns", h.ListCampaigns)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// userID is the authenticated caller, 0 when anonymous.
func userID(c echo.Context) int {
	p, _ := auth.FromContext(c.Request().Context())
	return p.UserID
}

func intParam(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" is invalid")
	}
	return id, nil
}

func bindAndValidate(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// httpError maps a service error onto its status. Unclassified errors are
// logged and answered with a generic message.
func (h *Handler) httpError(c echo.Context, err error) error {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		h.log.Error("internal error",
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err))
		return echo.NewHTTPError(code, http.StatusText(code))
	}
	msg := errs.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	return echo.NewHTTPError(code, msg)
}
