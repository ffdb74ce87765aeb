package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/Astemirdum/solidarity-library/pkg/auth"
)

const (
	AuthorizationHeader = "Authorization"
	bearer              = "Bearer "
)

type TokenParser interface {
	Parse(tokenStr string) (*auth.Claims, error)
}

var (
	errNoHeader      = echo.NewHTTPError(http.StatusUnauthorized, "No Authorization Header")
	errInvalidHeader = echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization Header")
	errAccessDenied  = echo.NewHTTPError(http.StatusUnauthorized, "JwtAccessDenied")
)

func withProfile(c echo.Context, tokens TokenParser, header string) error {
	if header == "" {
		return errNoHeader
	}
	if !strings.HasPrefix(header, bearer) {
		return errInvalidHeader
	}
	claims, err := tokens.Parse(strings.TrimPrefix(header, bearer))
	if err != nil {
		return errAccessDenied
	}
	req := c.Request()
	c.SetRequest(req.WithContext(auth.SetAuthContext(req.Context(), claims.Profile)))
	return nil
}

// JwtAuthentication rejects requests without a valid bearer token and
// stores the token profile in the request context.
func JwtAuthentication(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := withProfile(c, tokens, c.Request().Header.Get(AuthorizationHeader)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalJwt lets anonymous requests and bad tokens through without a profile.
func OptionalJwt(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_ = withProfile(c, tokens, c.Request().Header.Get(AuthorizationHeader))
			return next(c)
		}
	}
}

// NewRateLimiter limits each client IP to rps requests per second with the
// given burst. Idle visitors are forgotten after three minutes.
func NewRateLimiter(rps rate.Limit, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rps,
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		},
	})
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	log = log.Named("echo")
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if p, ok := auth.FromContext(c.Request().Context()); ok {
				fields = append(fields, zap.Int("user_id", p.UserID))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Log(levelOf(v.Status), "request", fields...)
			return nil
		},
	}
}

func levelOf(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}
