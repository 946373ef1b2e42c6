package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/otpchat/chat-api/internal/api/handler"
	"github.com/otpchat/chat-api/internal/api/metrics"
	"github.com/otpchat/chat-api/internal/core/domain"
	"github.com/otpchat/chat-api/internal/core/ports"
)

// TokenCookie is read when no Authorization header is present.
const TokenCookie = "accessToken"

// Auth resolves the bearer token to a verified user and stores it in the
// context under handler.UserContextKey. Missing, malformed or expired
// tokens, unknown users and unverified users are all rejected with 401.
func Auth(authn ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				metrics.GateRejectionsTotal.WithLabelValues("missing_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			user, err := authn.Authenticate(c.Request().Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrUserNotVerified):
				metrics.GateRejectionsTotal.WithLabelValues("unverified").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUserNotVerified.Error())
			case errors.Is(err, domain.ErrInvalidToken):
				metrics.GateRejectionsTotal.WithLabelValues("invalid_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrInvalidToken.Error())
			default:
				metrics.GateRejectionsTotal.WithLabelValues("error").Inc()
				return err
			}

			c.Set(handler.UserContextKey, user)
			return next(c)
		}
	}
}

// OptionalAuth attaches the user when a valid token is present and
// otherwise lets the request through untouched.
func OptionalAuth(authn ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, err := bearerToken(c); err == nil {
				if user, err := authn.Authenticate(c.Request().Context(), token); err == nil {
					c.Set(handler.UserContextKey, user)
				}
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if ck, err := c.Cookie(TokenCookie); err == nil && ck.Value != "" {
			return ck.Value, nil
		}
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
