package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teampulse/feedback-desk/internal/core/ports"
)

// RequireSession rejects requests made without an authenticated session.
func RequireSession(session ports.SessionReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !session.IsAuthenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
			}
			return next(c)
		}
	}
}

// RequireRole enforces role-based access on top of RequireSession.
func RequireRole(session ports.SessionReader, allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !session.IsAuthenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
			}
			if _, ok := allowed[session.Identity().Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
