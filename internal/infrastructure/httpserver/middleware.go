package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// sessionContextKey holds the verified session claims for downstream
// handlers.
const sessionContextKey = "session"

// requireSession guards a route with bearer session token authentication.
// Verification links arriving from emails stay public; issuing a token is
// an authenticated action.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		claims, err := s.tokenSvc.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			if s.logger != nil {
				s.logger.WithError(err).Warn("session token rejected")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
		}

		c.Set(sessionContextKey, claims)
		return next(c)
	}
}
