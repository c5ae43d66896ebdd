package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eloquentlog/montafon/internal/core/domain/email"
	"github.com/eloquentlog/montafon/internal/core/domain/queue"
)

// issueIdentification issues (or re-issues) an identification token for a
// pending record and queues the verification email.
func (s *Server) issueIdentification(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	record, err := s.identificationSvc.Issue(c.Request().Context(), id)
	if err != nil {
		return identificationError(err)
	}

	return c.JSON(http.StatusAccepted, map[string]any{
		"record_id":  record.ID,
		"state":      record.IdentificationState,
		"expires_at": record.IdentificationTokenExpiresAt,
	})
}

// verifyIdentification consumes a presented token for the record named in
// the path. The token arrives as a query parameter on the emailed link or
// in the request body.
func (s *Server) verifyIdentification(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	token := c.QueryParam("token")
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.Bind(&req); err != nil || req.Token == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing token")
		}
		token = req.Token
	}

	record, err := s.identificationSvc.Verify(c.Request().Context(), id, token)
	if err != nil {
		return identificationError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"record_id":  record.ID,
		"state":      record.IdentificationState,
		"granted_at": record.IdentificationTokenGrantedAt,
	})
}

// verifyIdentificationByToken consumes a presented token without naming a
// record. Verification links that carry only the token land here.
func (s *Server) verifyIdentificationByToken(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.Bind(&req); err != nil || req.Token == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing token")
		}
		token = req.Token
	}

	record, err := s.identificationSvc.VerifyByToken(c.Request().Context(), token)
	if err != nil {
		return identificationError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"record_id":  record.ID,
		"state":      record.IdentificationState,
		"granted_at": record.IdentificationTokenGrantedAt,
	})
}

// identificationError maps the state machine error taxonomy onto HTTP
// status codes.
func identificationError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, email.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, email.ErrAlreadyVerified):
		return echo.NewHTTPError(http.StatusConflict, "email already verified")
	case errors.Is(err, email.ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, "operation invalid for current state")
	case errors.Is(err, email.ErrNoPendingToken),
		errors.Is(err, email.ErrTokenMismatch):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid token")
	case errors.Is(err, email.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "token expired")
	case errors.Is(err, email.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, "email already taken")
	case errors.Is(err, queue.ErrQueueUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
