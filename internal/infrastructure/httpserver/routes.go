package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eloquentlog/montafon/internal/infrastructure/metrics"
)

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := s.echo.Group("/api/v1")
	api.POST("/emails/:id/identification", s.issueIdentification, s.requireSession)
	api.GET("/identification/verify", s.verifyIdentificationByToken)
	api.POST("/identification/verify", s.verifyIdentificationByToken)
	api.GET("/identification/:id/verify", s.verifyIdentification)
	api.POST("/identification/:id/verify", s.verifyIdentification)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
