package httpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	config "github.com/eloquentlog/montafon/configs"
	"github.com/eloquentlog/montafon/internal/core/ports"
)

// Server is the thin HTTP surface over the identification core. It only
// translates requests into state machine calls and domain errors into
// status codes; all semantics live in the services.
type Server struct {
	echo              *echo.Echo
	config            *config.ServerConfig
	logger            *logrus.Logger
	identificationSvc ports.IdentificationService
	tokenSvc          ports.TokenService
}

func NewServer(cfg *config.ServerConfig, identificationSvc ports.IdentificationService, tokenSvc ports.TokenService, logger *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	server := &Server{
		echo:              e,
		config:            cfg,
		logger:            logger,
		identificationSvc: identificationSvc,
		tokenSvc:          tokenSvc,
	}

	server.setupRoutes()

	return server
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.logger.Infof("Starting HTTP server on %s", addr)
	return s.echo.StartServer(server)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
