package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/core/user"
	"github.com/sigcolegio/backend/core/validity"
)

type (
	ServerDeps struct {
		Conf             *core.Config
		Logger           core.Logger
		UserSvc          *user.Service
		QualificationSvc *qualification.Service
		ValiditySvc      *validity.Service
		CatalogSvc       *catalog.Service
		Validate         *validator.Validate
		Translator       ut.Translator
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		conf:     deps.Conf,
		logger:   deps.Logger,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	s.app.HideBanner = true
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, deps.Translator, s.signalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	registerAuthAPI(g, s.auth, deps.UserSvc, deps.Validate, deps.Translator, s.logger)
	registerQualificationAPI(g, s.auth, deps.QualificationSvc)
	registerValidityAPI(g, s.auth, deps.ValiditySvc)
	registerCatalogAPI(g, s.auth, deps.CatalogSvc, deps.Validate, deps.Translator)
}

// Start listens on the configured address. Listener errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

// Shutdown stops the server gracefully, waiting for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
