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
	"github.com/pkg/errors"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/user"
	"github.com/vishusingh1/classroom/services/cloudinary"
	"github.com/vishusingh1/classroom/services/metrics"
)

type Options struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    *user.Service
	ClassSvc   *class.Service
	Provider   *cloudinary.Bootstrap
	Metrics    *metrics.Metrics
}

type Server struct {
	conf     *core.Config
	app      *echo.Echo
	widgets  *widgetRegistry
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(opts Options) (*Server, error) {
	reg, err := newWidgetRegistry(opts.Conf, opts.Validate, opts.Provider, opts.Metrics, opts.Logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		conf:     opts.Conf,
		app:      echo.New(),
		widgets:  reg,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.setup(opts)
	return s, nil
}

func (s *Server) setup(opts Options) {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(opts.Logger, opts.Translator, s.SignalShutdown)
	s.app.Debug = s.conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(s.conf, "header:"+echo.HeaderAuthorization))
	wsJWT := middleware.JWTWithConfig(jwtConfig(s.conf, "query:token"))

	registerWidgetAPI(v1, jwt, wsJWT, &widgetAPI{
		reg:       s.widgets,
		provider:  opts.Provider,
		userSvc:   opts.UserSvc,
		classSvc:  opts.ClassSvc,
		validate:  opts.Validate,
		maxUpload: s.conf.Cloudinary.MaxFileSize,
	})
}

// Start listens until the server is shut down; a listen failure is sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the app to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

// Shutdown unmounts every widget, then stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.widgets.unmountAll()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.widgets.unmountAll()
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
