package echoportal

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	"github.com/trezcool/studentportal/core/session"
	"github.com/trezcool/studentportal/core/student"
	appfs "github.com/trezcool/studentportal/fs"
	pdfsvc "github.com/trezcool/studentportal/services/pdf"
)

type (
	ServerDeps struct {
		dig.In

		Conf       *core.Config
		Logger     core.Logger
		Storage    session.Storage
		AccountSvc *account.Service
		StudentSvc *student.Service
		Exporter   *pdfsvc.Exporter
		Validate   *validator.Validate
		Translator ut.Translator
	}

	// Server is the student portal web server.
	Server struct {
		address  string
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		address:  deps.Conf.Server.Address,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Renderer = newRenderer(conf.AppName)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	// public assets, no client identity needed
	static, _ := fs.Sub(appfs.FS, "static")
	s.app.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	s.app.GET("/healthz", healthz)

	cookies := sessions.NewCookieStore([]byte(conf.SecretKey))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   clientCookieMaxAge,
		HttpOnly: true,
		Secure:   !(conf.Debug || conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	}

	mws := []echo.MiddlewareFunc{clientMiddleware(cookies, session.NewManager(deps.Storage), deps.Logger)}
	if !conf.Server.DisableCSRF {
		mws = append(mws, middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "form:" + csrfField,
			ContextKey:     csrfContextKey,
			CookieName:     "portal_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
		}))
	}

	p := &portal{
		conf:       conf,
		logger:     deps.Logger,
		accountSvc: deps.AccountSvc,
		studentSvc: deps.StudentSvc,
		exporter:   deps.Exporter,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
	registerRoutes(s.app.Group("", mws...), p)
}

// Start blocks until the server stops; failures are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
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
	default: // a shutdown is already pending
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func healthz(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}
