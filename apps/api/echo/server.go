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

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/school"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
	appfs "github.com/trezcool/compass/fs"
)

const apiPrefix = "/api/v1"

type (
	// FlashStore keeps the toasts of a browser session until a page renders them.
	FlashStore interface {
		PushToasts(ctx context.Context, sid string, toasts ...core.Toast) error
		PopToasts(ctx context.Context, sid string) ([]core.Toast, error)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		StudentSvc     *student.Service
		SchoolSvc      *school.Service
		ReferenceSvc   *reference.Service
		UserSvc        *user.Service
		Sessions       *auth.Sessions
		Flashes        FlashStore
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		conf:     deps.Conf,
		logger:   deps.Logger,
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
	s.app.HidePort = true
	s.app.Debug = conf.Debug
	s.app.Renderer = newRenderer(appfs.FS, conf)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.Secure())

	// JSON API
	v1 := s.app.Group(apiPrefix)
	jwt := jwtMiddleware(conf)
	registerAccountAPI(v1, jwt, conf, deps.UserSvc, deps.Validate, deps.Logger)
	registerStudentAPI(v1.Group("/students", jwt), deps.StudentSvc)
	registerSchoolAPI(v1.Group("/schools", jwt), deps.SchoolSvc)
	registerReferenceAPI(v1.Group("/reference", jwt), deps.ReferenceSvc)

	// HTML dashboard
	pages := s.app.Group("",
		sessionMiddleware(),
		csrfMiddleware(conf),
		toastMiddleware(deps.Flashes, deps.Logger),
	)
	guard := guardMiddleware(deps.Sessions, deps.UserSvc)
	registerAccountPages(pages, guard, conf, deps.Sessions, deps.UserSvc, deps.Validate, deps.Translator, deps.Logger)
	registerStudentPages(pages.Group("/students", guard), deps.StudentSvc, deps.ReferenceSvc, deps.Translator)
	registerSchoolPages(pages.Group("/schools", guard), deps.SchoolSvc, deps.ReferenceSvc, deps.Translator)
	registerReferencePages(pages.Group("/reference", guard), deps.ReferenceSvc)
	pages.GET("/", home, guard)
	pages.GET("/session/events", sessionEvents(deps.Sessions), guard)
}

// Start listens on the configured address. Listen failures are reported on Errors.
func (s *Server) Start() {
	s.logger.Info("API listening on " + s.conf.Server.Address)
	if err := s.app.Start(s.conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives SIGINT, SIGTERM and the shutdowns requested by handlers.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// Shutdown stops accepting connections and waits for the in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

// Close stops the server without waiting.
func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func home(ctx echo.Context) error {
	return ctx.Redirect(http.StatusSeeOther, "/students")
}
