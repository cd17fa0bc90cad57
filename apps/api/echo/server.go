package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/conflict"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/message"
	"github.com/nexussync/clubs/core/notification"
	"github.com/nexussync/clubs/core/post"
	"github.com/nexussync/clubs/core/quiz"
	"github.com/nexussync/clubs/core/user"
	"github.com/nexussync/clubs/core/venue"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Hub        *broadcast.Hub

		UserSvc         *user.Service
		ClubSvc         *club.Service
		VenueSvc        *venue.Service
		EventSvc        *event.Service
		PostSvc         *post.Service
		NotificationSvc *notification.Service
		BudgetSvc       *budget.Service
		ConflictSvc     *conflict.Service
		QuizSvc         *quiz.Service
		MessageSvc      *message.Service

		// Registry receives the API metrics. A fresh registry is used when nil.
		Registry *prometheus.Registry
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *Auth
		metrics  *metrics
		errors   chan error
		shutdown chan struct{}
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Hub == nil {
		deps.Hub = broadcast.NewHub(broadcast.DefaultBuffer)
	}
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     NewAuth(deps.Conf),
		metrics:  newMetrics(deps.Registry),
		errors:   make(chan error, 1),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(s.metrics.middleware())
	s.app.Use(tracingMiddleware())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))

	v1 := s.app.Group("/v1")
	jwt := s.auth.Middleware()
	pub := publisher{hub: s.deps.Hub, logger: s.deps.Logger}
	base := baseApi{validate: s.deps.Validate, users: s.deps.UserSvc, pub: pub}

	registerUserAPI(v1, jwt, s.auth, base)
	registerClubAPI(v1, jwt, base, s.deps.ClubSvc)
	registerVenueAPI(v1, jwt, base, s.deps.VenueSvc, s.deps.EventSvc)
	registerEventAPI(v1, jwt, base, s.deps.EventSvc, s.deps.ClubSvc)
	registerPostAPI(v1, jwt, base, s.deps.PostSvc, s.deps.ClubSvc)
	registerNotificationAPI(v1, jwt, base, s.deps.NotificationSvc)
	registerBudgetAPI(v1, jwt, base, s.deps.BudgetSvc, s.deps.ClubSvc)
	registerConflictAPI(v1, jwt, base, s.deps.ConflictSvc)
	registerQuizAPI(v1, jwt, base, s.deps.QuizSvc, s.deps.ClubSvc)
	registerMessageAPI(v1, jwt, base, s.deps.MessageSvc, s.deps.ClubSvc)
	registerChangesAPI(v1, s.auth.QueryMiddleware(), s.deps.Hub, s.metrics, s.deps.Logger)
}

// Start serves in the background. Errors are sent on Errors().
func (s *Server) Start() {
	go func() {
		if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
			s.errors <- err
		}
	}()
}

func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal is notified when a request hit an unrecoverable error.
func (s *Server) ShutdownSignal() <-chan struct{} { return s.shutdown }

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

// Shutdown stops accepting connections and waits for the running requests.
// Websocket clients are released by closing the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Hub.Close()
	return errors.Wrap(s.app.Shutdown(ctx), "shutting down")
}

func (s *Server) Close() error {
	s.deps.Hub.Close()
	return s.app.Close()
}

func (s *Server) Auth() *Auth { return s.auth }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to NexusSync API!")
}
