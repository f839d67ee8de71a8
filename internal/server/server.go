package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bioespinhanews/apiserver/config"
	"github.com/bioespinhanews/apiserver/internal/db"
	"github.com/bioespinhanews/apiserver/internal/handlers"
	"github.com/bioespinhanews/apiserver/internal/notify"
	"github.com/bioespinhanews/apiserver/internal/observability"
	"github.com/bioespinhanews/apiserver/internal/password"
	"github.com/bioespinhanews/apiserver/internal/services"
	"github.com/bioespinhanews/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	logger     *logrus.Logger
	closers    []func() error
}

// New opens the database and mail transport and wires the API.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	notifier, closeNotifier, err := NewNotifier(ctx, cfg, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("mail: %w", err)
	}

	srv := NewWithDeps(cfg, logger, dbConn, notifier)
	srv.closers = append(srv.closers, closeNotifier)
	return srv, nil
}

// requestTimeout bounds a handler. The write deadline leaves room for the
// timeout middleware to answer 504 before the connection is dropped.
const (
	requestTimeout = 10 * time.Second
	writeTimeout   = requestTimeout + 5*time.Second
)

// NewWithDeps wires the API on an open database and notifier. The server
// takes ownership of dbConn.
func NewWithDeps(cfg config.Config, logger *logrus.Logger, dbConn *sql.DB, notifier notify.Notifier) *Server {
	st := store.New(dbConn)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(dbConn, cfg.Database.DBName),
	)
	metrics := observability.NewMetrics(registry)

	hasher := password.NewBcrypt(cfg.BcryptCost)
	userService := services.NewUserService(st.Users, hasher)
	sessionService := services.NewSessionService(st.Sessions, metrics)
	authenticator := services.NewAuthenticator(st.Users, hasher, metrics)
	statusService := services.NewStatusService(st.Status, cfg.Database.DBName)
	activationService := services.NewActivationService(
		st.Activations,
		st.Users,
		activationTx(st),
		notifier,
		services.ActivationConfig{Origin: cfg.Origin, From: cfg.Email.From},
		metrics,
	)

	rs := handlers.NewResponder(logger, cfg.IsProduction())
	mw := handlers.NewMiddleware(rs, sessionService, userService)
	api := &handlers.API{
		Responder:   rs,
		Middleware:  mw,
		Users:       handlers.NewUserHandler(rs, userService, activationService, sessionService),
		Sessions:    handlers.NewSessionHandler(rs, authenticator, sessionService),
		Activations: handlers.NewActivationHandler(rs, activationService),
		Status:      handlers.NewStatusHandler(rs, statusService, db.NewMigrations(dbConn)),
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		observability.RequestLogger(logger),
		middleware.Recoverer,
		metrics.Middleware,
		middleware.Timeout(requestTimeout),
	)
	router.NotFound(rs.NotFound)
	router.MethodNotAllowed(rs.MethodNotAllowed)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", metrics.Handler())
	router.Mount("/api/v1", api.Routes())

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		logger:     logger,
	}
}

func activationTx(st *store.Store) services.ActivationTx {
	return func(ctx context.Context, fn func(services.ActivationRepository, services.FeatureRepository) error) error {
		return st.WithTx(ctx, func(tx *store.Store) error {
			return fn(tx.Activations, tx.Users)
		})
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the mail transport and
// the database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	for _, closeFn := range s.closers {
		if cerr := closeFn(); cerr != nil {
			s.logger.WithError(cerr).Warn("close mail transport")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
