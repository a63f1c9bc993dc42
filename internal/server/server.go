package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/assignment-tracker/apiserver/config"
	"github.com/assignment-tracker/apiserver/internal/handlers"
	"github.com/assignment-tracker/apiserver/internal/mq"
	"github.com/assignment-tracker/apiserver/internal/ratelimit"
	"github.com/assignment-tracker/apiserver/internal/services"
	"github.com/assignment-tracker/apiserver/internal/storage"
	"github.com/assignment-tracker/apiserver/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server, router and the long-lived clients it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
	closers    []func(ctx context.Context) error
}

// New wires every dependency from cfg. A missing JWT secret or invalid
// storage configuration fails startup; an unreachable store does not, and
// store-backed routes answer 500 until the process is restarted.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	tokens, err := handlers.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, errors.New("JWT_SECRET is required")
	}

	s := &Server{log: log}

	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		if errors.Is(err, ErrUnknownStoreDriver) {
			return nil, err
		}
		log.ErrorContext(ctx, "store unavailable, serving errors for store-backed routes", "driver", cfg.Store.Driver, "error", err)
		repos = unavailableRepositories(err)
	} else {
		log.InfoContext(ctx, "store connected", "driver", cfg.Store.Driver)
	}
	s.closers = append(s.closers, repos.Close)

	taskOpts := []services.TaskServiceOption{services.WithLogger(log)}

	objects, err := storage.Open(ctx, cfg)
	if err != nil {
		_ = s.close(ctx)
		return nil, fmt.Errorf("open snapshot storage: %w", err)
	}
	if objects != nil {
		taskOpts = append(taskOpts, services.WithSnapshots(storage.NewSnapshotStore(objects)))
		log.InfoContext(ctx, "task snapshots enabled", "backend", cfg.Storage.Backend, "bucket", objects.Bucket())
	}

	broker, err := mq.Open(ctx, cfg)
	if err != nil {
		log.WarnContext(ctx, "task events disabled", "backend", cfg.MQ.Backend, "error", err)
	} else if broker != nil {
		s.closers = append(s.closers, func(context.Context) error { return broker.Close() })
		taskOpts = append(taskOpts, services.WithEvents(mq.NewTaskEventPublisher(broker, cfg.MQ.TaskEventsChannel)))
		log.InfoContext(ctx, "task events enabled", "backend", cfg.MQ.Backend, "channel", cfg.MQ.TaskEventsChannel)
	}

	var authLimit func(http.Handler) http.Handler
	limiter, redisClient, err := ratelimit.Open(ctx, cfg.RateLimit)
	if err != nil {
		log.WarnContext(ctx, "auth rate limiting disabled", "error", err)
	} else if limiter != nil {
		s.closers = append(s.closers, func(context.Context) error { return redisClient.Close() })
		authLimit = handlers.RateLimit(limiter, log)
	}

	userService := services.NewUserService(repos.Users)
	taskService := services.NewTaskService(repos.Tasks, taskOpts...)

	s.router = NewRouter(cfg, tokens, userService, taskService, authLimit)

	port := cfg.ServerPort
	if port == 0 {
		port = 3000
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// NewRouter builds the HTTP surface. authLimit may be nil.
func NewRouter(
	cfg config.Config,
	tokens *handlers.TokenService,
	userService *services.UserService,
	taskService *services.TaskService,
	authLimit func(http.Handler) http.Handler,
) *chi.Mux {
	authMiddleware := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, tokens, authLimit)
		})
		r.Route("/tasks", func(r chi.Router) {
			handlers.TaskRouter(r, taskService, authMiddleware)
		})
		handlers.SeedRouter(r, taskService, authMiddleware)
	})
	router.Handle("/*", web.Handler(cfg.StaticDir))

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then releases store, broker and
// cache connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close(ctx))
}

func (s *Server) close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
