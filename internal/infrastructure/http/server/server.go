// Package server provides the HTTP API over the chat routing pipeline
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	chatapp "github.com/vitalroute/v1/internal/application/chat"
	dietplanapp "github.com/vitalroute/v1/internal/application/dietplan"
	"github.com/vitalroute/v1/internal/infrastructure/config"
	"github.com/vitalroute/v1/internal/infrastructure/monitoring"
	"github.com/vitalroute/v1/internal/infrastructure/retrieval"
)

// Server wires the HTTP routes over the application services
type Server struct {
	config   config.ServerConfig
	chat     *chatapp.ChatService
	ledger   *chatapp.UsageLedger
	cache    *chatapp.SmartQueryCache
	plans    *dietplanapp.PlanService
	snippets *retrieval.SnippetStore
	metrics  *monitoring.Metrics
	validate *validator.Validate
	logger   *zap.Logger
	http     *http.Server
}

// New creates the HTTP server
func New(
	cfg config.ServerConfig,
	chatService *chatapp.ChatService,
	ledger *chatapp.UsageLedger,
	cache *chatapp.SmartQueryCache,
	plans *dietplanapp.PlanService,
	snippets *retrieval.SnippetStore,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Server {
	s := &Server{
		config:   cfg,
		chat:     chatService,
		ledger:   ledger,
		cache:    cache,
		plans:    plans,
		snippets: snippets,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger.Named("http-server"),
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if s.metrics != nil {
		r.Use(s.metricsMiddleware)
	}

	r.Get("/health", s.handleHealth)
	if s.config.EnableMetrics && s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/messages", s.handleSendMessage)
			r.Post("/messages/{messageID}/actions/{actionIndex}", s.handleExecuteAction)
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/{sessionID}", s.handleGetSession)
			r.Get("/sessions/{sessionID}/messages", s.handleHistory)
			r.Post("/sessions/{sessionID}/pause", s.handlePauseSession)
			r.Post("/sessions/{sessionID}/resume", s.handleResumeSession)
			r.Delete("/sessions/{sessionID}", s.handleArchiveSession)
		})

		r.Post("/context", s.handleIndexContext)

		r.Route("/plans", func(r chi.Router) {
			r.Post("/", s.handleCreatePlan)
			r.Get("/", s.handleListPlans)
			r.Get("/active", s.handleActivePlan)
			r.Post("/transition", s.handleTransition)
		})

		r.Get("/usage", s.handleUsage)
	})

	return r
}

// Start begins serving; it blocks until the listener stops
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
