// Package server exposes the HTTP and WebSocket API consumed by dashboard
// frontends.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/newsguard/internal/config"
	"github.com/aristath/newsguard/internal/events"
	"github.com/aristath/newsguard/internal/modules/alerts"
	"github.com/aristath/newsguard/internal/modules/briefing"
	"github.com/aristath/newsguard/internal/modules/calendar"
	"github.com/aristath/newsguard/internal/modules/market"
	"github.com/aristath/newsguard/internal/modules/preferences"
	"github.com/aristath/newsguard/internal/modules/rules"
	"github.com/aristath/newsguard/internal/modules/syncer"
)

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	Config   *config.Config
	Calendar *calendar.Repository
	Market   *market.Store
	Rules    *rules.Evaluator
	Prefs    *preferences.Service
	Syncer   *syncer.Service
	Briefing *briefing.Service
	Notifier alerts.Notifier
	Events   *events.Manager
	DevMode  bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config

	calendar *calendar.Repository
	market   *market.Store
	rules    *rules.Evaluator
	prefs    *preferences.Service
	syncer   *syncer.Service
	briefing *briefing.Service
	notifier alerts.Notifier
	events   *events.Manager

	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		calendar:  cfg.Calendar,
		market:    cfg.Market,
		rules:     cfg.Rules,
		prefs:     cfg.Prefs,
		syncer:    cfg.Syncer,
		briefing:  cfg.Briefing,
		notifier:  cfg.Notifier,
		events:    cfg.Events,
		startedAt: time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // long-lived websocket streams manage their own deadlines
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/news", func(r chi.Router) {
			r.Get("/", s.handleNews)
			r.Get("/next", s.handleNextEvent)
			r.Get("/{id}/assessment", s.handleEventAssessment)
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/sentiments", s.handleSentiments)
			r.Get("/risk-scores", s.handleRiskScores)
			r.Get("/trade-of-day", s.handleTradeOfDay)
			r.Get("/summary", s.handleRiskSummary)
		})

		r.Get("/restriction", s.handleRestriction)

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", s.handleSync)
			r.Get("/status", s.handleSyncStatus)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", s.handleGetPreferences)
			r.Patch("/", s.handleUpdatePreferences)
			r.Post("/pairs/{pair}", s.handleTogglePair)
			r.Post("/impacts/{impact}", s.handleToggleImpact)
		})

		r.Get("/rules", s.handleRules)
		r.Get("/pairs", s.handlePairs)

		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/", s.handleOnboardingStatus)
			r.Post("/complete", s.handleCompleteOnboarding)
		})

		r.Post("/reset", s.handleReset)

		r.Get("/plan", s.handleDailyPlan)
		r.Get("/briefing/audio", s.handleAudioBriefing)

		r.Get("/stream", s.handleStream)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
