package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/dygy/hum-grep/internal/audio"
	"github.com/dygy/hum-grep/internal/pipeline"
)

// Config holds server configuration
type Config struct {
	Port           int
	MaxUploadSize  int64 // bytes
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// DefaultConfig returns the configuration used by `hum-grep serve`
func DefaultConfig() Config {
	return Config{
		Port:           5000,
		MaxUploadSize:  100 << 20,
		AllowedOrigins: []string{"*"},
		RequestTimeout: 2 * time.Minute,
	}
}

// Server is the HTTP server
type Server struct {
	config       Config
	router       *chi.Mux
	logger       *slog.Logger
	decoder      *audio.Decoder
	orchestrator *pipeline.Orchestrator
}

// New creates a new server. A nil logger writes text logs to stdout.
func New(cfg Config, decoder *audio.Decoder, orchestrator *pipeline.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultConfig().MaxUploadSize
	}

	s := &Server{
		config:       cfg,
		router:       chi.NewRouter(),
		logger:       logger,
		decoder:      decoder,
		orchestrator: orchestrator,
	}

	s.setupRoutes()
	return s
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)

	// API
	r.Post("/extract-melody", s.handleExtractMelody)
	r.Post("/extract-midi", s.handleExtractMIDI)
	r.Post("/process-audio", s.handleProcessAudio)
	r.Post("/strudel", s.handleStrudel)
}

// Run starts the server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.config.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		s.logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	s.logger.Info("server starting",
		slog.Int("port", s.config.Port),
		slog.String("no_melody_policy", s.orchestrator.Config().Policy.String()),
	)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	<-done
	return nil
}
