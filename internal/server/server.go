// Package server provides the HTTP server: the REST API, the live event
// WebSocket, Prometheus metrics and the static web UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/spell"
	"github.com/ayusman/mudra/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   *session.Session
	Corrector *spell.Corrector

	// OnTemplatesChanged runs after templates are edited or retrained.
	OnTemplatesChanged func()

	// CaptureActive, if set, reports whether the camera pipeline is ticking the
	// session. The HTTP observation feed answers 409 while it is.
	CaptureActive func() bool

	// Metrics, if set, records the latency of every request.
	Metrics *observe.Metrics
}

// Server represents the HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	hub     *Hub
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}

	var initial func() any
	if config.Session != nil {
		initial = func() any { return config.Session.Snapshot() }
	}
	s.hub = NewHub(initial)
	if config.Session != nil {
		config.Session.OnTick(func(snap session.Snapshot) {
			s.hub.Publish(EventSnapshot, snap)
		})
	}

	s.setupRoutes()
	s.handler = s.mux
	if config.Metrics != nil {
		s.handler = observe.Middleware(config.Metrics)(s.mux)
	}
	return s
}

// Events returns the hub behind /api/events.
func (s *Server) Events() *Hub {
	return s.hub
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.Handle("/api/events", s.hub)

	if s.config.Store != nil {
		templateHandler := api.NewTemplateHandler(s.config.Store, s.config.OnTemplatesChanged)
		samplesHandler := api.NewSamplesHandler(s.config.Store, s.config.OnTemplatesChanged)

		// Route between templates and samples: /api/templates/{id}/samples
		templateRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			templateHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/templates", templateRouter)
		s.mux.Handle("/api/templates/", templateRouter)
		s.mux.Handle("/api/words", api.NewWordsHandler(s.config.Store))
	}

	if s.config.Session != nil {
		sessionHandler := api.NewSessionHandler(s.config.Session, s.config.Store, s.config.CaptureActive)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)
	}

	corrector := s.config.Corrector
	if corrector == nil {
		corrector = spell.NewCorrector(spell.Default())
	}
	s.mux.Handle("/api/correct", api.NewCorrectHandler(corrector))

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.hub.Clients(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
