// Package server provides the HTTP server for nodwatch.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/nodwatch/internal/broadcast"
	"github.com/ayusman/nodwatch/internal/plugin"
	"github.com/ayusman/nodwatch/internal/sensor"
	"github.com/ayusman/nodwatch/internal/server/api"
	"github.com/ayusman/nodwatch/internal/store"
)

// Config holds the server configuration. Routes whose dependency is nil are not registered.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller api.Controller
	Replayer   api.Replayer
	Plugins    *plugin.Manager
	Hub        *Hub
	Sensor     *sensor.Push
	Bus        *broadcast.Bus
	Metrics    http.Handler
}

// Server represents the HTTP server for the nodwatch application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Controller != nil {
		engineHandler := api.NewEngineHandler(s.config.Controller)
		s.mux.HandleFunc("/api/status", engineHandler.Status)
		s.mux.Handle("/api/engine/", engineHandler)
	}

	if s.config.Store != nil {
		eventHandler := api.NewEventHandler(s.config.Store)
		s.mux.Handle("/api/events", eventHandler)
		s.mux.Handle("/api/events/", eventHandler)

		recordingHandler := api.NewRecordingHandler(s.config.Store, s.config.Replayer)
		s.mux.Handle("/api/recordings", recordingHandler)
		s.mux.Handle("/api/recordings/", recordingHandler)

		actionHandler := api.NewActionHandler(s.config.Store, s.config.Plugins)
		s.mux.Handle("/api/actions", actionHandler)
		s.mux.Handle("/api/actions/", actionHandler)
	}

	// More specific than /api/events/, so it wins over the event handler.
	if s.config.Hub != nil {
		s.mux.Handle("/api/events/ws", s.config.Hub)
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.Plugins))
	}

	if s.config.Sensor != nil {
		s.mux.Handle("/api/sensor", NewSensorHandler(s.config.Sensor))
	}

	if s.config.Bus != nil {
		s.mux.Handle("/api/broadcasts", api.NewBroadcastHandler(s.config.Bus))
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
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
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
