package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donnieprakoso/kiro-voice/internal/config"
	"github.com/donnieprakoso/kiro-voice/internal/dispatch"
)

// HTTPServer exposes health, status, and metrics endpoints.
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	loop      *dispatch.Loop
	device    string
	target    string
	backend   string
	startTime time.Time
}

// StatusResponse is the /status JSON payload consumed by status front ends.
type StatusResponse struct {
	State         string  `json:"state"`
	Buffer        string  `json:"buffer"`
	Device        string  `json:"device"`
	Target        string  `json:"target"`
	Backend       string  `json:"backend"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewHTTPServer creates the status server. device, target, and backend are
// static session facts resolved at startup.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, loop *dispatch.Loop,
	device, target, backend string) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		loop:      loop,
		device:    device,
		target:    target,
		backend:   backend,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return h
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := StatusResponse{
		State:         h.loop.State().String(),
		Buffer:        h.loop.Buffer().String(),
		Device:        h.device,
		Target:        h.target,
		Backend:       h.backend,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error("Failed to encode status response", slog.String("error", err.Error()))
	}
}

// Start begins serving in the background.
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP status server", slog.String("address", h.server.Addr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop gracefully stops the server.
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP status server...")
	return h.server.Shutdown(ctx)
}
