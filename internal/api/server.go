// Package api exposes the gateway over HTTP: signal ingestion, kill switch
// administration, audit read-back, and health probes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/halligan/tradegate/internal/audit"
	"github.com/halligan/tradegate/internal/killswitch"
	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/pipeline"
)

// Config holds the server settings.
type Config struct {
	Port int
}

// Server is the HTTP front of the gateway.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	pipeline  *pipeline.Pipeline
	kill      *killswitch.Switch
	decisions *audit.DecisionLog
	trades    *audit.TradeLog
	logger    *logrus.Logger
	port      int
}

// NewServer wires the routes.
func NewServer(
	cfg Config,
	p *pipeline.Pipeline,
	kill *killswitch.Switch,
	decisions *audit.DecisionLog,
	trades *audit.TradeLog,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		pipeline:  p,
		kill:      kill,
		decisions: decisions,
		trades:    trades,
		logger:    logger,
		port:      cfg.Port,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/signals", s.handleIngestSignal)

		r.Get("/kill-switch", s.handleKillSwitchStatus)
		r.Post("/kill-switch/activate", s.handleKillSwitchActivate)
		r.Post("/kill-switch/deactivate", s.handleKillSwitchDeactivate)

		r.Get("/decisions", s.handleRecentDecisions)
		r.Get("/trades", s.handleRecentTrades)
	})

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/health/live", s.handleHealth)
	s.router.Get("/health/ready", s.handleReady)
}

// Router returns the HTTP handler, which tests drive directly.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown or failure.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting gateway server on port %d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleIngestSignal(w http.ResponseWriter, r *http.Request) {
	var sig models.TradingSignal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := sig.Validate(); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := s.pipeline.ProcessSignal(r.Context(), &sig)
	if err != nil {
		s.logger.WithError(err).Error("Signal processing failed")
		s.writeError(w, http.StatusInternalServerError, "Signal processing failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type killSwitchRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleKillSwitchStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.kill.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "kill switch state unavailable: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleKillSwitchActivate(w http.ResponseWriter, r *http.Request) {
	var req killSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Reason == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "reason is required")
		return
	}

	if err := s.kill.Activate(r.Context(), req.Reason); err != nil {
		s.writeError(w, http.StatusInternalServerError, "activation failed: "+err.Error())
		return
	}
	s.logger.WithField("reason", req.Reason).Warn("Kill switch activated")

	state, err := s.kill.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "kill switch state unavailable: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleKillSwitchDeactivate(w http.ResponseWriter, r *http.Request) {
	var req killSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Reason == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "reason is required")
		return
	}

	if err := s.kill.Deactivate(r.Context(), req.Reason); err != nil {
		s.writeError(w, http.StatusInternalServerError, "deactivation failed: "+err.Error())
		return
	}
	s.logger.WithField("reason", req.Reason).Info("Kill switch deactivated")

	state, err := s.kill.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "kill switch state unavailable: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func recentParams(r *http.Request) (string, int) {
	strategyID := r.URL.Query().Get("strategy_id")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return strategyID, limit
}

func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	strategyID, limit := recentParams(r)
	s.writeJSON(w, http.StatusOK, s.decisions.Recent(strategyID, limit))
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	strategyID, limit := recentParams(r)
	s.writeJSON(w, http.StatusOK, s.trades.Recent(strategyID, limit))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleReady reports readiness: the kill switch store must be reachable,
// since without it the gateway fails closed and rejects everything.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.kill.Status(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
