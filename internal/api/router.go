package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/growwiz/growwiz-core/internal/automation"
)

// healthCheckTimeout bounds each dependency check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// The safety stop is never behind auth.
		r.Post("/emergency-stop", s.handleEmergencyStop)

		r.With(s.rateLimitMiddleware).Post("/auth/login", s.handleLogin)

		r.Get("/devices", s.handleDeviceStates)
		r.Get("/devices/details", s.handleDeviceDetails)
		r.Get("/activity", s.handleActivity)
		r.Get("/readings/latest", s.handleLatestReading)
		r.Get("/readings/history", s.handleReadingHistory)
		r.Get("/rules", s.handleListRules)
		r.Get("/rules/{id}", s.handleGetRule)
		r.Get("/ws", s.handleWebSocket)

		// Mutating routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.rateLimitMiddleware).Post("/devices/control", s.handleDeviceControl)
			r.Post("/resume", s.handleResume)
			r.Post("/automation/run", s.handleRunCycle)

			r.Post("/rules", s.handleCreateRule)
			r.Route("/rules/{id}", func(r chi.Router) {
				r.Put("/", s.handleUpdateRule)
				r.Delete("/", s.handleDeleteRule)
				r.Post("/enable", s.handleEnableRule)
				r.Post("/disable", s.handleDisableRule)
			})
		})
	})

	return r
}

// handleHealth reports liveness plus the state of each infrastructure
// dependency. The endpoint answers 200 while the process is up; a failing
// dependency only marks the status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := make(map[string]string, len(s.healthChecks))
	for name, hc := range s.healthChecks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := hc.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}

type statusResponse struct {
	automation.Status
	SimulationMode   bool   `json:"simulation_mode"`
	Site             string `json:"site,omitempty"`
	Version          string `json:"version"`
	WebSocketClients int    `json:"websocket_clients"`
}

// handleStatus returns the controller status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:           s.controller.Status(),
		SimulationMode:   s.simulationMode,
		Site:             s.site,
		Version:          s.version,
		WebSocketClients: s.hub.ClientCount(),
	})
}
