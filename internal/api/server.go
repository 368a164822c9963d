package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/growwiz/growwiz-core/internal/audit"
	"github.com/growwiz/growwiz-core/internal/auth"
	"github.com/growwiz/growwiz-core/internal/automation"
	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
	"github.com/growwiz/growwiz-core/internal/infrastructure/logging"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// WebSocket channels published by the server itself. The controller and
// the reading recorder publish their own.
const (
	EventDeviceChanged    = "device.changed"
	EventActivityAppended = "activity.appended"
)

// HealthChecker is implemented by infrastructure clients reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadingHistory serves /readings/history.
type ReadingHistory interface {
	History(ctx context.Context, since time.Time) ([]reading.Reading, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Registry   *device.Registry
	Controller *automation.Controller
	Rules      *automation.Store
	Activity   *audit.Log
	Readings   reading.Provider
	History    ReadingHistory
	// Auth is required when Security.Auth.Enabled is set.
	Auth *auth.Authenticator
	// Hub is created by New when nil. Pass one in when other components
	// need to broadcast before the server starts.
	Hub            *Hub
	HealthChecks   map[string]HealthChecker
	SimulationMode bool
	Site           string
	Version        string
}

// Server is the HTTP API server for GrowWiz.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	wsCfg          config.WebSocketConfig
	secCfg         config.SecurityConfig
	logger         *logging.Logger
	registry       *device.Registry
	controller     *automation.Controller
	rules          *automation.Store
	activity       *audit.Log
	readings       reading.Provider
	history        ReadingHistory
	auth           *auth.Authenticator
	hub            *Hub
	limiter        *rateLimiter
	healthChecks   map[string]HealthChecker
	simulationMode bool
	site           string
	version        string
	server         *http.Server
	cancel         context.CancelFunc
}

// New creates a new API server with the given dependencies and subscribes
// the WebSocket hub to device changes and new activity entries.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("automation controller is required")
	}
	if deps.Rules == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	if deps.Activity == nil {
		return nil, fmt.Errorf("activity log is required")
	}
	if deps.Security.Auth.Enabled && deps.Auth == nil {
		return nil, fmt.Errorf("authenticator is required when auth is enabled")
	}

	s := &Server{
		cfg:            deps.Config,
		wsCfg:          deps.WS,
		secCfg:         deps.Security,
		logger:         deps.Logger,
		registry:       deps.Registry,
		controller:     deps.Controller,
		rules:          deps.Rules,
		activity:       deps.Activity,
		readings:       deps.Readings,
		history:        deps.History,
		auth:           deps.Auth,
		hub:            deps.Hub,
		limiter:        newRateLimiter(deps.Security.RateLimit),
		healthChecks:   deps.HealthChecks,
		simulationMode: deps.SimulationMode,
		site:           deps.Site,
		version:        deps.Version,
	}
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}

	s.registry.OnChange(func(d device.Device) {
		s.hub.Broadcast(EventDeviceChanged, d)
	})
	s.activity.OnAppend(func(e audit.Entry) {
		s.hub.Broadcast(EventActivityAppended, e)
	})

	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
