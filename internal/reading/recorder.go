package reading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/growwiz/growwiz-core/internal/audit"
)

const defaultSampleTimeout = 5 * time.Second

// EventReadingUpdated is the WebSocket channel for new samples.
const EventReadingUpdated = "reading.updated"

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// History is where samples are stored.
type History interface {
	Record(ctx context.Context, r Reading) error
}

// Telemetry mirrors samples to a time-series store.
type Telemetry interface {
	WriteEnvironment(values map[string]float64, at time.Time)
}

// ActivityLog receives sensor availability entries.
type ActivityLog interface {
	Append(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// Broadcaster pushes events to WebSocket clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Recorder samples a Provider and fans each reading out to history,
// telemetry and WebSocket clients.
type Recorder struct {
	provider  Provider
	history   History
	activity  ActivityLog
	telemetry Telemetry
	hub       Broadcaster
	logger    Logger
	timeout   time.Duration

	mu sync.Mutex
	// reachable is nil until the first sample.
	reachable *bool
	// metricUp tracks per-metric availability seen in the last sample.
	metricUp map[Metric]bool
}

// NewRecorder creates a recorder. activity may be nil.
func NewRecorder(provider Provider, history History, activity ActivityLog, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		provider: provider,
		history:  history,
		activity: activity,
		logger:   logger,
		timeout:  defaultSampleTimeout,
		metricUp: make(map[Metric]bool),
	}
}

// SetTelemetry sets the time-series sink.
func (r *Recorder) SetTelemetry(t Telemetry) {
	r.telemetry = t
}

// SetBroadcaster sets the WebSocket hub.
func (r *Recorder) SetBroadcaster(hub Broadcaster) {
	r.hub = hub
}

// SetTimeout bounds each provider fetch.
func (r *Recorder) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// Sample fetches one reading and records it. Storage failures are logged
// and returned; the reading is still broadcast.
func (r *Recorder) Sample(ctx context.Context) (Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	rd, err := r.provider.Latest(fetchCtx)
	cancel()
	if err != nil {
		if !errors.Is(err, ErrReadingUnavailable) {
			err = fmt.Errorf("%w: %w", ErrReadingUnavailable, err)
		}
		r.markReachable(ctx, false, err)
		return Reading{}, err
	}
	r.markReachable(ctx, true, nil)
	r.trackMetrics(ctx, rd)

	if r.telemetry != nil {
		r.telemetry.WriteEnvironment(rd.Values(), rd.Time())
	}
	if r.hub != nil {
		r.hub.Broadcast(EventReadingUpdated, rd)
	}

	if err := r.history.Record(ctx, rd); err != nil {
		r.logger.Error("storing reading failed", "error", err)
		return rd, err
	}
	r.logger.Debug("reading sampled", "timestamp", rd.Timestamp)
	return rd, nil
}

func (r *Recorder) markReachable(ctx context.Context, up bool, cause error) {
	prev := r.reachable
	r.reachable = &up

	switch {
	case !up && (prev == nil || *prev):
		r.logger.Warn("sensor readings unavailable", "error", cause)
		r.record(ctx, "Sensor readings unavailable: "+cause.Error())
	case up && prev != nil && !*prev:
		r.logger.Info("sensor readings restored")
		r.record(ctx, "Sensor readings restored")
	}
}

func (r *Recorder) trackMetrics(ctx context.Context, rd Reading) {
	for _, m := range AllMetrics() {
		_, up := rd.Value(m)
		was, seen := r.metricUp[m]
		r.metricUp[m] = up
		if seen && was == up {
			continue
		}
		switch {
		case !up:
			r.logger.Warn("sensor metric unavailable", "metric", m)
			r.record(ctx, fmt.Sprintf("%s sensor unavailable", m))
		case seen:
			r.logger.Info("sensor metric restored", "metric", m)
			r.record(ctx, fmt.Sprintf("%s sensor restored", m))
		}
	}
}

func (r *Recorder) record(ctx context.Context, message string) {
	if r.activity == nil {
		return
	}
	if _, err := r.activity.Append(ctx, audit.Entry{Type: audit.TypeSensor, Message: message}); err != nil {
		r.logger.Error("recording sensor activity failed", "error", err)
	}
}
