package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/growwiz/growwiz-core/internal/audit"
	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// State is the controller's position in its cycle.
type State string

// Controller states. EmergencyStopped overrides the others until Resume.
const (
	StateIdle             State = "idle"
	StateEvaluating       State = "evaluating"
	StateApplying         State = "applying"
	StateEmergencyStopped State = "emergency_stopped"
)

// WebSocket channels broadcast by the controller.
const (
	EventTransition    = "automation.transition"
	EventEmergencyStop = "system.emergency_stop"
	EventResumed       = "system.resumed"
)

const defaultReadingTimeout = 5 * time.Second

// DeviceRegistry is what the controller needs from the device package.
type DeviceRegistry interface {
	Snapshot() device.Snapshot
	SetState(ctx context.Context, id device.ID, on bool, cause string) (bool, error)
	AllOff(ctx context.Context, cause string) ([]device.ID, error)
}

// RuleSource supplies rules in store order.
type RuleSource interface {
	ListEnabled() []Rule
	Count() (total, enabled int)
}

// ActivityLog records controller decisions.
type ActivityLog interface {
	Append(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Status is a point-in-time view of the controller.
type Status struct {
	State            State           `json:"state"`
	EmergencyStopped bool            `json:"emergency_stopped"`
	LastCycleAt      *time.Time      `json:"last_cycle_at,omitempty"`
	LastError        string          `json:"last_error,omitempty"`
	ActiveRules      int             `json:"active_rules"`
	TotalRules       int             `json:"total_rules"`
	Devices          device.Snapshot `json:"devices"`
}

// Controller runs evaluation cycles and owns manual control and the
// emergency stop.
//
// cycleMu is the single critical section around "snapshot → decide →
// apply". RunCycle, ManualToggle, ScheduledSet and EmergencyStop all take
// it, so an emergency stop waits for an in-flight cycle to finish and then
// switches off whatever that cycle turned on. Reading fetches happen
// before the lock; activity appends after it.
type Controller struct {
	devices        DeviceRegistry
	rules          RuleSource
	readings       reading.Provider
	activity       ActivityLog
	hub            WSHub
	logger         Logger
	readingTimeout time.Duration
	now            func() time.Time

	cycleMu sync.Mutex
	stopped bool

	// beforeStopLock runs in EmergencyStop just before it waits on cycleMu.
	beforeStopLock func()

	statusMu    sync.RWMutex
	state       State
	lastCycleAt time.Time
	lastError   string
}

// NewController creates a controller. hub may be nil.
func NewController(devices DeviceRegistry, rules RuleSource, readings reading.Provider, activity ActivityLog, hub WSHub, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		devices:        devices,
		rules:          rules,
		readings:       readings,
		activity:       activity,
		hub:            hub,
		logger:         logger,
		readingTimeout: defaultReadingTimeout,
		now:            time.Now,
		state:          StateIdle,
	}
}

// SetReadingTimeout bounds the reading fetch of each cycle.
func (c *Controller) SetReadingTimeout(d time.Duration) {
	if d > 0 {
		c.readingTimeout = d
	}
}

// RunCycle evaluates the enabled rules against the latest reading and
// applies the resulting transitions. It returns the transitions that were
// applied.
//
// While emergency-stopped it does nothing. A failed or timed-out reading
// fetch is recorded as an error entry and the cycle ends without touching
// any device; the error is not returned.
func (c *Controller) RunCycle(ctx context.Context) ([]Transition, error) {
	if c.Stopped() {
		return nil, nil
	}

	c.setState(StateEvaluating)
	rd, err := c.fetchReading(ctx)
	if err != nil {
		c.finishCycle(err)
		c.logger.Warn("automation cycle skipped", "error", err)
		c.record(ctx, audit.Entry{
			Type:    audit.TypeError,
			Message: "Automation cycle skipped: " + err.Error(),
		})
		return nil, nil
	}

	c.cycleMu.Lock()
	if c.stopped {
		c.cycleMu.Unlock()
		return nil, nil
	}

	rules := c.rules.ListEnabled()
	transitions, err := Evaluate(rd, c.devices.Snapshot(), rules)
	if err != nil {
		c.cycleMu.Unlock()
		c.finishCycle(err)
		c.logger.Error("rule evaluation failed", "error", err)
		c.record(ctx, audit.Entry{Type: audit.TypeError, Message: "Rule evaluation failed: " + err.Error()})
		return nil, err
	}

	c.setState(StateApplying)
	applied := make([]Transition, 0, len(transitions))
	var failures []error
	for _, t := range transitions {
		_, err := c.devices.SetState(ctx, t.Device, t.State, t.RuleID)
		if err != nil {
			failures = append(failures, err)
			if errors.Is(err, device.ErrActuationFailed) {
				continue
			}
			// Storage failed after the switch happened; the change stands.
		}
		applied = append(applied, t)
	}
	c.cycleMu.Unlock()
	c.finishCycle(errors.Join(failures...))

	byID := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}
	for _, t := range applied {
		c.record(ctx, audit.Entry{
			Type:     audit.TypeAutomation,
			Message:  transitionMessage(t, byID[t.RuleID], rd),
			DeviceID: string(t.Device),
			RuleID:   t.RuleID,
		})
		c.broadcast(EventTransition, t)
	}
	for _, err := range failures {
		c.logger.Error("applying transition failed", "error", err)
		c.record(ctx, audit.Entry{Type: audit.TypeError, Message: "Applying transition failed: " + err.Error()})
	}

	if len(applied) > 0 {
		c.logger.Info("automation cycle applied transitions", "count", len(applied))
	} else {
		c.logger.Debug("automation cycle complete", "transitions", 0)
	}
	return applied, nil
}

// ManualToggle sets a device directly, bypassing rules. It returns the
// previous state. It fails with ErrEmergencyStopActive while stopped.
func (c *Controller) ManualToggle(ctx context.Context, id device.ID, on bool) (bool, error) {
	if !id.Valid() {
		return false, fmt.Errorf("%w: %q", device.ErrUnknownDevice, id)
	}

	c.cycleMu.Lock()
	if c.stopped {
		c.cycleMu.Unlock()
		return false, ErrEmergencyStopActive
	}
	prev, err := c.devices.SetState(ctx, id, on, device.CauseManual)
	c.cycleMu.Unlock()

	if err != nil && errors.Is(err, device.ErrActuationFailed) {
		c.record(ctx, audit.Entry{
			Type:     audit.TypeError,
			Message:  fmt.Sprintf("Manual control of %s failed: %v", id, err),
			DeviceID: string(id),
		})
		return prev, err
	}

	c.recordStorageError(ctx, id, err)

	msg := fmt.Sprintf("Manual control: %s turned %s", id, device.StateString(on))
	if prev == on {
		msg = fmt.Sprintf("Manual control: %s already %s", id, device.StateString(on))
	}
	c.record(ctx, audit.Entry{Type: audit.TypeAutomation, Message: msg, DeviceID: string(id)})
	return prev, nil
}

// ScheduledSet is ManualToggle for the light schedule: the cause is
// "schedule" and it is silently skipped while stopped. It reports whether
// the device changed.
func (c *Controller) ScheduledSet(ctx context.Context, id device.ID, on bool) (bool, error) {
	c.cycleMu.Lock()
	if c.stopped {
		c.cycleMu.Unlock()
		c.logger.Info("scheduled switch skipped during emergency stop", "device", id)
		return false, nil
	}
	prev, err := c.devices.SetState(ctx, id, on, device.CauseSchedule)
	c.cycleMu.Unlock()

	if err != nil && errors.Is(err, device.ErrActuationFailed) {
		c.record(ctx, audit.Entry{
			Type:     audit.TypeError,
			Message:  fmt.Sprintf("Scheduled switch of %s failed: %v", id, err),
			DeviceID: string(id),
		})
		return false, err
	}
	if prev == on {
		return false, nil
	}
	c.recordStorageError(ctx, id, err)

	c.record(ctx, audit.Entry{
		Type:     audit.TypeAutomation,
		Message:  fmt.Sprintf("Schedule: %s turned %s", id, device.StateString(on)),
		DeviceID: string(id),
	})
	return true, nil
}

// EmergencyStop switches every device off and suspends cycles and manual
// control until Resume. It waits for an in-flight cycle, ignores caller
// cancellation and returns the devices that were on. Device errors are
// returned for logging only; the stop itself always takes effect.
func (c *Controller) EmergencyStop(ctx context.Context) ([]device.ID, error) {
	ctx = context.WithoutCancel(ctx)

	if c.beforeStopLock != nil {
		c.beforeStopLock()
	}
	c.cycleMu.Lock()
	turnedOff, err := c.devices.AllOff(ctx, device.CauseEmergencyStop)
	c.stopped = true
	c.forceState(StateEmergencyStopped)
	c.cycleMu.Unlock()

	if err != nil {
		c.logger.Error("emergency stop completed with device errors", "error", err)
	}
	c.logger.Warn("emergency stop activated", "turned_off", turnedOff)

	msg := "Emergency stop: all devices off"
	if len(turnedOff) > 0 {
		names := make([]string, len(turnedOff))
		for i, id := range turnedOff {
			names[i] = string(id)
		}
		msg += " (turned off " + strings.Join(names, ", ") + ")"
	}
	c.record(ctx, audit.Entry{Type: audit.TypeSystem, Message: msg})
	c.broadcast(EventEmergencyStop, map[string]any{"devices_turned_off": turnedOff})

	return turnedOff, err
}

// Resume leaves the emergency stop without touching device states. It
// reports whether the controller was stopped.
func (c *Controller) Resume(ctx context.Context) bool {
	c.cycleMu.Lock()
	if !c.stopped {
		c.cycleMu.Unlock()
		return false
	}
	c.stopped = false
	c.forceState(StateIdle)
	c.cycleMu.Unlock()

	c.logger.Info("automation resumed")
	c.record(ctx, audit.Entry{Type: audit.TypeSystem, Message: "Automation resumed"})
	c.broadcast(EventResumed, map[string]any{"resumed": true})
	return true
}

// Stopped reports whether the emergency stop is active.
func (c *Controller) Stopped() bool {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.state == StateEmergencyStopped
}

// Status returns the controller state, rule counts and device states.
func (c *Controller) Status() Status {
	total, enabled := c.rules.Count()

	c.statusMu.RLock()
	defer c.statusMu.RUnlock()

	st := Status{
		State:            c.state,
		EmergencyStopped: c.state == StateEmergencyStopped,
		LastError:        c.lastError,
		ActiveRules:      enabled,
		TotalRules:       total,
		Devices:          c.devices.Snapshot(),
	}
	if !c.lastCycleAt.IsZero() {
		t := c.lastCycleAt
		st.LastCycleAt = &t
	}
	return st
}

// fetchReading calls the provider in its own goroutine so a provider that
// ignores ctx still cannot hold the cycle past the timeout.
func (c *Controller) fetchReading(ctx context.Context) (reading.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readingTimeout)
	defer cancel()

	type result struct {
		r   reading.Reading
		err error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := c.readings.Latest(ctx)
		ch <- result{r, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			if errors.Is(res.err, reading.ErrReadingUnavailable) {
				return reading.Reading{}, res.err
			}
			return reading.Reading{}, fmt.Errorf("%w: %w", reading.ErrReadingUnavailable, res.err)
		}
		return res.r, nil
	case <-ctx.Done():
		return reading.Reading{}, fmt.Errorf("%w: %w", reading.ErrReadingUnavailable, ctx.Err())
	}
}

// setState never leaves the emergency-stopped state; only Resume does.
func (c *Controller) setState(s State) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if c.state == StateEmergencyStopped {
		return
	}
	c.state = s
}

func (c *Controller) forceState(s State) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.state = s
}

func (c *Controller) finishCycle(err error) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if c.state != StateEmergencyStopped {
		c.state = StateIdle
	}
	c.lastCycleAt = c.now().UTC()
	c.lastError = ""
	if err != nil {
		c.lastError = err.Error()
	}
}

func (c *Controller) record(ctx context.Context, e audit.Entry) {
	if c.activity == nil {
		return
	}
	if _, err := c.activity.Append(ctx, e); err != nil {
		c.logger.Error("appending activity failed", "type", e.Type, "error", err)
	}
}

// recordStorageError logs a switch that happened but could not be
// persisted. err may be nil.
func (c *Controller) recordStorageError(ctx context.Context, id device.ID, err error) {
	if err == nil {
		return
	}
	c.logger.Error("device state not persisted", "device", id, "error", err)
	c.record(ctx, audit.Entry{
		Type:     audit.TypeError,
		Message:  fmt.Sprintf("State of %s not persisted: %v", id, err),
		DeviceID: string(id),
	})
}

func (c *Controller) broadcast(channel string, payload any) {
	if c.hub != nil {
		c.hub.Broadcast(channel, payload)
	}
}

func transitionMessage(t Transition, rule Rule, rd reading.Reading) string {
	name := rule.Name
	if name == "" {
		name = t.RuleID
	}
	msg := fmt.Sprintf("%s turned %s by rule %q", t.Device, device.StateString(t.State), name)
	if v, ok := rd.Value(rule.Metric); ok {
		msg += fmt.Sprintf(" (%s %.1f%s)", rule.Metric, v, rule.Metric.Unit())
	}
	return msg
}
