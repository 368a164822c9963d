package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
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

// ChangeFunc is called after a device changed state.
type ChangeFunc func(d Device)

// Registry owns the logical state of every device.
//
// All devices start off. RefreshCache loads persisted state at start-up.
// Every real change goes actuator first, then storage, then listeners;
// listeners run after the lock is released.
type Registry struct {
	repo      Repository
	actuator  Actuator
	devices   map[ID]*Device
	mu        sync.RWMutex
	listeners []ChangeFunc
	logger    Logger
	now       func() time.Time
}

// NewRegistry creates a registry with every device off and a no-op actuator.
func NewRegistry(repo Repository) *Registry {
	devices := make(map[ID]*Device, len(allIDs))
	for _, id := range allIDs {
		devices[id] = &Device{ID: id}
	}
	return &Registry{
		repo:     repo,
		actuator: noopActuator{},
		devices:  devices,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetActuator sets where physical changes are sent.
func (r *Registry) SetActuator(a Actuator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actuator = a
}

// OnChange registers a listener for state changes. Not safe to call
// concurrently with state writes; register during start-up.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.listeners = append(r.listeners, fn)
}

// RefreshCache reloads persisted device state. Devices missing from
// storage keep their current in-memory state.
func (r *Registry) RefreshCache(ctx context.Context) error {
	stored, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range stored {
		r.devices[d.ID] = d.clone()
	}

	r.logger.Info("device state loaded", "count", len(stored))
	return nil
}

// Get returns a copy of one device.
func (r *Registry) Get(id ID) (Device, error) {
	if !id.Valid() {
		return Device{}, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.devices[id].clone(), nil
}

// GetState returns whether a device is on.
func (r *Registry) GetState(id ID) (bool, error) {
	d, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return d.On, nil
}

// List returns copies of every device in canonical order.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(allIDs))
	for _, id := range allIDs {
		out = append(out, *r.devices[id].clone())
	}
	return out
}

// Snapshot returns the logical state of every device.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(Snapshot, len(allIDs))
	for _, id := range allIDs {
		snap[id] = r.devices[id].On
	}
	return snap
}

// SetState switches a device and returns its previous state.
//
// Setting the current state is a no-op: no actuation, no write, no
// listener call. If the actuator fails the state is left unchanged. If
// storage fails after a successful actuation the in-memory state still
// follows the hardware and the storage error is returned.
func (r *Registry) SetState(ctx context.Context, id ID, on bool, cause string) (bool, error) {
	if !id.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}

	r.mu.Lock()
	d := r.devices[id]
	prev := d.On
	if prev == on {
		r.mu.Unlock()
		r.logger.Debug("device already in requested state", "device", id, "state", StateString(on), "caused_by", cause)
		return prev, nil
	}

	if err := r.actuator.Actuate(ctx, id, on, cause); err != nil {
		r.mu.Unlock()
		return prev, fmt.Errorf("%w: %s: %w", ErrActuationFailed, id, err)
	}

	r.apply(d, on, cause)
	updated := *d.clone()
	saveErr := r.repo.Save(ctx, updated)
	r.mu.Unlock()

	r.logger.Info("device state changed", "device", id, "state", StateString(on), "caused_by", cause)
	r.notify(updated)

	if saveErr != nil {
		r.logger.Error("persisting device state failed", "device", id, "error", saveErr)
		return prev, saveErr
	}
	return prev, nil
}

// AllOff switches every device off in one critical section and returns
// the devices that were on.
//
// Logical state is forced off even when the actuator fails for a device,
// so a snapshot taken afterwards always reports everything off. Actuation
// and storage failures are joined into the returned error.
func (r *Registry) AllOff(ctx context.Context, cause string) ([]ID, error) {
	var (
		turnedOff []ID
		changed   []Device
		errs      []error
	)

	r.mu.Lock()
	for _, id := range allIDs {
		d := r.devices[id]
		if !d.On {
			continue
		}
		if err := r.actuator.Actuate(ctx, id, false, cause); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrActuationFailed, id, err))
		}
		r.apply(d, false, cause)
		turnedOff = append(turnedOff, id)
		changed = append(changed, *d.clone())
	}
	if err := r.repo.SaveAll(ctx, changed); err != nil {
		errs = append(errs, err)
	}
	r.mu.Unlock()

	for _, d := range changed {
		r.notify(d)
	}

	r.logger.Warn("all devices switched off", "caused_by", cause, "turned_off", turnedOff)
	return turnedOff, errors.Join(errs...)
}

func (r *Registry) apply(d *Device, on bool, cause string) {
	now := r.now().UTC()
	d.On = on
	d.LastChanged = &now
	d.LastChangedBy = cause
}

func (r *Registry) notify(d Device) {
	for _, fn := range r.listeners {
		fn(d)
	}
}

func (d *Device) clone() *Device {
	c := *d
	if d.LastChanged != nil {
		t := *d.LastChanged
		c.LastChanged = &t
	}
	return &c
}
