package device

import (
	"fmt"
	"time"
)

// ID identifies one of the fixed actuators.
type ID string

// The controllable devices.
const (
	Fan        ID = "fan"
	Heater     ID = "heater"
	Humidifier ID = "humidifier"
	Pump       ID = "pump"
	Lights     ID = "lights"
	CO2        ID = "co2"
)

// allIDs is the canonical device order used for listings and snapshots.
var allIDs = []ID{Fan, Heater, Humidifier, Pump, Lights, CO2}

// AllIDs returns every device id in canonical order.
func AllIDs() []ID {
	out := make([]ID, len(allIDs))
	copy(out, allIDs)
	return out
}

// ParseID validates s against the fixed device set.
func ParseID(s string) (ID, error) {
	id := ID(s)
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, s)
	}
	return id, nil
}

// Valid reports whether id is one of the fixed devices.
func (id ID) Valid() bool {
	for _, known := range allIDs {
		if id == known {
			return true
		}
	}
	return false
}

// Causes recorded in Device.LastChangedBy besides a rule id.
const (
	CauseManual        = "manual"
	CauseEmergencyStop = "emergency-stop"
	CauseSchedule      = "schedule"
)

// Device is the tracked state of one actuator.
type Device struct {
	ID            ID         `json:"id"`
	On            bool       `json:"on"`
	LastChanged   *time.Time `json:"last_changed,omitempty"`
	LastChangedBy string     `json:"last_changed_by,omitempty"`
}

// StateString renders the state as "on" or "off".
func (d Device) StateString() string {
	return StateString(d.On)
}

// StateString renders a logical state as "on" or "off".
func StateString(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// ParseState accepts "on" or "off".
func ParseState(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
}

// Snapshot maps every device to its logical state.
type Snapshot map[ID]bool
