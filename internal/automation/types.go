package automation

import (
	"time"

	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// Action is the state a rule requests for its device.
type Action string

// Rule actions.
const (
	ActionOn  Action = "on"
	ActionOff Action = "off"
)

// Valid reports whether a is on or off.
func (a Action) Valid() bool {
	return a == ActionOn || a == ActionOff
}

// On reports whether a switches the device on.
func (a Action) On() bool {
	return a == ActionOn
}

// Rule maps a sensor band to device actions.
type Rule struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Metric           reading.Metric `json:"metric"`
	LowThreshold     float64        `json:"low_threshold"`
	HighThreshold    float64        `json:"high_threshold"`
	TargetDevice     device.ID      `json:"target_device"`
	ActionBelow      Action         `json:"action_below"`
	ActionAbove      Action         `json:"action_above"`
	Enabled          bool           `json:"enabled"`
	HysteresisMargin float64        `json:"hysteresis_margin"`
	Position         int            `json:"position"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// decide returns the action the rule requests for a device currently in
// state on at value v, or false when the value sits inside the band.
func (r Rule) decide(on bool, v float64) (Action, bool) {
	switch {
	case !on && v < r.LowThreshold:
		return r.ActionBelow, true
	case on && v < r.LowThreshold+r.HysteresisMargin:
		return r.ActionBelow, true
	case !on && v > r.HighThreshold:
		return r.ActionAbove, true
	case on && v > r.HighThreshold-r.HysteresisMargin:
		return r.ActionAbove, true
	}
	return "", false
}

// Transition is one device change decided by a cycle.
type Transition struct {
	Device device.ID `json:"device"`
	State  bool      `json:"state"`
	RuleID string    `json:"rule_id,omitempty"`
}
