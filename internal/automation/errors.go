package automation

import "errors"

// Domain errors for the automation package.
//
//	if errors.Is(err, automation.ErrEmergencyStopActive) {
//	    // ask the operator to resume first
//	}
var (
	// ErrInvalidRule is returned for rules with inverted thresholds, unknown
	// metric or device, bad actions or a negative hysteresis margin.
	ErrInvalidRule = errors.New("rule: invalid")

	// ErrRuleNotFound is returned when a rule ID does not exist.
	ErrRuleNotFound = errors.New("rule: not found")

	// ErrEmergencyStopActive is returned for manual control while stopped.
	ErrEmergencyStopActive = errors.New("automation: emergency stop active")
)
