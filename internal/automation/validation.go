package automation

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLength     = 100
	maxDescriptionLen = 500
	ruleIDPrefix      = "rule-"
)

// ValidateRule checks a rule's invariants.
func ValidateRule(r *Rule) error {
	if r == nil {
		return ErrInvalidRule
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidRule)
	}
	if len(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRule, maxNameLength)
	}
	if len(r.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidRule, maxDescriptionLen)
	}

	if !r.Metric.Valid() {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidRule, r.Metric)
	}
	if !r.TargetDevice.Valid() {
		return fmt.Errorf("%w: unknown target device %q", ErrInvalidRule, r.TargetDevice)
	}
	if !r.ActionBelow.Valid() {
		return fmt.Errorf("%w: action_below must be on or off, got %q", ErrInvalidRule, r.ActionBelow)
	}
	if !r.ActionAbove.Valid() {
		return fmt.Errorf("%w: action_above must be on or off, got %q", ErrInvalidRule, r.ActionAbove)
	}

	if !finite(r.LowThreshold) || !finite(r.HighThreshold) {
		return fmt.Errorf("%w: thresholds must be finite numbers", ErrInvalidRule)
	}
	if r.LowThreshold >= r.HighThreshold {
		return fmt.Errorf("%w: low_threshold %v must be below high_threshold %v",
			ErrInvalidRule, r.LowThreshold, r.HighThreshold)
	}
	if !finite(r.HysteresisMargin) || r.HysteresisMargin < 0 {
		return fmt.Errorf("%w: hysteresis_margin must be >= 0", ErrInvalidRule)
	}
	return nil
}

// GenerateRuleID returns a new "rule-xxxxxxxx" identifier.
func GenerateRuleID() string {
	return ruleIDPrefix + uuid.NewString()[:8]
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
