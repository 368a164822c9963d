package automation

import (
	"fmt"

	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// Evaluate computes the device transitions the rules request for r, given
// the current device states. It has no side effects.
//
// Rules are visited in the given order. A rule whose metric is missing
// from the reading is skipped. Each device's final desired state is taken
// from the last rule that matched it, and a Transition is emitted only
// when that state differs from current. Transitions are ordered by the
// first rule that matched each device.
//
// Disabled rules are ignored. Evaluate fails with ErrInvalidRule only when
// a rule breaks its own invariants.
func Evaluate(r reading.Reading, current device.Snapshot, rules []Rule) ([]Transition, error) {
	type decision struct {
		on     bool
		ruleID string
	}

	var (
		order   []device.ID
		desired = make(map[device.ID]decision)
	)

	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		if err := ValidateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}

		value, ok := r.Value(rule.Metric)
		if !ok {
			continue
		}

		action, matched := rule.decide(current[rule.TargetDevice], value)
		if !matched {
			continue
		}

		if _, seen := desired[rule.TargetDevice]; !seen {
			order = append(order, rule.TargetDevice)
		}
		desired[rule.TargetDevice] = decision{on: action.On(), ruleID: rule.ID}
	}

	var transitions []Transition
	for _, id := range order {
		d := desired[id]
		if d.on == current[id] {
			continue
		}
		transitions = append(transitions, Transition{Device: id, State: d.on, RuleID: d.ruleID})
	}
	return transitions, nil
}
