package automation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

func validRule() Rule {
	return tempRule("rule-ok", 18, 28, 1, device.Fan, ActionOff, ActionOn)
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr bool
	}{
		{"valid", func(*Rule) {}, false},
		{"empty name", func(r *Rule) { r.Name = "  " }, true},
		{"long name", func(r *Rule) { r.Name = strings.Repeat("x", maxNameLength+1) }, true},
		{"long description", func(r *Rule) { r.Description = strings.Repeat("x", maxDescriptionLen+1) }, true},
		{"unknown metric", func(r *Rule) { r.Metric = reading.Metric("ph") }, true},
		{"unknown device", func(r *Rule) { r.TargetDevice = device.ID("dehumidifier") }, true},
		{"bad action below", func(r *Rule) { r.ActionBelow = "toggle" }, true},
		{"bad action above", func(r *Rule) { r.ActionAbove = "" }, true},
		{"inverted thresholds", func(r *Rule) { r.LowThreshold, r.HighThreshold = 28, 18 }, true},
		{"equal thresholds", func(r *Rule) { r.HighThreshold = r.LowThreshold }, true},
		{"NaN threshold", func(r *Rule) { r.LowThreshold = math.NaN() }, true},
		{"negative margin", func(r *Rule) { r.HysteresisMargin = -0.5 }, true},
		{"zero margin", func(r *Rule) { r.HysteresisMargin = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			err := ValidateRule(&r)
			if tt.wantErr && !errors.Is(err, ErrInvalidRule) {
				t.Errorf("ValidateRule() error = %v, want ErrInvalidRule", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateRule() error = %v, want nil", err)
			}
		})
	}

	if err := ValidateRule(nil); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("ValidateRule(nil) error = %v, want ErrInvalidRule", err)
	}
}

func TestGenerateRuleID(t *testing.T) {
	id := GenerateRuleID()
	if !strings.HasPrefix(id, "rule-") || len(id) != len("rule-")+8 {
		t.Errorf("GenerateRuleID() = %q, want rule-xxxxxxxx", id)
	}
	if GenerateRuleID() == id {
		t.Error("GenerateRuleID() returned the same id twice")
	}
}
