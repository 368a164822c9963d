package automation

import (
	"context"
	"fmt"

	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// Bands used to derive the "switch back" edge of the default rules.
const (
	heaterBand     = 2.0
	humidifierBand = 5.0
)

// DefaultRules derives the starter rule set from configured thresholds.
//
// The humidity fan rule is seeded disabled. A rule always carries an "off"
// edge, and because it comes after the temperature fan rule it would switch
// the fan off at normal humidity however hot the room is. Operators who
// want humidity venting can enable it once they have reordered or retuned
// the fan rules.
func DefaultRules(th config.ThresholdsConfig) []Rule {
	return []Rule{
		{
			Name:          "Heater below minimum temperature",
			Metric:        reading.Temperature,
			LowThreshold:  th.Temperature.Min,
			HighThreshold: th.Temperature.Min + heaterBand,
			TargetDevice:  device.Heater,
			ActionBelow:   ActionOn,
			ActionAbove:   ActionOff,
			Enabled:       true,
		},
		{
			Name:          "Fan above maximum temperature",
			Metric:        reading.Temperature,
			LowThreshold:  th.Temperature.Max - heaterBand,
			HighThreshold: th.Temperature.Max,
			TargetDevice:  device.Fan,
			ActionBelow:   ActionOff,
			ActionAbove:   ActionOn,
			Enabled:       true,
		},
		{
			Name:          "Humidifier below minimum humidity",
			Metric:        reading.Humidity,
			LowThreshold:  th.Humidity.Min,
			HighThreshold: th.Humidity.Min + humidifierBand,
			TargetDevice:  device.Humidifier,
			ActionBelow:   ActionOn,
			ActionAbove:   ActionOff,
			Enabled:       true,
		},
		{
			Name:          "Fan above maximum humidity",
			Metric:        reading.Humidity,
			LowThreshold:  th.Humidity.Max - humidifierBand,
			HighThreshold: th.Humidity.Max,
			TargetDevice:  device.Fan,
			ActionBelow:   ActionOff,
			ActionAbove:   ActionOn,
			Enabled:       false,
		},
		{
			Name:          "Pump when soil is dry",
			Metric:        reading.SoilMoisture,
			LowThreshold:  th.SoilMoisture.Min,
			HighThreshold: th.SoilMoisture.Max,
			TargetDevice:  device.Pump,
			ActionBelow:   ActionOn,
			ActionAbove:   ActionOff,
			Enabled:       true,
		},
		{
			Name:          "CO2 below minimum",
			Metric:        reading.CO2,
			LowThreshold:  th.CO2.Min,
			HighThreshold: th.CO2.Max,
			TargetDevice:  device.CO2,
			ActionBelow:   ActionOn,
			ActionAbove:   ActionOff,
			Enabled:       true,
		},
	}
}

// SeedDefaults stores DefaultRules when the store is empty and returns how
// many rules were created.
func SeedDefaults(ctx context.Context, store *Store, th config.ThresholdsConfig) (int, error) {
	if total, _ := store.Count(); total > 0 {
		return 0, nil
	}

	created := 0
	for _, rule := range DefaultRules(th) {
		if _, _, err := store.Upsert(ctx, rule); err != nil {
			return created, fmt.Errorf("seeding rule %q: %w", rule.Name, err)
		}
		created++
	}
	return created, nil
}
