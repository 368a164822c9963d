package reading

import (
	"context"
	"errors"
	"time"
)

// Metric names a sensor quantity.
type Metric string

// Supported metrics.
const (
	Temperature  Metric = "temperature"
	Humidity     Metric = "humidity"
	SoilMoisture Metric = "soil_moisture"
	CO2          Metric = "co2"
)

// AllMetrics returns every metric in display order.
func AllMetrics() []Metric {
	return []Metric{Temperature, Humidity, SoilMoisture, CO2}
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case Temperature, Humidity, SoilMoisture, CO2:
		return true
	}
	return false
}

// Unit returns the display unit for m.
func (m Metric) Unit() string {
	switch m {
	case Temperature:
		return "°C"
	case Humidity, SoilMoisture:
		return "%"
	case CO2:
		return "ppm"
	}
	return ""
}

// Reading is one immutable sensor snapshot. Timestamp is unix seconds.
type Reading struct {
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	SoilMoisture *float64 `json:"soil_moisture"`
	CO2          *float64 `json:"co2"`
	Timestamp    int64    `json:"timestamp"`
}

// Value returns the value of m and whether the sensor reported it.
func (r Reading) Value(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case Temperature:
		p = r.Temperature
	case Humidity:
		p = r.Humidity
	case SoilMoisture:
		p = r.SoilMoisture
	case CO2:
		p = r.CO2
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Values returns the available metrics keyed by name.
func (r Reading) Values() map[string]float64 {
	out := make(map[string]float64, 4)
	for _, m := range AllMetrics() {
		if v, ok := r.Value(m); ok {
			out[string(m)] = v
		}
	}
	return out
}

// Empty reports whether no metric is available.
func (r Reading) Empty() bool {
	return r.Temperature == nil && r.Humidity == nil && r.SoilMoisture == nil && r.CO2 == nil
}

// Time returns Timestamp as a time.Time.
func (r Reading) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// Float returns a pointer to v, for building readings.
func Float(v float64) *float64 {
	return &v
}

// Provider supplies the latest reading.
type Provider interface {
	Latest(ctx context.Context) (Reading, error)
}

// ErrReadingUnavailable means no usable reading could be fetched.
var ErrReadingUnavailable = errors.New("reading: unavailable")
