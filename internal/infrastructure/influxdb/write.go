package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEnvironment = "environment"
	MeasurementDeviceState = "device_state"
)

// WriteEnvironment records one sensor reading. values holds only the
// metrics that were available; an empty map writes nothing.
func (c *Client) WriteEnvironment(values map[string]float64, at time.Time) {
	if !c.IsConnected() || len(values) == 0 {
		return
	}

	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	c.writer.WritePoint(write.NewPoint(MeasurementEnvironment, nil, fields, at))
}

// WriteDeviceState records a device switching on or off.
func (c *Client) WriteDeviceState(deviceID string, on bool, causedBy string, at time.Time) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if on {
		value = 1
	}
	point := write.NewPoint(
		MeasurementDeviceState,
		map[string]string{
			"device":    deviceID,
			"caused_by": causedBy,
		},
		map[string]interface{}{
			"on": value,
		},
		at,
	)
	c.writer.WritePoint(point)
}
