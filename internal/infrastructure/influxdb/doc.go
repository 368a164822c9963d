// Package influxdb writes grow-room telemetry to InfluxDB v2.
//
// Two measurements are written:
//
//	environment   fields: temperature, humidity, soil_moisture, co2
//	              (only the metrics a reading actually carries)
//	device_state  tags: device, caused_by   fields: on (0|1)
//
// Writes go through the non-blocking batched write API; failures surface
// asynchronously through the SetOnError callback. SQLite stays the source
// of truth for history queries; InfluxDB is an optional sink for long-term
// dashboards and is disabled by default.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.WriteEnvironment(map[string]float64{"temperature": 24.1}, time.Now())
package influxdb
