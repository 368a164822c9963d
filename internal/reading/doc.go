// Package reading supplies sensor snapshots to the automation controller
// and keeps their history.
//
// A Reading carries four nullable metrics. A nil field means the sensor
// was unavailable; consumers must skip it, never treat it as zero.
//
// Providers:
//   - Simulator: random values inside configured ranges, for running
//     without hardware.
//   - MQTTSource: the latest reading published by a sensor node, held in a
//     TTL cache so stale data reads as unavailable.
//
// Recorder samples a Provider on a schedule, stores the result in SQLite,
// mirrors it to InfluxDB, pushes it to WebSocket clients and records
// sensor availability changes in the activity log.
package reading
