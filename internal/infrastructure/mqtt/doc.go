// Package mqtt connects GrowWiz to the grow room's MQTT broker.
//
// Sensor nodes publish readings and relay controllers subscribe to device
// commands:
//
//	sensor nodes ──▶ growwiz/sensors/reading ──▶ GrowWiz
//	GrowWiz ──▶ growwiz/command/{device}      ──▶ relay controller
//	GrowWiz ──▶ growwiz/device/{device}/state (retained)
//	GrowWiz ──▶ growwiz/system/status         (retained, LWT)
//
// The client reconnects with backoff and restores its subscriptions after
// every reconnect. Handlers run on paho's goroutines and are wrapped with
// panic recovery.
//
// Use TLS and broker credentials outside a lab setup; payloads are plain
// JSON.
package mqtt
