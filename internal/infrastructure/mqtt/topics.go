package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "growwiz"

// Topics builds GrowWiz topic names under a common prefix.
//
//	topics := mqtt.NewTopics("growwiz")
//	topics.DeviceCommand("fan") // "growwiz/command/fan"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix, trimming slashes.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// SensorReading is where sensor nodes publish combined readings.
func (t Topics) SensorReading() string {
	return t.Prefix() + "/sensors/reading"
}

// DeviceCommand carries on/off commands to the relay controller.
func (t Topics) DeviceCommand(deviceID string) string {
	return t.Prefix() + "/command/" + deviceID
}

// DeviceState carries the retained logical state of a device.
func (t Topics) DeviceState(deviceID string) string {
	return t.Prefix() + "/device/" + deviceID + "/state"
}

// AllDeviceStates matches every device state topic.
func (t Topics) AllDeviceStates() string {
	return t.Prefix() + "/device/+/state"
}

// Event carries controller events such as emergency stops.
func (t Topics) Event(eventType string) string {
	return t.Prefix() + "/event/" + eventType
}

// SystemStatus carries the retained online/offline status and the LWT.
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}
