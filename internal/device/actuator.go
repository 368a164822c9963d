package device

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/growwiz/growwiz-core/internal/infrastructure/mqtt"
)

// Actuator turns a logical state change into a physical one.
type Actuator interface {
	Actuate(ctx context.Context, id ID, on bool, cause string) error
}

type noopActuator struct{}

func (noopActuator) Actuate(context.Context, ID, bool, string) error { return nil }

// SimulatedActuator logs changes instead of driving hardware. Used when
// no relay controller is attached.
type SimulatedActuator struct {
	logger Logger
}

// NewSimulatedActuator creates a logging-only actuator.
func NewSimulatedActuator(logger Logger) *SimulatedActuator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SimulatedActuator{logger: logger}
}

// Actuate logs the change.
func (a *SimulatedActuator) Actuate(_ context.Context, id ID, on bool, cause string) error {
	a.logger.Info("simulated actuation",
		"device", id,
		"state", strings.ToUpper(StateString(on)),
		"caused_by", cause,
	)
	return nil
}

// Publisher is the subset of the MQTT client the actuator needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Command is the JSON payload sent to the relay controller.
type Command struct {
	Device    ID     `json:"device"`
	State     string `json:"state"`
	CausedBy  string `json:"caused_by"`
	Timestamp int64  `json:"timestamp"`
}

// MQTTActuator publishes commands to {prefix}/command/{device}.
// Commands are never retained so a reconnecting controller does not
// replay a stale switch.
type MQTTActuator struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	now    func() time.Time
}

// NewMQTTActuator creates an actuator publishing through pub.
func NewMQTTActuator(pub Publisher, topics mqtt.Topics, qos byte) *MQTTActuator {
	return &MQTTActuator{pub: pub, topics: topics, qos: qos, now: time.Now}
}

// Actuate publishes the command and waits for the broker acknowledgement
// (QoS 1+).
func (a *MQTTActuator) Actuate(ctx context.Context, id ID, on bool, cause string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(Command{
		Device:    id,
		State:     StateString(on),
		CausedBy:  cause,
		Timestamp: a.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	return a.pub.Publish(a.topics.DeviceCommand(string(id)), payload, a.qos, false)
}

// StatePublisher mirrors registry changes to retained state topics.
// Register its Publish method with Registry.OnChange.
type StatePublisher struct {
	pub    Publisher
	topics mqtt.Topics
	qos    byte
	logger Logger
}

// NewStatePublisher creates a publisher for retained device state.
func NewStatePublisher(pub Publisher, topics mqtt.Topics, qos byte, logger Logger) *StatePublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StatePublisher{pub: pub, topics: topics, qos: qos, logger: logger}
}

// Publish sends the device record retained. Failures are logged; the
// next change overwrites the retained value anyway.
func (p *StatePublisher) Publish(d Device) {
	payload, err := json.Marshal(d)
	if err != nil {
		p.logger.Error("encoding device state", "device", d.ID, "error", err)
		return
	}
	if err := p.pub.Publish(p.topics.DeviceState(string(d.ID)), payload, p.qos, true); err != nil {
		p.logger.Warn("publishing device state failed", "device", d.ID, "error", err)
	}
}
