// Package device tracks the logical on/off state of the grow room's six
// fixed actuators: fan, heater, humidifier, pump, lights and co2.
//
// Architecture:
//
//	┌─────────────────────────────────────────────┐
//	│               Registry (registry.go)         │
//	│  in-memory state, one write lock             │
//	│      │                 │                     │
//	│      ▼                 ▼                     │
//	│  ┌──────────┐    ┌────────────┐              │
//	│  │ Actuator │    │ Repository │              │
//	│  │ MQTT/sim │    │  SQLite    │              │
//	│  └──────────┘    └────────────┘              │
//	└─────────────────────────────────────────────┘
//
// The device set is a closed enumeration; there is no create or delete.
// A state write that matches the current state is a no-op: nothing is
// actuated and nothing is persisted.
//
// The Registry is safe for concurrent use, but deciding what to write
// (read snapshot, evaluate, write) is serialised one level up by the
// automation controller.
package device
