package audit

import (
	"errors"
	"time"
)

// Type classifies an activity entry.
type Type string

// Entry types.
const (
	TypeSensor     Type = "sensor"
	TypeAutomation Type = "automation"
	TypeDiagnosis  Type = "diagnosis"
	TypeSystem     Type = "system"
	TypeError      Type = "error"
)

// Valid reports whether t is a known entry type.
func (t Type) Valid() bool {
	switch t {
	case TypeSensor, TypeAutomation, TypeDiagnosis, TypeSystem, TypeError:
		return true
	}
	return false
}

// Entry is one immutable activity record.
type Entry struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	DeviceID  string    `json:"device_id,omitempty"`
	RuleID    string    `json:"rule_id,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// Query selects recent entries. Zero Since means no lower bound; empty
// Type means all types.
type Query struct {
	Limit int
	Since time.Time
	Type  Type
}

// Page size bounds for Recent.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var (
	// ErrInvalidEntry is returned for entries with an unknown type or no message.
	ErrInvalidEntry = errors.New("audit: invalid entry")

	// ErrDuplicateEntry is returned when an entry ID is already stored.
	ErrDuplicateEntry = errors.New("audit: duplicate entry id")
)
