package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/growwiz/growwiz-core/internal/automation"
	"github.com/growwiz/growwiz-core/internal/device"
)

// actionToggle flips the device's current state.
const actionToggle = "toggle"

// handleDeviceStates returns {device: on} for every device.
func (s *Server) handleDeviceStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

// handleDeviceDetails returns full device records in canonical order.
func (s *Server) handleDeviceDetails(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

type controlRequest struct {
	Device string `json:"device"`
	Action string `json:"action"`
}

// handleDeviceControl switches a device manually.
//
// Body: {"device": "fan", "action": "on" | "off" | "toggle"}
func (s *Server) handleDeviceControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id, err := device.ParseID(req.Device)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to control device")
		return
	}

	var on bool
	if req.Action == actionToggle {
		current, getErr := s.registry.GetState(id)
		if getErr != nil {
			s.writeDomainError(w, r, getErr, "failed to control device")
			return
		}
		on = !current
	} else {
		on, err = device.ParseState(req.Action)
		if err != nil {
			writeBadRequest(w, fmt.Sprintf("action must be on, off or toggle, got %q", req.Action))
			return
		}
	}

	prev, err := s.controller.ManualToggle(r.Context(), id, on)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to control device")
		return
	}

	s.logger.Info("manual device control",
		"device", id,
		"state", device.StateString(on),
		"operator", operator(r),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"device":   id,
		"state":    device.StateString(on),
		"previous": device.StateString(prev),
	})
}

// handleEmergencyStop switches every device off and suspends automation.
// It always answers 200; device errors are logged by the controller.
func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	turnedOff, err := s.controller.EmergencyStop(r.Context())
	if err != nil {
		s.logger.Error("emergency stop reported device errors", "error", err)
	}
	if turnedOff == nil {
		turnedOff = []device.ID{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "emergency_stop_activated",
		"devices_turned_off": turnedOff,
	})
}

// handleResume leaves the emergency stop.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	resumed := s.controller.Resume(r.Context())
	status := "resumed"
	if !resumed {
		status = "not_stopped"
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "resumed": resumed})
}

// handleRunCycle runs one automation cycle immediately.
func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	if s.controller.Stopped() {
		s.writeDomainError(w, r, automation.ErrEmergencyStopActive, "")
		return
	}

	applied, err := s.controller.RunCycle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "automation cycle failed")
		return
	}
	if applied == nil {
		applied = []automation.Transition{}
	}

	status := s.controller.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"transitions": applied,
		"count":       len(applied),
		"last_error":  status.LastError,
	})
}
