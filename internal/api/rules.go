package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/growwiz/growwiz-core/internal/automation"
	"github.com/growwiz/growwiz-core/internal/device"
	"github.com/growwiz/growwiz-core/internal/reading"
)

// ruleRequest is the writable part of a rule. Enabled defaults to true.
type ruleRequest struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Metric           reading.Metric    `json:"metric"`
	LowThreshold     *float64          `json:"low_threshold"`
	HighThreshold    *float64          `json:"high_threshold"`
	TargetDevice     device.ID         `json:"target_device"`
	ActionBelow      automation.Action `json:"action_below"`
	ActionAbove      automation.Action `json:"action_above"`
	Enabled          *bool             `json:"enabled"`
	HysteresisMargin float64           `json:"hysteresis_margin"`
}

func (req ruleRequest) rule() (automation.Rule, error) {
	if req.LowThreshold == nil || req.HighThreshold == nil {
		return automation.Rule{}, errors.New("low_threshold and high_threshold are required")
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return automation.Rule{
		ID:               req.ID,
		Name:             req.Name,
		Description:      req.Description,
		Metric:           req.Metric,
		LowThreshold:     *req.LowThreshold,
		HighThreshold:    *req.HighThreshold,
		TargetDevice:     req.TargetDevice,
		ActionBelow:      req.ActionBelow,
		ActionAbove:      req.ActionAbove,
		Enabled:          enabled,
		HysteresisMargin: req.HysteresisMargin,
	}, nil
}

// handleListRules returns every rule in store order.
func (s *Server) handleListRules(w http.ResponseWriter, _ *http.Request) {
	rules := s.rules.List()
	total, enabled := s.rules.Count()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules":   rules,
		"count":   total,
		"enabled": enabled,
	})
}

// handleGetRule returns a single rule by ID.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleCreateRule stores a new rule. An ID in the body is kept but must
// not already exist.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	rule, err := req.rule()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if rule.ID != "" {
		if _, getErr := s.rules.Get(rule.ID); getErr == nil {
			writeError(w, http.StatusConflict, ErrCodeConflict, "rule already exists")
			return
		}
	}

	stored, _, err := s.rules.Upsert(r.Context(), rule)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to create rule")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// handleUpdateRule replaces an existing rule's definition.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.rules.Get(id); err != nil {
		s.writeDomainError(w, r, err, "failed to update rule")
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	rule, err := req.rule()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	rule.ID = id

	stored, _, err := s.rules.Upsert(r.Context(), rule)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update rule")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// handleDeleteRule removes a rule.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.rules.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err, "failed to delete rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, true)
}

func (s *Server) handleDisableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, false)
}

func (s *Server) setRuleEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	rule, err := s.rules.SetEnabled(r.Context(), chi.URLParam(r, "id"), enabled)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}
