package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/growwiz/growwiz-core/internal/reading"
)

// History window bounds for /readings/history, in hours.
const (
	defaultHistoryHours = 24
	maxHistoryHours     = 24 * 30
)

// handleLatestReading returns the provider's current reading.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	if s.readings == nil {
		s.writeDomainError(w, r, reading.ErrReadingUnavailable, "")
		return
	}
	rd, err := s.readings.Latest(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "failed to read sensors")
		return
	}

	units := make(map[reading.Metric]string, len(reading.AllMetrics()))
	for _, m := range reading.AllMetrics() {
		units[m] = m.Unit()
	}
	writeJSON(w, http.StatusOK, map[string]any{"reading": rd, "units": units})
}

// handleReadingHistory returns stored readings, oldest first.
//
// Query parameters:
//   - hours: window size (default 24, max 720)
func (s *Server) handleReadingHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "reading history is not recorded")
		return
	}

	hours := defaultHistoryHours
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryHours {
			writeBadRequest(w, "hours must be between 1 and 720")
			return
		}
		hours = n
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.history.History(r.Context(), since)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to load reading history")
		return
	}
	if readings == nil {
		readings = []reading.Reading{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"readings": readings, "count": len(readings), "hours": hours})
}
