package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/growwiz/growwiz-core/internal/audit"
)

// handleActivity returns recent activity entries, newest first.
//
// Query parameters:
//   - limit: maximum entries (default 50, capped at 500)
//   - since: RFC 3339 timestamp; only entries at or after it
//   - type: sensor, automation, diagnosis, system or error
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{Type: audit.Type(r.URL.Query().Get("type"))}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		q.Since = since
	}

	entries, err := s.activity.Query(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list activity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}
