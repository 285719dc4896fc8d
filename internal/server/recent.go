package server

import (
	"net/http"
	"strconv"

	"file-drop/internal/audit"
)

type recentUploadsResp struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}

// handleRecentUploads handles GET /uploads/recent?limit=N. It is only
// available when the audit trail is configured.
func (s *Server) handleRecentUploads(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, "audit trail is not enabled")
		return
	}

	limit := audit.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = audit.ClampLimit(n)
	}

	events, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("recent uploads query failed", map[string]any{"rid": RequestIDFromContext(r.Context())}, err)
		writeError(w, http.StatusInternalServerError, "error reading audit trail")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, recentUploadsResp{Events: events, Total: len(events)})
}
