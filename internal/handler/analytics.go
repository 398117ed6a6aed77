package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"atelier/internal/analytics"
)

type analyticsEventRequest struct {
	EventType string `json:"eventType"`
	Data      struct {
		Brand string `json:"brand,omitempty"`
	} `json:"data"`
}

func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap, err := h.counters.Snapshot(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "analytics_failed", "could not load counters", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodPost:
		var body analyticsEventRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "could not parse request", err.Error())
			return
		}
		err := h.counters.Record(r.Context(), analytics.Event{Type: body.EventType, Brand: body.Data.Brand})
		if err != nil {
			if errors.Is(err, analytics.ErrEventRequired) {
				writeError(w, http.StatusBadRequest, "invalid_request", "eventType is required", "")
				return
			}
			writeError(w, http.StatusInternalServerError, "analytics_failed", "could not record event", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
	default:
		methodNotAllowed(w)
	}
}
