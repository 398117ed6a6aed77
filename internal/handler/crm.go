package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"atelier/internal/crm"
)

func (h *Handler) HandleCRMSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req crm.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse request", err.Error())
		return
	}
	contact, err := h.contacts.Sync(r.Context(), req)
	if err != nil {
		if errors.Is(err, crm.ErrEmailRequired) {
			writeError(w, http.StatusBadRequest, "invalid_request", "email is required", "")
			return
		}
		h.log.Error().Err(err).Msg("crm sync failed")
		writeError(w, http.StatusInternalServerError, "crm_failed", "could not sync contact", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, contact)
}
