package handler

import (
	"errors"
	"net/http"
	"strings"

	"atelier/internal/artifact"
)

// HandleArtifact serves stored artifacts by key. Backs the public URLs the
// in-memory store issues; with object storage configured, clients normally
// follow presigned URLs instead.
func (h *Handler) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/api/artifacts/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "artifact key is required", "")
		return
	}
	data, contentType, err := h.artifacts.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "artifact not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "storage_failed", "could not load artifact", err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}
