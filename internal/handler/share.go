package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"atelier/internal/oracle"
	"atelier/internal/share"
)

type createShareRequest struct {
	ConversationHistory []oracle.Turn `json:"conversationHistory"`
	Title               string        `json:"title"`
}

type createShareResponse struct {
	ShareID   string    `json:"shareId"`
	ShareURL  string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createShare(w, r)
	case http.MethodGet:
		h.getShare(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) createShare(w http.ResponseWriter, r *http.Request) {
	var body createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse request", err.Error())
		return
	}
	sh, url, err := h.shares.Create(r.Context(), body.ConversationHistory, body.Title)
	if err != nil {
		writeError(w, http.StatusBadRequest, "share_failed", "could not create share link", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, createShareResponse{
		ShareID:   sh.ID,
		ShareURL:  url,
		ExpiresAt: sh.ExpiresAt,
	})
}

func (h *Handler) getShare(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("shareId")
	sh, err := h.shares.Get(r.Context(), id)
	switch {
	case errors.Is(err, share.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "share link not found", "")
	case errors.Is(err, share.ErrExpired):
		writeError(w, http.StatusGone, "expired", "share link has expired", "")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "share_failed", "could not load share", err.Error())
	default:
		writeJSON(w, http.StatusOK, sh)
	}
}
