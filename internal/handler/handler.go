// Package handler exposes the chat widget's HTTP API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"atelier/internal/analytics"
	"atelier/internal/artifact"
	"atelier/internal/crm"
	"atelier/internal/orchestrator"
	"atelier/internal/queue"
	"atelier/internal/share"
)

type Handler struct {
	orch      *orchestrator.Orchestrator
	shares    *share.Store
	contacts  crm.Store
	counters  analytics.Store
	artifacts artifact.Store
	videoQ    *queue.Queue
	log       zerolog.Logger
}

func New(
	orch *orchestrator.Orchestrator,
	shares *share.Store,
	contacts crm.Store,
	counters analytics.Store,
	artifacts artifact.Store,
	videoQ *queue.Queue,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		orch:      orch,
		shares:    shares,
		contacts:  contacts,
		counters:  counters,
		artifacts: artifacts,
		videoQ:    videoQ,
		log:       log.With().Str("component", "handler").Logger(),
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, errorBody{Error: code, Message: message, Details: details})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", "")
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
