package server

import (
	"net/http"

	"atelier/internal/handler"
	"atelier/internal/server/middleware"
)

func NewMux(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", h.HandleChat)
	mux.HandleFunc("/api/share", h.HandleShare)
	mux.HandleFunc("/api/crm/sync", h.HandleCRMSync)
	mux.HandleFunc("/api/analytics", h.HandleAnalytics)
	mux.HandleFunc("/api/artifacts/", h.HandleArtifact)
	mux.HandleFunc("/api/generation/watch", h.HandleGenerationWatch)
	mux.HandleFunc("/healthz", h.HandleHealth)

	return middleware.CORS(mux)
}
