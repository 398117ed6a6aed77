package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"atelier/internal/analytics"
	"atelier/internal/oracle"
	"atelier/internal/orchestrator"
)

const maxUploadBytes = 32 << 20

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []oracle.Turn `json:"conversationHistory"`
	ConversationID      string        `json:"conversationId,omitempty"`
	IsRefinement        bool          `json:"isRefinement,omitempty"`
	BaseImageData       string        `json:"baseImageData,omitempty"`
	BaseDescription     string        `json:"baseDescription,omitempty"`
	RefinementCount     int           `json:"refinementCount,omitempty"`
	ReferenceImage      string        `json:"referenceImage,omitempty"`
	Brand               string        `json:"brand,omitempty"`
}

// HandleChat serves the main chat turn. Accepts JSON or multipart bodies;
// OPTIONS is answered by the CORS middleware before reaching here.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	req, inputErr := h.parseChatRequest(r)
	if inputErr != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse request", inputErr)
		return
	}
	if strings.TrimSpace(req.Message) == "" && len(req.ReferenceImage) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "message or reference image is required", "")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	resp, err := h.orch.Handle(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("chat turn failed")
		writeError(w, http.StatusInternalServerError, "generation_failed", "the design consultation could not be completed", err.Error())
		return
	}

	h.recordChatEvents(resp, req.Brand)
	writeJSON(w, http.StatusOK, resp)
}

type parsedChat = orchestrator.Request

func (h *Handler) parseChatRequest(r *http.Request) (parsedChat, string) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		return h.parseMultipartChat(r)
	}

	var body chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&body); err != nil {
		return parsedChat{}, "invalid JSON body: " + err.Error()
	}
	req := parsedChat{
		Message:         body.Message,
		History:         body.ConversationHistory,
		ConversationID:  body.ConversationID,
		IsRefinement:    body.IsRefinement,
		BaseDescription: body.BaseDescription,
		RefinementCount: body.RefinementCount,
		Brand:           body.Brand,
	}
	var errDetail string
	req.BaseImage, req.BaseMIME, errDetail = decodeImageField(body.BaseImageData)
	if errDetail != "" {
		return parsedChat{}, "baseImageData: " + errDetail
	}
	req.ReferenceImage, req.ReferenceMIME, errDetail = decodeImageField(body.ReferenceImage)
	if errDetail != "" {
		return parsedChat{}, "referenceImage: " + errDetail
	}
	return req, ""
}

func (h *Handler) parseMultipartChat(r *http.Request) (parsedChat, string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return parsedChat{}, "invalid multipart form: " + err.Error()
	}
	req := parsedChat{
		Message:         r.FormValue("message"),
		ConversationID:  r.FormValue("conversationId"),
		BaseDescription: r.FormValue("baseDescription"),
		Brand:           r.FormValue("brand"),
	}
	req.IsRefinement, _ = strconv.ParseBool(r.FormValue("isRefinement"))
	req.RefinementCount, _ = strconv.Atoi(r.FormValue("refinementCount"))

	if raw := strings.TrimSpace(r.FormValue("conversationHistory")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.History); err != nil {
			return parsedChat{}, "conversationHistory: " + err.Error()
		}
	}
	var errDetail string
	req.BaseImage, req.BaseMIME, errDetail = decodeImageField(r.FormValue("baseImageData"))
	if errDetail != "" {
		return parsedChat{}, "baseImageData: " + errDetail
	}

	if file, header, err := r.FormFile("referenceImage"); err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if readErr != nil {
			return parsedChat{}, "referenceImage: " + readErr.Error()
		}
		req.ReferenceImage = data
		req.ReferenceMIME = header.Header.Get("Content-Type")
	}
	return req, ""
}

// decodeImageField accepts a raw base64 string or a data URL.
func decodeImageField(raw string) ([]byte, string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", ""
	}
	mime := ""
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 {
			return nil, "", "malformed data URL"
		}
		header := raw[len("data:"):comma]
		mime = strings.TrimSuffix(header, ";base64")
		raw = raw[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", "invalid base64: " + err.Error()
	}
	return data, mime, ""
}

func (h *Handler) recordChatEvents(resp *orchestrator.Response, brand string) {
	if h.counters == nil || resp == nil {
		return
	}
	events := []string{"chat_message"}
	if resp.ImageURL != nil {
		events = append(events, "image_generated")
	}
	if resp.VideoURL != nil {
		events = append(events, "video_generated")
	}
	ctx := context.Background()
	for _, ev := range events {
		if err := h.counters.Record(ctx, analytics.Event{Type: ev, Brand: brand}); err != nil {
			h.log.Warn().Err(err).Str("event", ev).Msg("analytics record failed")
		}
	}
}
