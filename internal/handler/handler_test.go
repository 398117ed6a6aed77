package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/analytics"
	"atelier/internal/artifact"
	"atelier/internal/crm"
	"atelier/internal/genprovider"
	"atelier/internal/oracle"
	"atelier/internal/orchestrator"
	"atelier/internal/queue"
	"atelier/internal/share"
)

type scriptedOracle struct {
	raw string
	err error
}

func (s *scriptedOracle) Consult(context.Context, []oracle.Turn, string) (oracle.Reply, error) {
	if s.err != nil {
		return oracle.Reply{}, s.err
	}
	return oracle.ParseReply(s.raw), nil
}

func (s *scriptedOracle) Analyze(context.Context, []byte, string) string {
	return "a plain gold band"
}

func (s *scriptedOracle) Close() error { return nil }

type stubAdapter struct {
	fail bool
}

func (a *stubAdapter) Name() string { return "stub" }

func (a *stubAdapter) Generate(context.Context, genprovider.Request) (*genprovider.Artifact, error) {
	if a.fail {
		return nil, &genprovider.ProviderError{Provider: "stub", Err: errors.New("down")}
	}
	return &genprovider.Artifact{
		Kind:     oracle.KindImage,
		Data:     []byte("png"),
		MIMEType: "image/png",
		Filename: "out.png",
		Producer: "stub",
	}, nil
}

func newTestHandler(t *testing.T, consultant oracle.Consultant, adapterFails bool) *Handler {
	t.Helper()
	store := artifact.NewMemoryStore("http://localhost:8080")
	chain := genprovider.NewChain(zerolog.Nop(), &stubAdapter{fail: adapterFails})
	q := queue.New(&stubAdapter{}, queue.Config{MinInterval: time.Millisecond, MaxAttempts: 1}, zerolog.Nop())
	orch := orchestrator.New(consultant, chain, q, store, false, zerolog.Nop())
	shares := share.NewStore(store, time.Hour, 16, "http://localhost:8080")
	return New(orch, shares, crm.NewMemoryStore(), analytics.NewMemoryStore(), store, q, zerolog.Nop())
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleChat_HappyPath(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{
		raw: "A classic!\nGENERATE_IMAGE: round diamond engagement ring in white gold",
	}, false)

	rec := postJSON(t, h.HandleChat, "/api/chat", map[string]any{
		"message": "Can you make me a round diamond engagement ring in white gold?",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orchestrator.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.ImageURL)
	assert.NotContains(t, resp.Message, "GENERATE_IMAGE")
	assert.NotEmpty(t, resp.ConversationID)
}

func TestHandleChat_GenerationFailureStill200(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{
		raw: "Here you go.\nGENERATE_IMAGE: gold band",
	}, true)

	rec := postJSON(t, h.HandleChat, "/api/chat", map[string]any{"message": "make me a gold band"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orchestrator.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.ImageURL)
	assert.NotEmpty(t, resp.Message)
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleChat_EmptyBodyRejected(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)
	rec := postJSON(t, h.HandleChat, "/api/chat", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_OracleFailureIs500(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{err: errors.New("model unavailable")}, false)
	rec := postJSON(t, h.HandleChat, "/api/chat", map[string]any{"message": "hello there"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "generation_failed", body.Error)
}

func TestHandleChat_Multipart(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{
		raw: "Nice reference!\nGENERATE_IMAGE: gold band like the photo",
	}, false)

	var buf bytes.Buffer
	form := newMultipart(t, &buf, map[string]string{
		"message":             "something like this please",
		"conversationHistory": `[{"role":"user","content":"hi"}]`,
	}, "referenceImage", "ref.jpg", []byte{0xff, 0xd8, 0xff})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", &buf)
	req.Header.Set("Content-Type", form)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orchestrator.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Metadata.ReferenceAnalyzed)
}

func TestHandleShare_RoundTrip(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)

	rec := postJSON(t, h.HandleShare, "/api/share", map[string]any{
		"conversationHistory": []map[string]string{{"role": "user", "content": "hi"}},
		"title":               "My design",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var created createShareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ShareID)

	getReq := httptest.NewRequest(http.MethodGet, "/api/share?shareId="+created.ShareID, nil)
	getRec := httptest.NewRecorder()
	h.HandleShare(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var sh share.Share
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &sh))
	assert.Equal(t, "My design", sh.Title)
}

func TestHandleShare_NotFound(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)
	req := httptest.NewRequest(http.MethodGet, "/api/share?shareId=missing", nil)
	rec := httptest.NewRecorder()
	h.HandleShare(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCRMSync(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)

	rec := postJSON(t, h.HandleCRMSync, "/api/crm/sync", map[string]any{
		"email":             "a@example.com",
		"conversionTrigger": crm.TriggerImageGenerated,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var contact crm.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contact))
	assert.Equal(t, int64(1), contact.Counters[crm.TriggerImageGenerated])
}

func TestHandleCRMSync_MissingEmail(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)
	rec := postJSON(t, h.HandleCRMSync, "/api/crm/sync", map[string]any{"conversionTrigger": "share"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalytics_RecordAndSnapshot(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)

	rec := postJSON(t, h.HandleAnalytics, "/api/analytics", map[string]any{
		"eventType": "widget_opened",
		"data":      map[string]string{"brand": "aurora"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/analytics", nil)
	getRec := httptest.NewRecorder()
	h.HandleAnalytics(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var snap analytics.Snapshot
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Global["widget_opened"])
	assert.Equal(t, int64(1), snap.Brands["aurora"]["widget_opened"])
}

func TestHandleArtifact_ServesStoredBytes(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)
	_, err := h.artifacts.Put(context.Background(), "generated/x.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/generated/x.png", nil)
	rec := httptest.NewRecorder()
	h.HandleArtifact(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestHandleArtifact_NotFound(t *testing.T) {
	h := newTestHandler(t, &scriptedOracle{raw: "hi"}, false)
	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/missing.png", nil)
	rec := httptest.NewRecorder()
	h.HandleArtifact(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func newMultipart(t *testing.T, buf *bytes.Buffer, fields map[string]string, fileField, filename string, fileData []byte) string {
	t.Helper()
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile(fileField, filename)
	require.NoError(t, err)
	_, err = fw.Write(fileData)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType()
}
