package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"luca-backend/internal/config"
	"luca-backend/internal/gateway"
	"luca-backend/internal/i18n"
	"luca-backend/internal/imaging"
	"luca-backend/internal/model"
	"luca-backend/internal/service"
	"luca-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeArchive struct {
	uploads []string
}

func (a *fakeArchive) Upload(ctx context.Context, conversationID, filename string, doc model.Export) (string, error) {
	name := storage.ObjectName(conversationID, filename)
	a.uploads = append(a.uploads, name)
	return name, nil
}

type testServer struct {
	router   *gin.Engine
	registry *service.Registry
	archive  *fakeArchive
}

func newTestServer(t *testing.T, apiKey string, withArchive bool) *testServer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Model = config.ModelConfig{Provider: "mock", APIKey: apiKey}
	cfg.Conversation = config.ConversationConfig{DefaultLanguage: "en", TTL: time.Hour, TurnTimeout: time.Minute}
	cfg.CORS.AllowedOrigins = []string{"*"}

	gw, err := gateway.New(cfg.Model)
	require.NoError(t, err)
	reg := service.NewRegistry(gw, imaging.NewEncoder(1024), cfg)
	t.Cleanup(reg.Close)

	ts := &testServer{registry: reg}
	var archive Archiver
	if withArchive {
		ts.archive = &fakeArchive{}
		archive = ts.archive
	}
	chat := NewChatHandler(reg, archive, 1024)
	prefs := NewPreferencesHandler(storage.NewMemoryStorage())
	ts.router = NewRouter(cfg, chat, prefs)
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) create(t *testing.T, lang string) model.Snapshot {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/conversations", gin.H{"language": lang})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(body string) []sseEvent {
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
		events = append(events, ev)
	}
	return events
}

func finalSnapshot(t *testing.T, events []sseEvent) model.Snapshot {
	t.Helper()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "[DONE]", events[len(events)-1].data)
	last := events[len(events)-2]
	require.Equal(t, "snapshot", last.name)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal([]byte(last.data), &snap))
	return snap
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "key", false)
	w := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCreateAndGetConversation(t *testing.T) {
	ts := newTestServer(t, "key", false)
	snap := ts.create(t, "hi-IN")

	assert.Equal(t, "hi", snap.Language)
	assert.True(t, snap.Ready)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, i18n.Bundle(i18n.HI).Greeting, snap.Messages[0].Text)

	w := ts.do(http.MethodGet, "/api/conversations/"+snap.ConversationID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/conversations", nil)
	assert.Contains(t, w.Body.String(), snap.ConversationID)

	w = ts.do(http.MethodPost, "/api/conversations", gin.H{"language": "klingon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, "/api/conversations/"+snap.ConversationID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodGet, "/api/conversations/"+snap.ConversationID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateConversationBody(t *testing.T) {
	ts := newTestServer(t, "key", false)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		return w
	}

	w := post("")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "en", snap.Language)

	w = post(`{"language": "hi"`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")

	w = post(`["hi"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, ts.registry.Len())
}

func TestSendMessageStreams(t *testing.T) {
	ts := newTestServer(t, "key", false)
	id := ts.create(t, "en").ConversationID

	w := ts.do(http.MethodPost, "/api/conversations/"+id+"/messages", gin.H{"text": "2+2?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSE(w.Body.String())
	var streamed []string
	for _, ev := range events {
		if ev.name != "message" {
			continue
		}
		var me model.MessageEvent
		require.NoError(t, json.Unmarshal([]byte(ev.data), &me))
		if me.Message.Sender == model.SenderAI {
			streamed = append(streamed, me.Message.Text)
		}
	}
	require.NotEmpty(t, streamed)
	assert.Equal(t, "", streamed[0])

	snap := finalSnapshot(t, events)
	require.Len(t, snap.Messages, 3)
	reply := snap.Messages[2]
	assert.Equal(t, `You said: "2+2?". This is turn 1.`, reply.Text)
	assert.False(t, reply.Streaming)
	assert.False(t, snap.Busy)
	assert.Equal(t, reply.Text, streamed[len(streamed)-1])
}

func TestSendMessageMultipart(t *testing.T) {
	ts := newTestServer(t, "key", false)
	id := ts.create(t, "en").ConversationID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "what is this"))
	// GIF header so the content sniffs as an image
	part, err := mw.CreateFormFile("image", "dot.gif")
	require.NoError(t, err)
	_, err = part.Write([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+id+"/messages", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	snap := finalSnapshot(t, parseSSE(w.Body.String()))
	require.Len(t, snap.Messages, 3)
	user := snap.Messages[1]
	require.NotNil(t, user.Image)
	assert.Equal(t, "dot.gif", user.Image.Name)
	assert.True(t, strings.HasPrefix(user.Image.DataURL, "data:image/gif;base64,"))
	assert.Contains(t, snap.Messages[2].Text, "image/gif")
}

func TestSendMessageRejections(t *testing.T) {
	ts := newTestServer(t, "key", false)
	id := ts.create(t, "en").ConversationID

	w := ts.do(http.MethodPost, "/api/conversations/"+id+"/messages", gin.H{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/conversations/missing/messages", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	ctrl, err := ts.registry.Get(id)
	require.NoError(t, err)
	turn, err := ctrl.BeginTurn(context.Background(), "in flight", nil)
	require.NoError(t, err)

	w = ts.do(http.MethodPost, "/api/conversations/"+id+"/messages", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, turn.Run())
	assert.Len(t, ctrl.Snapshot().Messages, 3)
}

func TestSendMessageNotReady(t *testing.T) {
	ts := newTestServer(t, "", false)
	snap := ts.create(t, "en")
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "init-error", snap.Messages[0].ID)

	w := ts.do(http.MethodPost, "/api/conversations/"+snap.ConversationID+"/messages", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestReactions(t *testing.T) {
	ts := newTestServer(t, "key", false)
	id := ts.create(t, "en").ConversationID

	w := ts.do(http.MethodPost, "/api/conversations/"+id+"/messages", gin.H{"text": "2+2?"})
	aiID := finalSnapshot(t, parseSSE(w.Body.String())).Messages[2].ID

	w = ts.do(http.MethodPost, "/api/conversations/"+id+"/reactions", gin.H{"message_id": aiID, "type": "thumbsUp"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"thumbsUp"`)

	w = ts.do(http.MethodPost, "/api/conversations/"+id+"/reactions", gin.H{"message_id": aiID, "type": "heart"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/conversations/"+id+"/reactions", gin.H{"message_id": aiID, "type": "retry"})
	require.Equal(t, http.StatusOK, w.Code)
	snap := finalSnapshot(t, parseSSE(w.Body.String()))
	require.Len(t, snap.Messages, 5)
	assert.Equal(t, "2+2?", snap.Messages[3].Text)
	assert.Equal(t, `You said: "2+2?". This is turn 2.`, snap.Messages[4].Text)
}

func TestClearAndLanguage(t *testing.T) {
	ts := newTestServer(t, "key", false)
	id := ts.create(t, "en").ConversationID
	ts.do(http.MethodPost, "/api/conversations/"+id+"/messages", gin.H{"text": "one"})

	w := ts.do(http.MethodPost, "/api/conversations/"+id+"/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Messages, 1)

	w = ts.do(http.MethodPut, "/api/conversations/"+id+"/language", gin.H{"language": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "hi", snap.Language)
	assert.Equal(t, i18n.Bundle(i18n.HI).Greeting, snap.Messages[0].Text)

	w = ts.do(http.MethodPut, "/api/conversations/"+id+"/language", gin.H{"language": "fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, "key", true)
	id := ts.create(t, "en").ConversationID
	ts.do(http.MethodPost, "/api/conversations/"+id+"/messages", gin.H{"text": "one"})

	w := ts.do(http.MethodGet, "/api/conversations/"+id+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="luca-chat-`)

	var doc model.Export
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Len(t, doc.Messages, 3)
	assert.NotContains(t, w.Body.String(), "dataUrl")

	w = ts.do(http.MethodGet, "/api/conversations/"+id+"/export?archive=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.archive.uploads, 1)
	assert.Equal(t, ts.archive.uploads[0], w.Header().Get("X-Archive-Object"))
	assert.True(t, strings.HasPrefix(ts.archive.uploads[0], id+"/luca-chat-"))
}

func TestExportArchiveDisabled(t *testing.T) {
	ts := newTestServer(t, "key", false)
	id := ts.create(t, "en").ConversationID
	w := ts.do(http.MethodGet, "/api/conversations/"+id+"/export?archive=true", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "luca-chat-2024-01-02T03-04-05.006Z.json", ExportFilename("2024-01-02T03:04:05.006Z"))
}

func TestTranslations(t *testing.T) {
	ts := newTestServer(t, "key", false)

	w := ts.do(http.MethodGet, "/api/translations/hi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"speech_locale":"hi-IN"`)
	assert.Contains(t, w.Body.String(), "chatInitializationError")

	var body struct {
		SpeechLocale string            `json:"speech_locale"`
		Translations map[string]string `json:"translations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	tr := i18n.Bundle(i18n.HI)
	assert.Equal(t, tr.NoSpeechDetected, body.Translations["noSpeechDetected"])
	assert.Equal(t, tr.MicrophonePermissionDenied, body.Translations["microphonePermissionDenied"])
	assert.Equal(t, tr.SpeechRecognitionNotSupported, body.Translations["speechRecognitionNotSupported"])

	w = ts.do(http.MethodGet, "/api/translations/en-US", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"speech_locale":"en-US"`)

	w = ts.do(http.MethodGet, "/api/translations/xx", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
