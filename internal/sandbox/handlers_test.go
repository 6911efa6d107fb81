package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workbench-ai/cli/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type bundlePayload struct {
	Project   models.Project    `json:"project"`
	Chats     []models.Chat     `json:"chats"`
	Documents []models.Document `json:"documents"`
	Settings  models.Settings   `json:"settings"`
}

type exchangePayload struct {
	UserMessage models.Message `json:"user_message"`
	AIResponse  models.Message `json:"ai_response"`
}

type slotPayload struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(Options{
		DatabasePath:    filepath.Join(t.TempDir(), "sandbox.db"),
		Token:           "test-token",
		ProcessingDelay: 0,
		Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// startWorker runs the document processor for the duration of the test
func startWorker(t *testing.T, srv *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.processor.Run(ctx)
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestBundleReturnsSeededProject(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/v1/projects/demo/bundle", nil)
	require.Equal(t, http.StatusOK, w.Code)

	bundle := decodeBody[bundlePayload](t, w)
	assert.Equal(t, "demo", bundle.Project.ID)
	require.Len(t, bundle.Chats, 1)
	require.Len(t, bundle.Chats[0].Messages, 1)
	assert.Equal(t, models.RoleAssistant, bundle.Chats[0].Messages[0].Role)
	assert.Equal(t, "sandbox-small", bundle.Settings["model"])
	assert.Empty(t, bundle.Documents)
}

func TestBundleUnknownProject(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/v1/projects/nope/bundle", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "project not found")
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/demo/bundle", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndDeleteChat(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/chats", gin.H{"title": "Research"})
	require.Equal(t, http.StatusCreated, w.Code)
	chat := decodeBody[models.Chat](t, w)
	assert.NotEmpty(t, chat.ID)
	assert.Equal(t, "demo", chat.ProjectID)
	assert.Equal(t, "Research", chat.Title)

	w = doRequest(t, srv, http.MethodGet, "/v1/projects/demo/bundle", nil)
	bundle := decodeBody[bundlePayload](t, w)
	require.Len(t, bundle.Chats, 2)
	assert.Equal(t, chat.ID, bundle.Chats[0].ID, "new chat should list first")

	w = doRequest(t, srv, http.MethodDelete, "/v1/chats/"+chat.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, srv, http.MethodDelete, "/v1/chats/"+chat.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateChatRequiresTitle(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/chats", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateMessageReturnsExchange(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/chats", gin.H{"title": "Questions"})
	require.Equal(t, http.StatusCreated, w.Code)
	chat := decodeBody[models.Chat](t, w)

	w = doRequest(t, srv, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", gin.H{"content": "hello there"})
	require.Equal(t, http.StatusOK, w.Code)

	exchange := decodeBody[exchangePayload](t, w)
	assert.Equal(t, models.RoleUser, exchange.UserMessage.Role)
	assert.Equal(t, "hello there", exchange.UserMessage.Content)
	assert.Equal(t, models.RoleAssistant, exchange.AIResponse.Role)
	assert.NotEmpty(t, exchange.AIResponse.Content)
	assert.False(t, exchange.UserMessage.ID.IsZero())
	assert.False(t, exchange.UserMessage.ID.Tentative())
	assert.NotEqual(t, exchange.UserMessage.ID, exchange.AIResponse.ID)

	// The stored order must match the returned order
	w = doRequest(t, srv, http.MethodGet, "/v1/projects/demo/bundle", nil)
	bundle := decodeBody[bundlePayload](t, w)
	for _, c := range bundle.Chats {
		if c.ID != chat.ID {
			continue
		}
		require.Len(t, c.Messages, 2)
		assert.Equal(t, exchange.UserMessage.ID, c.Messages[0].ID)
		assert.Equal(t, exchange.AIResponse.ID, c.Messages[1].ID)
	}
}

func TestCreateMessageUnknownChat(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/chats/missing/messages", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateMessageRequiresContent(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/chats", gin.H{"title": "Empty"})
	chat := decodeBody[models.Chat](t, w)

	w = doRequest(t, srv, http.MethodPost, "/v1/chats/"+chat.ID+"/messages", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbackAccepted(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/messages/m1/feedback", gin.H{"rating": "like", "comment": "useful"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(t, srv, http.MethodPost, "/v1/messages/m1/feedback", gin.H{"rating": "meh"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	startWorker(t, srv)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/uploads", gin.H{
		"name":         "notes.txt",
		"size":         10,
		"content_type": "text/plain",
	})
	require.Equal(t, http.StatusOK, w.Code)
	slot := decodeBody[slotPayload](t, w)
	require.NotEmpty(t, slot.UploadURL)
	require.NotEmpty(t, slot.StorageKey)

	// The upload destination takes raw bytes and no auth header
	req := httptest.NewRequest(http.MethodPut, slot.UploadURL, bytes.NewReader([]byte("alpha beta")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	w = doRequest(t, srv, http.MethodPost, "/v1/projects/demo/documents", gin.H{"storage_key": slot.StorageKey})
	require.Equal(t, http.StatusCreated, w.Code)
	doc := decodeBody[models.Document](t, w)
	assert.Equal(t, "notes.txt", doc.Source)
	assert.Equal(t, models.StatusQueued, doc.Status)

	require.Eventually(t, func() bool {
		current, err := srv.queries.Document(doc.ID)
		return err == nil && current.Status == models.StatusCompleted
	}, 3*time.Second, 25*time.Millisecond)

	current, err := srv.queries.Document(doc.ID)
	require.NoError(t, err)
	assert.Contains(t, current.Detail, "characters extracted")
}

func TestConfirmUploadBeforeBytesConflicts(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/uploads", gin.H{
		"name": "pending.txt",
		"size": 4,
	})
	slot := decodeBody[slotPayload](t, w)

	w = doRequest(t, srv, http.MethodPost, "/v1/projects/demo/documents", gin.H{"storage_key": slot.StorageKey})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "upload incomplete")
}

func TestConfirmUploadUnknownKey(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/documents", gin.H{"storage_key": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadPutUnknownSlot(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/uploads/missing", bytes.NewReader([]byte("data")))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnsupportedUploadEndsFailed(t *testing.T) {
	srv := newTestServer(t)
	startWorker(t, srv)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/uploads", gin.H{"name": "binary.exe", "size": 4})
	slot := decodeBody[slotPayload](t, w)

	req := httptest.NewRequest(http.MethodPut, slot.UploadURL, bytes.NewReader([]byte{0x4d, 0x5a, 0x00, 0x01}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	w = doRequest(t, srv, http.MethodPost, "/v1/projects/demo/documents", gin.H{"storage_key": slot.StorageKey})
	require.Equal(t, http.StatusCreated, w.Code)
	doc := decodeBody[models.Document](t, w)

	require.Eventually(t, func() bool {
		current, err := srv.queries.Document(doc.ID)
		return err == nil && current.Status == models.StatusFailed
	}, 3*time.Second, 25*time.Millisecond)

	current, err := srv.queries.Document(doc.ID)
	require.NoError(t, err)
	assert.Contains(t, current.Detail, "unsupported file type")
}

func TestProcessURLCreatesDocument(t *testing.T) {
	srv := newTestServer(t)
	startWorker(t, srv)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("web page text"))
	}))
	defer origin.Close()

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/urls", gin.H{"url": origin.URL})
	require.Equal(t, http.StatusCreated, w.Code)
	doc := decodeBody[models.Document](t, w)
	assert.Equal(t, origin.URL, doc.Source)
	assert.Equal(t, models.StatusQueued, doc.Status)

	require.Eventually(t, func() bool {
		current, err := srv.queries.Document(doc.ID)
		return err == nil && current.Status == models.StatusCompleted
	}, 3*time.Second, 25*time.Millisecond)
}

func TestProcessURLRejectsMalformed(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/urls", gin.H{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDocument(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/v1/projects/demo/urls", gin.H{"url": "https://example.com/a"})
	doc := decodeBody[models.Document](t, w)

	w = doRequest(t, srv, http.MethodDelete, "/v1/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, srv, http.MethodGet, "/v1/projects/demo/documents", nil)
	docs := decodeBody[[]models.Document](t, w)
	assert.Empty(t, docs)

	w = doRequest(t, srv, http.MethodDelete, "/v1/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateSettingsReplacesWholesale(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodPut, "/v1/projects/demo/settings", gin.H{"model": "new-model"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, srv, http.MethodGet, "/v1/projects/demo/bundle", nil)
	bundle := decodeBody[bundlePayload](t, w)
	assert.Equal(t, "new-model", bundle.Settings["model"])
	assert.NotContains(t, bundle.Settings, "temperature", "replaced settings should not retain old keys")
	assert.NotContains(t, bundle.Settings, "citations")
}
