package sandbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workbench-ai/cli/internal/models"
)

func newTestQueries(t *testing.T) *Queries {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sandbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	q := NewQueries(db)
	require.NoError(t, q.EnsureSeed())
	return q
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// queueUpload stores a completed upload and a queued document pointing at it
func queueUpload(t *testing.T, q *Queries, name string, data []byte) models.Document {
	t.Helper()
	key := uuid.NewString()
	require.NoError(t, q.CreateUpload(key, "demo", name, int64(len(data)), ""))
	require.NoError(t, q.StoreUploadData(key, data))

	doc := models.Document{
		ID:        uuid.NewString(),
		ProjectID: "demo",
		Source:    name,
		Status:    models.StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, q.InsertDocument(doc, key))
	return doc
}

func TestProcessExtractsPlainText(t *testing.T) {
	q := newTestQueries(t)
	p := NewProcessor(q, 0, quietLogger())

	doc := queueUpload(t, q, "notes.txt", []byte("seven words of text in this file"))
	p.process(context.Background(), doc.ID)

	current, err := q.Document(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, current.Status)
	assert.Contains(t, current.Detail, "characters extracted")
}

func TestProcessHoldsProcessingStatus(t *testing.T) {
	q := newTestQueries(t)
	p := NewProcessor(q, 300*time.Millisecond, quietLogger())

	doc := queueUpload(t, q, "slow.txt", []byte("body"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.process(context.Background(), doc.ID)
	}()

	require.Eventually(t, func() bool {
		current, err := q.Document(doc.ID)
		return err == nil && current.Status == models.StatusProcessing
	}, time.Second, 10*time.Millisecond)

	<-done
	current, err := q.Document(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, current.Status)
}

func TestProcessFetchFailureEndsFailed(t *testing.T) {
	q := newTestQueries(t)
	p := NewProcessor(q, 0, quietLogger())

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer origin.Close()

	doc := models.Document{
		ID:        uuid.NewString(),
		ProjectID: "demo",
		Source:    origin.URL,
		Status:    models.StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, q.InsertDocument(doc, ""))

	p.process(context.Background(), doc.ID)

	current, err := q.Document(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, current.Status)
	assert.Contains(t, current.Detail, "fetch returned status 500")
}

func TestRunReclaimsInterruptedDocuments(t *testing.T) {
	q := newTestQueries(t)
	p := NewProcessor(q, 0, quietLogger())
	p.sweep = 20 * time.Millisecond

	doc := queueUpload(t, q, "orphan.txt", []byte("left behind"))
	require.NoError(t, q.UpdateDocumentStatus(doc.ID, models.StatusProcessing, ""))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		current, err := q.Document(doc.ID)
		return err == nil && current.Status == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFetchExtractsHTMLText(t *testing.T) {
	q := newTestQueries(t)
	p := NewProcessor(q, 0, quietLogger())

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>Title</h1><p>Paragraph text.</p></body></html>"))
	}))
	defer origin.Close()

	text, err := p.fetchURL(context.Background(), origin.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Paragraph text.")
	assert.NotContains(t, text, "<")
}

func TestExtractTextUnsupportedExtension(t *testing.T) {
	_, err := extractText("archive.zip", []byte{0x50, 0x4b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
