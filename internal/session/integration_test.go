package session

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workbench-ai/cli/internal/api"
	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/sandbox"
	"github.com/workbench-ai/cli/internal/store"
)

// startSandboxSession wires a real session against the full in-process
// server, background worker included.
func startSandboxSession(t *testing.T) (*Session, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server, err := sandbox.New(sandbox.Options{
		DatabasePath:    filepath.Join(t.TempDir(), "sandbox.db"),
		Token:           "integration-token",
		ProcessingDelay: 50 * time.Millisecond,
		Log:             discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	httpSrv := httptest.NewServer(server.Handler())
	t.Cleanup(httpSrv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server.StartWorker(ctx)

	client := api.NewClient(httpSrv.URL, "integration-token")
	st := store.New()
	sess := New(client, st, "demo", &models.Actor{ID: "it-user", Name: "Integration"}, discardLogger())
	return sess, st
}

func TestFullFlowAgainstSandbox(t *testing.T) {
	sess, st := startSandboxSession(t)
	ctx := context.Background()

	require.NoError(t, sess.LoadProject(ctx))
	require.Len(t, st.Chats(), 1, "seeded welcome chat expected")

	chat, err := sess.CreateChat(ctx, "Integration")
	require.NoError(t, err)

	require.NoError(t, sess.SendMessage(ctx, "What documents do I have?"))
	msgs := st.Messages(chat.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.False(t, msgs[0].ID.Tentative())
	assert.False(t, msgs[1].ID.Tentative())

	require.NoError(t, sess.SubmitFeedback(ctx, msgs[1].ID, models.RatingLike, "clear answer"))

	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("quarterly numbers"), 0644))
	doc, err := sess.UploadDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQueued, doc.Status)
	assert.False(t, st.DocumentsSettled())

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	poller := NewPoller(sess, st, 50*time.Millisecond, discardLogger())
	go poller.Run(pollCtx)

	require.Eventually(t, func() bool {
		docs := st.Documents()
		return len(docs) == 1 && docs[0].Status == models.StatusCompleted
	}, 5*time.Second, 25*time.Millisecond, "poller should converge the uploaded document")

	require.True(t, sess.UpdateDraft(models.Settings{"model": "integration-model"}))
	require.True(t, st.DraftDirty())
	require.NoError(t, sess.PublishSettings(ctx))
	published, ok := st.PublishedSettings()
	require.True(t, ok)
	assert.Equal(t, "integration-model", published["model"])
	assert.False(t, st.DraftDirty())

	docs := st.Documents()
	require.NoError(t, sess.DeleteDocument(ctx, docs[0].ID))
	assert.Empty(t, st.Documents())
}

func TestSendFailureRollsBackAgainstSandbox(t *testing.T) {
	sess, st := startSandboxSession(t)
	ctx := context.Background()

	require.NoError(t, sess.LoadProject(ctx))
	chat, err := sess.CreateChat(ctx, "Doomed")
	require.NoError(t, err)

	require.NoError(t, sess.SendMessage(ctx, "first"))
	require.Len(t, st.Messages(chat.ID), 2)

	// Deleting the chat server-side makes the next send fail remotely
	// while the local selection still points at it.
	require.NoError(t, sess.client.DeleteChat(ctx, chat.ID))

	err = sess.SendMessage(ctx, "second")
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)

	// The store still holds the last-known-good two messages, no tentative
	msgs := st.Messages(chat.ID)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.False(t, m.ID.Tentative())
	}
}
