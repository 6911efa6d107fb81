package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workbench-ai/cli/internal/models"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.ResetProject(
		models.Project{ID: "p1", Name: "Demo"},
		[]models.Chat{{ID: "chat1", ProjectID: "p1", Title: "First"}},
		nil,
		models.Settings{"model": "fast"},
	)
	return s
}

func msg(id models.MessageID, role models.Role, content string) models.Message {
	return models.Message{ID: id, ChatID: "chat1", Role: role, Content: content, CreatedAt: time.Now()}
}

func TestResetProjectInitializesDraftFromPublished(t *testing.T) {
	s := seeded(t)

	published, ok := s.PublishedSettings()
	require.True(t, ok)
	draft, ok := s.DraftSettings()
	require.True(t, ok)
	assert.Equal(t, published, draft)
	assert.False(t, s.DraftDirty())

	// Editing the draft must not leak into the published copy.
	require.True(t, s.MergeDraft(models.Settings{"model": "precise"}))
	published, _ = s.PublishedSettings()
	assert.Equal(t, "fast", published["model"])
	assert.True(t, s.DraftDirty())
}

func TestUpsertMessageAppendsThenReplaces(t *testing.T) {
	s := seeded(t)
	a := models.DurableID("m1")
	b := models.DurableID("m2")

	s.UpsertMessage("chat1", msg(a, models.RoleUser, "one"))
	s.UpsertMessage("chat1", msg(b, models.RoleAssistant, "two"))
	s.UpsertMessage("chat1", msg(a, models.RoleUser, "one edited"))

	msgs := s.Messages("chat1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "one edited", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
}

func TestUpsertMessageUnknownChatIsNoop(t *testing.T) {
	s := seeded(t)
	s.UpsertMessage("nope", msg(models.DurableID("m1"), models.RoleUser, "lost"))
	assert.Empty(t, s.Messages("chat1"))
	assert.Nil(t, s.Messages("nope"))
}

func TestRemoveMessagesByPredicate(t *testing.T) {
	s := seeded(t)
	s.UpsertMessage("chat1", msg(models.DurableID("m1"), models.RoleUser, "keep"))
	s.UpsertMessage("chat1", msg(models.NewTentativeID(), models.RoleUser, "drop"))
	s.UpsertMessage("chat1", msg(models.DurableID("m2"), models.RoleAssistant, "keep too"))

	removed := s.RemoveMessages("chat1", func(m models.Message) bool {
		return m.ID.Tentative()
	})

	assert.Equal(t, 1, removed)
	msgs := s.Messages("chat1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "keep", msgs[0].Content)
	assert.Equal(t, "keep too", msgs[1].Content)
}

func TestResolveExchangeReplacesOwnTentativeOnly(t *testing.T) {
	s := seeded(t)
	mine := models.NewTentativeID()
	other := models.NewTentativeID()
	s.UpsertMessage("chat1", msg(mine, models.RoleUser, "mine"))
	s.UpsertMessage("chat1", msg(other, models.RoleUser, "in flight elsewhere"))

	s.ResolveExchange("chat1", mine,
		msg(models.DurableID("u1"), models.RoleUser, "mine"),
		msg(models.DurableID("a1"), models.RoleAssistant, "reply"),
	)

	msgs := s.Messages("chat1")
	require.Len(t, msgs, 3)
	// The sibling send's tentative entry survives untouched.
	assert.Equal(t, other, msgs[0].ID)
	assert.Equal(t, models.DurableID("u1"), msgs[1].ID)
	assert.Equal(t, models.DurableID("a1"), msgs[2].ID)
	assert.Equal(t, models.RoleUser, msgs[1].Role)
	assert.Equal(t, models.RoleAssistant, msgs[2].Role)
}

func TestPurgeTentativeLeavesDurableMessages(t *testing.T) {
	s := seeded(t)
	s.UpsertMessage("chat1", msg(models.DurableID("m1"), models.RoleUser, "durable"))
	s.UpsertMessage("chat1", msg(models.NewTentativeID(), models.RoleUser, "a"))
	s.UpsertMessage("chat1", msg(models.NewTentativeID(), models.RoleUser, "b"))

	assert.Equal(t, 2, s.PurgeTentative("chat1"))

	msgs := s.Messages("chat1")
	require.Len(t, msgs, 1)
	assert.Equal(t, models.DurableID("m1"), msgs[0].ID)
	assert.Equal(t, 0, s.PurgeTentative("chat1"))
}

func TestPrependChatOrder(t *testing.T) {
	s := seeded(t)
	s.PrependChat(models.Chat{ID: "chat2", ProjectID: "p1", Title: "Newest"})

	chats := s.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, "chat2", chats[0].ID)
	assert.Equal(t, "chat1", chats[1].ID)
}

func TestRemoveChat(t *testing.T) {
	s := seeded(t)
	s.RemoveChat("chat1")
	assert.Empty(t, s.Chats())

	_, ok := s.Chat("chat1")
	assert.False(t, ok)
}

func TestReplaceDocumentsIsWholesale(t *testing.T) {
	s := seeded(t)
	s.UpsertDocument(models.Document{ID: "d1", Status: models.StatusProcessing})
	s.UpsertDocument(models.Document{ID: "d2", Status: models.StatusQueued})

	s.ReplaceDocuments([]models.Document{{ID: "d1", Status: models.StatusCompleted}})

	docs := s.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusCompleted, docs[0].Status)
}

func TestDocumentsSettled(t *testing.T) {
	s := seeded(t)
	assert.True(t, s.DocumentsSettled(), "empty collection is settled")

	s.UpsertDocument(models.Document{ID: "d1", Status: models.StatusProcessing})
	assert.False(t, s.DocumentsSettled())

	s.ReplaceDocuments([]models.Document{
		{ID: "d1", Status: models.StatusCompleted},
		{ID: "d2", Status: models.StatusFailed},
	})
	assert.True(t, s.DocumentsSettled())
}

func TestMergeDraftBeforeLoadIsNoop(t *testing.T) {
	s := New()

	assert.False(t, s.MergeDraft(models.Settings{"model": "fast"}))

	_, ok := s.DraftSettings()
	assert.False(t, ok, "draft stays undefined until a published copy loads")
	_, ok = s.PublishedSettings()
	assert.False(t, ok)
}

func TestPromoteDraftKeepsMidFlightEdits(t *testing.T) {
	s := seeded(t)
	require.True(t, s.MergeDraft(models.Settings{"model": "precise"}))
	sent, _ := s.DraftSettings()

	// The user keeps typing while the publish is in flight.
	require.True(t, s.MergeDraft(models.Settings{"temperature": 0.7}))

	s.PromoteDraft(sent)

	published, _ := s.PublishedSettings()
	assert.Equal(t, "precise", published["model"])
	assert.NotContains(t, published, "temperature")

	draft, _ := s.DraftSettings()
	assert.Equal(t, 0.7, draft["temperature"])
	assert.True(t, s.DraftDirty())
}

func TestWatchSignalsOnMutation(t *testing.T) {
	s := seeded(t)
	ch := s.Watch()

	s.UpsertDocument(models.Document{ID: "d1", Status: models.StatusQueued})

	select {
	case <-ch:
	default:
		t.Fatal("expected a watch signal after a mutation")
	}

	// Signals coalesce: many mutations, at most one pending signal.
	s.UpsertDocument(models.Document{ID: "d2", Status: models.StatusQueued})
	s.UpsertDocument(models.Document{ID: "d3", Status: models.StatusQueued})
	<-ch
	select {
	case <-ch:
		t.Fatal("watch signals should coalesce")
	default:
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := seeded(t)
	s.UpsertMessage("chat1", msg(models.DurableID("m1"), models.RoleUser, "original"))

	msgs := s.Messages("chat1")
	msgs[0].Content = "mutated"
	assert.Equal(t, "original", s.Messages("chat1")[0].Content)

	chats := s.Chats()
	chats[0].Title = "mutated"
	assert.Equal(t, "First", s.Chats()[0].Title)

	draft, _ := s.DraftSettings()
	draft["model"] = "mutated"
	fresh, _ := s.DraftSettings()
	assert.Equal(t, "fast", fresh["model"])
}
