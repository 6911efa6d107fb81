// Package session implements the client's reconciliation core: optimistic
// message sends with rollback, document lifecycle and convergence polling,
// and the draft/publish settings flow. All state lives in the store; the
// session owns the order in which server results are applied to it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/workbench-ai/cli/internal/api"
	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/store"
)

// Session coordinates one actor's view of one project. Safe for concurrent
// use; UI commands may call into it from their own goroutines.
type Session struct {
	client    *api.Client
	store     *store.Store
	log       *slog.Logger
	actor     *models.Actor
	projectID string

	mu         sync.Mutex
	activeChat string

	notices chan models.Notice
}

// New creates a session for the given project and actor
func New(client *api.Client, st *store.Store, projectID string, actor *models.Actor, log *slog.Logger) *Session {
	return &Session{
		client:    client,
		store:     st,
		log:       log,
		actor:     actor,
		projectID: projectID,
		notices:   make(chan models.Notice, 16),
	}
}

// Store returns the entity store views render from
func (s *Session) Store() *store.Store {
	return s.store
}

// Actor returns the authenticated actor, if one is present
func (s *Session) Actor() (models.Actor, bool) {
	if s.actor == nil {
		return models.Actor{}, false
	}
	return *s.actor, true
}

// ProjectID returns the project this session operates on
func (s *Session) ProjectID() string {
	return s.projectID
}

// Notices returns the transient notification channel. Every mutating action
// reports its outcome here.
func (s *Session) Notices() <-chan models.Notice {
	return s.notices
}

// LoadProject fetches the project bundle and resets the store from it
func (s *Session) LoadProject(ctx context.Context) error {
	bundle, err := s.client.LoadBundle(ctx, s.projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	s.store.ResetProject(bundle.Project, bundle.Chats, bundle.Documents, bundle.Settings)
	s.log.Info("project loaded",
		"project_id", bundle.Project.ID,
		"chats", len(bundle.Chats),
		"documents", len(bundle.Documents))
	return nil
}

// SelectChat makes the given chat the target of subsequent sends
func (s *Session) SelectChat(chatID string) error {
	if _, ok := s.store.Chat(chatID); !ok {
		return fmt.Errorf("select chat %s: %w", chatID, ErrInvalidState)
	}
	s.mu.Lock()
	s.activeChat = chatID
	s.mu.Unlock()
	return nil
}

// ActiveChat returns the currently selected chat, if it still exists
func (s *Session) ActiveChat() (models.Chat, bool) {
	s.mu.Lock()
	id := s.activeChat
	s.mu.Unlock()
	if id == "" {
		return models.Chat{}, false
	}
	return s.store.Chat(id)
}

// CreateChat creates a chat remotely, prepends it to the store, and makes it
// the active chat.
func (s *Session) CreateChat(ctx context.Context, title string) (models.Chat, error) {
	chat, err := s.client.CreateChat(ctx, s.projectID, title)
	if err != nil {
		s.notify(models.NoticeError, "Chat could not be created")
		return models.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	s.store.PrependChat(*chat)
	s.mu.Lock()
	s.activeChat = chat.ID
	s.mu.Unlock()
	s.notify(models.NoticeSuccess, "Chat created")
	return *chat, nil
}

// DeleteChat deletes a chat remotely and drops it from the store
func (s *Session) DeleteChat(ctx context.Context, chatID string) error {
	if err := s.client.DeleteChat(ctx, chatID); err != nil {
		s.notify(models.NoticeError, "Chat could not be deleted")
		return fmt.Errorf("delete chat: %w", err)
	}
	s.store.RemoveChat(chatID)
	s.mu.Lock()
	if s.activeChat == chatID {
		s.activeChat = ""
	}
	s.mu.Unlock()
	s.notify(models.NoticeSuccess, "Chat deleted")
	return nil
}

// SendMessage gives immediate feedback for a send: the user's message appears
// in the store under a tentative identifier before the round trip starts, and
// is atomically replaced by the server-confirmed pair when it completes. On
// failure every tentative message in the chat is retracted and the store is
// back to its last-known-good shape. There is no automatic retry; a new call
// is a fresh attempt with a new tentative identifier.
func (s *Session) SendMessage(ctx context.Context, content string) error {
	chat, ok := s.ActiveChat()
	if !ok || s.actor == nil {
		return fmt.Errorf("send message: %w", ErrInvalidState)
	}

	tentative := models.Message{
		ID:        models.NewTentativeID(),
		ChatID:    chat.ID,
		Role:      models.RoleUser,
		Content:   content,
		Author:    s.actor.Name,
		CreatedAt: time.Now(),
	}
	// Optimistic append, visible to the renderer before any network I/O.
	s.store.UpsertMessage(chat.ID, tentative)

	exchange, err := s.client.CreateMessage(ctx, chat.ID, content)
	if err != nil {
		purged := s.store.PurgeTentative(chat.ID)
		s.log.Warn("send failed, optimistic messages retracted",
			"chat_id", chat.ID, "purged", purged, "error", err)
		s.notify(models.NoticeError, "Message could not be sent")
		return fmt.Errorf("send message: %w", err)
	}

	// One atomic update: drop this send's tentative entry, append the
	// confirmed user message and the reply in order. Concurrent sends keep
	// their own tentative entries.
	s.store.ResolveExchange(chat.ID, tentative.ID, exchange.UserMessage, exchange.AIResponse)
	s.notify(models.NoticeSuccess, "Reply received")
	return nil
}

// SubmitFeedback records a rating for an assistant message. Fire-and-forget:
// nothing in the store changes either way.
func (s *Session) SubmitFeedback(ctx context.Context, messageID models.MessageID, rating models.Rating, comment string) error {
	if messageID.IsZero() || messageID.Tentative() {
		return fmt.Errorf("submit feedback: %w", ErrInvalidState)
	}
	if err := s.client.SubmitFeedback(ctx, messageID, rating, comment, ""); err != nil {
		s.log.Warn("feedback submission failed", "message_id", messageID, "error", err)
		s.notify(models.NoticeError, "Feedback was not recorded")
		return fmt.Errorf("submit feedback: %w", err)
	}
	s.notify(models.NoticeSuccess, "Feedback recorded")
	return nil
}

// UploadDocument pushes a local file into the knowledge base: request an
// upload slot, transfer the bytes, confirm, and track the resulting document
// in the store. The document usually arrives in a non-terminal status, which
// wakes the convergence poller.
func (s *Session) UploadDocument(ctx context.Context, path string) (models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		s.notify(models.NoticeError, "File could not be read")
		return models.Document{}, fmt.Errorf("upload document: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.notify(models.NoticeError, "File could not be read")
		return models.Document{}, fmt.Errorf("upload document: %w", err)
	}

	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	slot, err := s.client.RequestUploadSlot(ctx, s.projectID, name, info.Size(), contentType)
	if err != nil {
		s.notify(models.NoticeError, "Upload could not be started")
		return models.Document{}, fmt.Errorf("upload document: %w", err)
	}
	if err := s.client.Upload(ctx, slot.UploadURL, f, info.Size(), contentType); err != nil {
		s.notify(models.NoticeError, "Upload failed")
		return models.Document{}, fmt.Errorf("upload document: %w", err)
	}
	doc, err := s.client.ConfirmUpload(ctx, s.projectID, slot.StorageKey)
	if err != nil {
		s.notify(models.NoticeError, "Upload could not be confirmed")
		return models.Document{}, fmt.Errorf("upload document: %w", err)
	}

	s.store.UpsertDocument(*doc)
	s.notify(models.NoticeSuccess, fmt.Sprintf("Uploaded %s", name))
	return *doc, nil
}

// AddURL asks the server to ingest a URL and tracks the resulting document
func (s *Session) AddURL(ctx context.Context, url string) (models.Document, error) {
	doc, err := s.client.ProcessURL(ctx, s.projectID, url)
	if err != nil {
		s.notify(models.NoticeError, "URL could not be added")
		return models.Document{}, fmt.Errorf("add url: %w", err)
	}
	s.store.UpsertDocument(*doc)
	s.notify(models.NoticeSuccess, "URL queued for processing")
	return *doc, nil
}

// DeleteDocument deletes a document remotely and drops it from the store
func (s *Session) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.client.DeleteDocument(ctx, documentID); err != nil {
		s.notify(models.NoticeError, "Document could not be deleted")
		return fmt.Errorf("delete document: %w", err)
	}
	s.store.RemoveDocument(documentID)
	s.notify(models.NoticeSuccess, "Document deleted")
	return nil
}

// RefreshDocuments fetches the full document collection and replaces the
// store's copy wholesale. A response that lands after the context was
// cancelled is discarded, never applied.
func (s *Session) RefreshDocuments(ctx context.Context) error {
	docs, err := s.client.RefreshDocuments(ctx, s.projectID)
	if err != nil {
		return fmt.Errorf("refresh documents: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.store.ReplaceDocuments(docs)
	return nil
}

func (s *Session) notify(level models.NoticeLevel, text string) {
	notice := models.Notice{Level: level, Text: text, Time: time.Now()}
	select {
	case s.notices <- notice:
	default:
		// A slow consumer must never block an engine path.
	}
}
