// Package store holds the client's in-memory snapshot of a project: chats
// with their messages, documents, and the draft/published settings pair. It
// performs no I/O; the session layer mutates it with server results and the
// views render from it. Every mutation is atomic under the store's lock and
// signals the watch channels, so readers observe each operation fully applied
// or not at all.
package store

import (
	"sync"

	"github.com/workbench-ai/cli/internal/models"
)

// Store is the shared snapshot. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	project   *models.Project
	chats     []models.Chat
	documents []models.Document
	published models.Settings
	draft     models.Settings
	watchers  []chan struct{}
}

// New returns an empty store
func New() *Store {
	return &Store{}
}

// ResetProject replaces the entire snapshot from a freshly loaded bundle.
// The published settings become the last server-confirmed copy and the draft
// starts as an independent copy of them.
func (s *Store) ResetProject(project models.Project, chats []models.Chat, documents []models.Document, settings models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = &project
	s.chats = cloneChats(chats)
	s.documents = append([]models.Document(nil), documents...)
	s.published = settings.Clone()
	s.draft = settings.Clone()
	s.notifyLocked()
}

// Project returns the loaded project, if any
func (s *Store) Project() (models.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.project == nil {
		return models.Project{}, false
	}
	return *s.project, true
}

// ReplaceChats bulk-replaces the chat collection
func (s *Store) ReplaceChats(chats []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = cloneChats(chats)
	s.notifyLocked()
}

// ReplaceDocuments bulk-replaces the document collection; the poller calls
// this on every refresh tick.
func (s *Store) ReplaceDocuments(documents []models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append([]models.Document(nil), documents...)
	s.notifyLocked()
}

// Chats returns a copy of the chat collection in display order
func (s *Store) Chats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneChats(s.chats)
}

// Chat returns a copy of one chat by identifier
func (s *Store) Chat(id string) (models.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.chats {
		if s.chats[i].ID == id {
			chat := s.chats[i]
			chat.Messages = append([]models.Message(nil), chat.Messages...)
			return chat, true
		}
	}
	return models.Chat{}, false
}

// Messages returns a copy of a chat's message sequence
func (s *Store) Messages(chatID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat := s.findChat(chatID)
	if chat == nil {
		return nil
	}
	return append([]models.Message(nil), chat.Messages...)
}

// PrependChat inserts a newly created chat at the front of the collection
func (s *Store) PrependChat(chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat.Messages = append([]models.Message(nil), chat.Messages...)
	s.chats = append([]models.Chat{chat}, s.chats...)
	s.notifyLocked()
}

// RemoveChat deletes a chat by identifier
func (s *Store) RemoveChat(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chats {
		if s.chats[i].ID == id {
			s.chats = append(s.chats[:i], s.chats[i+1:]...)
			s.notifyLocked()
			return
		}
	}
}

// UpsertMessage inserts or overwrites a message by identifier, preserving
// order: existing identifiers are replaced in place, new ones append at the
// end of the sequence.
func (s *Store) UpsertMessage(chatID string, msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.findChat(chatID)
	if chat == nil {
		return
	}
	appendOrReplace(chat, msg)
	s.notifyLocked()
}

// RemoveMessages deletes every message in the chat for which match returns
// true and reports how many were removed.
func (s *Store) RemoveMessages(chatID string, match func(models.Message) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.findChat(chatID)
	if chat == nil {
		return 0
	}
	kept := chat.Messages[:0]
	for _, m := range chat.Messages {
		if !match(m) {
			kept = append(kept, m)
		}
	}
	removed := len(chat.Messages) - len(kept)
	chat.Messages = kept
	if removed > 0 {
		s.notifyLocked()
	}
	return removed
}

// ResolveExchange reconciles a completed send in one atomic step: the
// tentative message is removed (matched only by the identifier the send
// minted) and the confirmed user message and assistant reply are appended in
// that order. Concurrent sends are untouched: their tentative entries carry
// different identifiers.
func (s *Store) ResolveExchange(chatID string, tentative models.MessageID, userMsg, reply models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.findChat(chatID)
	if chat == nil {
		return
	}
	kept := chat.Messages[:0]
	for _, m := range chat.Messages {
		if m.ID != tentative {
			kept = append(kept, m)
		}
	}
	chat.Messages = kept
	appendOrReplace(chat, userMsg)
	appendOrReplace(chat, reply)
	s.notifyLocked()
}

// PurgeTentative removes every tentative message from the chat and reports
// how many were removed. Rollback path for a failed send.
func (s *Store) PurgeTentative(chatID string) int {
	return s.RemoveMessages(chatID, func(m models.Message) bool {
		return m.ID.Tentative()
	})
}

// UpsertDocument inserts or overwrites a document by identifier
func (s *Store) UpsertDocument(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == doc.ID {
			s.documents[i] = doc
			s.notifyLocked()
			return
		}
	}
	s.documents = append(s.documents, doc)
	s.notifyLocked()
}

// RemoveDocument deletes a document by identifier
func (s *Store) RemoveDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			s.notifyLocked()
			return
		}
	}
}

// Documents returns a copy of the document collection
func (s *Store) Documents() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Document(nil), s.documents...)
}

// DocumentsSettled reports whether every document's status is terminal (or
// the collection is empty). This is the poller's convergence predicate.
func (s *Store) DocumentsSettled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if !d.Status.Terminal() {
			return false
		}
	}
	return true
}

// PublishedSettings returns the last server-confirmed settings copy
func (s *Store) PublishedSettings() (models.Settings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.published == nil {
		return nil, false
	}
	return s.published.Clone(), true
}

// DraftSettings returns the local draft copy
func (s *Store) DraftSettings() (models.Settings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft == nil {
		return nil, false
	}
	return s.draft.Clone(), true
}

// DraftDirty reports whether the draft differs from the published copy
func (s *Store) DraftDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft == nil {
		return false
	}
	return !s.published.Equal(s.draft)
}

// MergeDraft merges partial fields into the draft. It refuses (returning
// false, mutating nothing) until a published copy has been loaded; the
// store never fabricates a settings object.
func (s *Store) MergeDraft(partial models.Settings) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return false
	}
	for k, v := range partial {
		s.draft[k] = v
	}
	s.notifyLocked()
	return true
}

// PromoteDraft records a successful publish: the snapshot that was sent
// becomes the published copy. The draft value is left alone. It already
// equals the snapshot unless the user kept editing mid-flight, and unsaved
// edits are never discarded.
func (s *Store) PromoteDraft(sent models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = sent.Clone()
	s.notifyLocked()
}

// Watch returns a channel that receives a coalesced signal after every store
// mutation. Each caller gets its own channel; subscribers last for the life
// of the session and are never removed.
func (s *Store) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.watchers = append(s.watchers, ch)
	return ch
}

func (s *Store) notifyLocked() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) findChat(id string) *models.Chat {
	for i := range s.chats {
		if s.chats[i].ID == id {
			return &s.chats[i]
		}
	}
	return nil
}

func appendOrReplace(chat *models.Chat, msg models.Message) {
	for i := range chat.Messages {
		if chat.Messages[i].ID == msg.ID {
			chat.Messages[i] = msg
			return
		}
	}
	chat.Messages = append(chat.Messages, msg)
}

func cloneChats(chats []models.Chat) []models.Chat {
	out := make([]models.Chat, len(chats))
	copy(out, chats)
	for i := range out {
		out[i].Messages = append([]models.Message(nil), out[i].Messages...)
	}
	return out
}
