package models

import (
	"reflect"
	"time"
)

// Project represents a workspace project
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chat represents a conversation within a project
type Chat struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages,omitempty"`
}

// Role identifies the author side of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single chat message
type Message struct {
	ID        MessageID  `json:"id"`
	ChatID    string     `json:"chat_id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Author    string     `json:"author,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Citations []Citation `json:"citations,omitempty"`
}

// Citation points an assistant reply at a source document
type Citation struct {
	DocumentID string `json:"document_id"`
	Snippet    string `json:"snippet,omitempty"`
}

// DocumentStatus tracks server-side processing of a document
type DocumentStatus string

const (
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether no further status transition is expected
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents an uploaded or URL-ingested knowledge base entry
type Document struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Source    string         `json:"source"`
	Status    DocumentStatus `json:"status"`
	Detail    string         `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Settings holds a project's configuration as key/value pairs
type Settings map[string]any

// Clone returns an independent copy of the settings map
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether two settings maps hold the same keys and values
func (s Settings) Equal(other Settings) bool {
	return reflect.DeepEqual(s, other)
}

// Actor is the authenticated user on whose behalf operations run
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Rating is a feedback verdict on an assistant message
type Rating string

const (
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
)

// NoticeLevel classifies a transient user-facing notification
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient user-facing notification about an operation outcome
type Notice struct {
	Level NoticeLevel
	Text  string
	Time  time.Time
}
