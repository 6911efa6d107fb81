package api

import "github.com/workbench-ai/cli/internal/models"

// Bundle is everything a project view needs, loaded in one round trip
type Bundle struct {
	Project   models.Project    `json:"project"`
	Chats     []models.Chat     `json:"chats"`
	Documents []models.Document `json:"documents"`
	Settings  models.Settings   `json:"settings"`
}

// MessageExchange is the server's answer to a created message: the stored
// user message and the generated assistant reply, both with durable
// identifiers.
type MessageExchange struct {
	UserMessage models.Message `json:"user_message"`
	AIResponse  models.Message `json:"ai_response"`
}

// UploadSlot is a one-time destination for a direct file upload
type UploadSlot struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

type createChatRequest struct {
	Title string `json:"title"`
}

type createMessageRequest struct {
	Content string `json:"content"`
}

type feedbackRequest struct {
	Rating   models.Rating `json:"rating"`
	Comment  string        `json:"comment,omitempty"`
	Category string        `json:"category,omitempty"`
}

type uploadSlotRequest struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type confirmUploadRequest struct {
	StorageKey string `json:"storage_key"`
}

type processURLRequest struct {
	URL string `json:"url"`
}
