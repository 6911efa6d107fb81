package sandbox

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/workbench-ai/cli/internal/models"
)

const maxUploadBytes = 64 << 20

type createChatRequest struct {
	Title string `json:"title" binding:"required"`
}

type createMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type feedbackRequest struct {
	Rating   string `json:"rating" binding:"required,oneof=like dislike"`
	Comment  string `json:"comment"`
	Category string `json:"category"`
}

type uploadSlotRequest struct {
	Name        string `json:"name" binding:"required"`
	Size        int64  `json:"size" binding:"gt=0"`
	ContentType string `json:"content_type"`
}

type confirmUploadRequest struct {
	StorageKey string `json:"storage_key" binding:"required"`
}

type processURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// dbError maps a query failure to 404 for missing rows, 500 otherwise
func dbError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// handleBundle returns everything a project view needs in one response
func handleBundle(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		project, err := q.Project(projectID)
		if err != nil {
			dbError(c, err, "project not found")
			return
		}

		chats, err := q.ProjectChats(projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		for i := range chats {
			messages, err := q.ChatMessages(chats[i].ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			chats[i].Messages = messages
		}
		if chats == nil {
			chats = []models.Chat{}
		}

		documents, err := q.ProjectDocuments(projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if documents == nil {
			documents = []models.Document{}
		}

		settings, err := q.ProjectSettings(projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"project":   project,
			"chats":     chats,
			"documents": documents,
			"settings":  settings,
		})
	}
}

func handleCreateChat(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		if _, err := q.Project(projectID); err != nil {
			dbError(c, err, "project not found")
			return
		}

		var req createChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		chat := models.Chat{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Title:     req.Title,
			CreatedAt: time.Now().UTC(),
		}
		if err := q.InsertChat(chat); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, chat)
	}
}

func handleDeleteChat(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := q.DeleteChat(c.Param("id")); err != nil {
			dbError(c, err, "chat not found")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleCreateMessage stores the user's message, generates the assistant
// reply, and returns both with their durable identifiers. Nothing persists
// when reply generation fails, so the exchange is all or nothing.
func handleCreateMessage(q *Queries, responder Responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		chat, err := q.Chat(c.Param("id"))
		if err != nil {
			dbError(c, err, "chat not found")
			return
		}

		var req createMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		history, err := q.ChatMessages(chat.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		replyText, err := responder.Respond(c.Request.Context(), history, req.Content)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("assistant failed: %v", err)})
			return
		}

		userAt := time.Now().UTC()
		replyAt := time.Now().UTC()
		if !replyAt.After(userAt) {
			replyAt = userAt.Add(time.Microsecond)
		}

		user := models.Message{
			ID:        models.DurableID(uuid.NewString()),
			ChatID:    chat.ID,
			Role:      models.RoleUser,
			Content:   req.Content,
			CreatedAt: userAt,
		}
		reply := models.Message{
			ID:        models.DurableID(uuid.NewString()),
			ChatID:    chat.ID,
			Role:      models.RoleAssistant,
			Content:   replyText,
			CreatedAt: replyAt,
		}
		if err := q.InsertExchange(user, reply); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_message": user,
			"ai_response":  reply,
		})
	}
}

func handleFeedback(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req feedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := q.InsertFeedback(c.Param("id"), models.Rating(req.Rating), req.Comment, req.Category); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}

// handleRequestUpload grants a one-time upload destination. The returned
// URL is relative; clients resolve it against the server they dialed.
func handleRequestUpload(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		if _, err := q.Project(projectID); err != nil {
			dbError(c, err, "project not found")
			return
		}

		var req uploadSlotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		key := uuid.NewString()
		if err := q.CreateUpload(key, projectID, req.Name, req.Size, req.ContentType); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"upload_url":  "/v1/uploads/" + key,
			"storage_key": key,
		})
	}
}

func handleUploadPut(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload body"})
			return
		}
		if err := q.StoreUploadData(c.Param("key"), data); err != nil {
			dbError(c, err, "unknown upload slot")
			return
		}
		c.Status(http.StatusOK)
	}
}

// handleConfirmUpload turns a completed upload into a queued document.
// Confirming a slot whose bytes never arrived is a conflict, not a failure.
func handleConfirmUpload(q *Queries, processor *Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")

		var req confirmUploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		upload, err := q.Upload(req.StorageKey)
		if err != nil {
			dbError(c, err, "unknown storage key")
			return
		}
		if upload.ProjectID != projectID {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown storage key"})
			return
		}
		if len(upload.Data) == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "upload incomplete"})
			return
		}

		doc := models.Document{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Source:    upload.Name,
			Status:    models.StatusQueued,
			CreatedAt: time.Now().UTC(),
		}
		if err := q.InsertDocument(doc, upload.StorageKey); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		processor.Nudge()
		c.JSON(http.StatusCreated, doc)
	}
}

func handleProcessURL(q *Queries, processor *Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		if _, err := q.Project(projectID); err != nil {
			dbError(c, err, "project not found")
			return
		}

		var req processURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		doc := models.Document{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Source:    req.URL,
			Status:    models.StatusQueued,
			CreatedAt: time.Now().UTC(),
		}
		if err := q.InsertDocument(doc, ""); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		processor.Nudge()
		c.JSON(http.StatusCreated, doc)
	}
}

func handleDeleteDocument(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := q.DeleteDocument(c.Param("id")); err != nil {
			dbError(c, err, "document not found")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleListDocuments(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		if _, err := q.Project(projectID); err != nil {
			dbError(c, err, "project not found")
			return
		}
		documents, err := q.ProjectDocuments(projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if documents == nil {
			documents = []models.Document{}
		}
		c.JSON(http.StatusOK, documents)
	}
}

// handleUpdateSettings replaces the project's settings wholesale
func handleUpdateSettings(q *Queries) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		if _, err := q.Project(projectID); err != nil {
			dbError(c, err, "project not found")
			return
		}

		var settings models.Settings
		if err := c.ShouldBindJSON(&settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := q.SaveSettings(projectID, settings); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}
