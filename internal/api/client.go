package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/workbench-ai/cli/internal/models"
)

// Client wraps workspace API interactions
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new workspace API client. Requests carry no timeout of
// their own; callers bound them through the context.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8854"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// LoadBundle fetches the full project bundle: project, chats with messages,
// documents, and settings.
func (c *Client) LoadBundle(ctx context.Context, projectID string) (*Bundle, error) {
	var bundle Bundle
	path := fmt.Sprintf("/v1/projects/%s/bundle", projectID)
	if err := c.doJSON(ctx, "load project", http.MethodGet, path, nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// CreateChat creates a chat and returns it with its durable identifier
func (c *Client) CreateChat(ctx context.Context, projectID, title string) (*models.Chat, error) {
	var chat models.Chat
	path := fmt.Sprintf("/v1/projects/%s/chats", projectID)
	if err := c.doJSON(ctx, "create chat", http.MethodPost, path, createChatRequest{Title: title}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// DeleteChat deletes a chat by identifier
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	path := fmt.Sprintf("/v1/chats/%s", chatID)
	return c.doJSON(ctx, "delete chat", http.MethodDelete, path, nil, nil)
}

// CreateMessage submits the user's content and returns the confirmed user
// message together with the generated assistant reply. The request carries
// only the content; identifiers are assigned server-side.
func (c *Client) CreateMessage(ctx context.Context, chatID, content string) (*MessageExchange, error) {
	var exchange MessageExchange
	path := fmt.Sprintf("/v1/chats/%s/messages", chatID)
	if err := c.doJSON(ctx, "create message", http.MethodPost, path, createMessageRequest{Content: content}, &exchange); err != nil {
		return nil, err
	}
	return &exchange, nil
}

// SubmitFeedback records a rating for a message
func (c *Client) SubmitFeedback(ctx context.Context, messageID models.MessageID, rating models.Rating, comment, category string) error {
	path := fmt.Sprintf("/v1/messages/%s/feedback", messageID.Value())
	req := feedbackRequest{Rating: rating, Comment: comment, Category: category}
	return c.doJSON(ctx, "submit feedback", http.MethodPost, path, req, nil)
}

// RequestUploadSlot asks the server for a direct-upload destination
func (c *Client) RequestUploadSlot(ctx context.Context, projectID, name string, size int64, contentType string) (*UploadSlot, error) {
	var slot UploadSlot
	path := fmt.Sprintf("/v1/projects/%s/uploads", projectID)
	req := uploadSlotRequest{Name: name, Size: size, ContentType: contentType}
	if err := c.doJSON(ctx, "request upload slot", http.MethodPost, path, req, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Upload transfers raw bytes to an upload slot's destination. The slot URL
// acts as the credential, so no auth header is attached.
func (c *Client) Upload(ctx context.Context, uploadURL string, data io.Reader, size int64, contentType string) error {
	if strings.HasPrefix(uploadURL, "/") {
		uploadURL = c.baseURL + uploadURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, data)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("upload", resp)
	}
	return nil
}

// ConfirmUpload finalizes a completed upload and returns the resulting
// document, typically still in a non-terminal processing status.
func (c *Client) ConfirmUpload(ctx context.Context, projectID, storageKey string) (*models.Document, error) {
	var doc models.Document
	path := fmt.Sprintf("/v1/projects/%s/documents", projectID)
	if err := c.doJSON(ctx, "confirm upload", http.MethodPost, path, confirmUploadRequest{StorageKey: storageKey}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ProcessURL asks the server to ingest a URL into the knowledge base
func (c *Client) ProcessURL(ctx context.Context, projectID, url string) (*models.Document, error) {
	var doc models.Document
	path := fmt.Sprintf("/v1/projects/%s/urls", projectID)
	if err := c.doJSON(ctx, "process url", http.MethodPost, path, processURLRequest{URL: url}, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument deletes a document by identifier
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	path := fmt.Sprintf("/v1/documents/%s", documentID)
	return c.doJSON(ctx, "delete document", http.MethodDelete, path, nil, nil)
}

// RefreshDocuments fetches the full current document collection
func (c *Client) RefreshDocuments(ctx context.Context, projectID string) ([]models.Document, error) {
	var docs []models.Document
	path := fmt.Sprintf("/v1/projects/%s/documents", projectID)
	if err := c.doJSON(ctx, "refresh documents", http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateSettings replaces the project's settings wholesale with the given
// object.
func (c *Client) UpdateSettings(ctx context.Context, projectID string, settings models.Settings) error {
	path := fmt.Sprintf("/v1/projects/%s/settings", projectID)
	return c.doJSON(ctx, "update settings", http.MethodPut, path, settings, nil)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &Error{Op: op, StatusCode: resp.StatusCode}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
