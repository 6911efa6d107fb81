package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"

	"github.com/workbench-ai/cli/internal/models"
)

const maxFetchBytes = 4 << 20

// Processor moves documents from queued through processing to a terminal
// status in the background.
type Processor struct {
	queries *Queries
	log     *slog.Logger
	delay   time.Duration
	sweep   time.Duration
	client  *http.Client
	nudge   chan struct{}
}

// NewProcessor creates a worker over the given query layer. delay is the
// minimum time a document spends in flight before reaching a terminal
// status, so polling clients can observe the intermediate states.
func NewProcessor(queries *Queries, delay time.Duration, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		queries: queries,
		log:     log,
		delay:   delay,
		sweep:   500 * time.Millisecond,
		client:  &http.Client{Timeout: 30 * time.Second},
		nudge:   make(chan struct{}, 1),
	}
}

// Nudge wakes the worker immediately instead of waiting for the next sweep
func (p *Processor) Nudge() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// Run works the document queue until ctx is cancelled. The database is the
// queue: each sweep picks up whatever is pending, including documents left
// mid-flight by an interrupted run.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.sweep)
	defer ticker.Stop()

	for {
		p.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-p.nudge:
		case <-ticker.C:
		}
	}
}

func (p *Processor) drain(ctx context.Context) {
	ids, err := p.queries.PendingDocuments()
	if err != nil {
		p.log.Warn("failed to list pending documents", "error", err)
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		p.process(ctx, id)
	}
}

func (p *Processor) process(ctx context.Context, id string) {
	doc, err := p.queries.Document(id)
	if err != nil {
		p.log.Warn("document vanished before processing", "document_id", id, "error", err)
		return
	}
	if doc.Status.Terminal() {
		return
	}
	if err := p.queries.UpdateDocumentStatus(id, models.StatusProcessing, ""); err != nil {
		p.log.Warn("failed to mark document processing", "document_id", id, "error", err)
		return
	}

	start := time.Now()
	text, err := p.extract(ctx, doc)

	if remaining := p.delay - time.Since(start); remaining > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(remaining):
		}
	}

	if err != nil {
		p.log.Warn("document processing failed", "document_id", id, "source", doc.Source, "error", err)
		if uerr := p.queries.UpdateDocumentStatus(id, models.StatusFailed, err.Error()); uerr != nil {
			p.log.Error("failed to record document failure", "document_id", id, "error", uerr)
		}
		return
	}

	detail := fmt.Sprintf("%d characters extracted", len(text))
	if err := p.queries.UpdateDocumentStatus(id, models.StatusCompleted, detail); err != nil {
		p.log.Error("failed to record document completion", "document_id", id, "error", err)
		return
	}
	p.log.Info("document processed", "document_id", id, "source", doc.Source, "characters", len(text))
}

func (p *Processor) extract(ctx context.Context, doc *models.Document) (string, error) {
	if strings.HasPrefix(doc.Source, "http://") || strings.HasPrefix(doc.Source, "https://") {
		return p.fetchURL(ctx, doc.Source)
	}

	key, err := p.queries.DocumentStorageKey(doc.ID)
	if err != nil {
		return "", err
	}
	upload, err := p.queries.Upload(key)
	if err != nil {
		return "", fmt.Errorf("loading upload %s: %w", key, err)
	}
	if len(upload.Data) == 0 {
		return "", fmt.Errorf("no bytes received for upload %s", key)
	}
	return extractText(upload.Name, upload.Data)
}

func (p *Processor) fetchURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return extractTextFromHTML(string(body)), nil
	}
	return string(body), nil
}

// extractText pulls plain text out of an uploaded file based on extension
func extractText(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".epub":
		return parsePaged(data)
	case ".txt", ".md", ".csv", ".json", "":
		return string(data), nil
	case ".html", ".htm":
		return extractTextFromHTML(string(data)), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(name))
	}
}

// parsePaged extracts text from page-oriented formats (PDF, EPUB)
func parsePaged(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	var textParts []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			textParts = append(textParts, text)
		}
	}
	return strings.Join(textParts, "\n\n"), nil
}

// extractTextFromHTML performs basic HTML tag removal
func extractTextFromHTML(html string) string {
	var result strings.Builder
	inTag := false
	for _, r := range html {
		if r == '<' {
			inTag = true
			continue
		}
		if r == '>' {
			inTag = false
			result.WriteRune(' ')
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}
	return result.String()
}
