package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/store"
)

type docsMode int

const (
	docsBrowsing docsMode = iota
	docsAddingURL
	docsEnteringPath
	docsConfirmingDelete
)

type urlAddedMsg struct{ err error }

type uploadDoneMsg struct{ err error }

type docDeletedMsg struct{ err error }

type refreshDoneMsg struct{ err error }

// documentsModel lists the knowledge base and owns ingestion: file uploads,
// URL submissions, deletions, and manual refreshes.
type documentsModel struct {
	ctx     context.Context
	session *session.Session
	store   *store.Store

	mode     docsMode
	cursor   int
	deleteID string
	input    textinput.Model
	busy     bool
	flash    string
}

func newDocumentsModel(ctx context.Context, sess *session.Session) documentsModel {
	ti := textinput.New()
	ti.CharLimit = 500
	ti.Width = 60
	return documentsModel{ctx: ctx, session: sess, store: sess.Store(), input: ti}
}

func (d documentsModel) typing() bool {
	return d.mode != docsBrowsing
}

func (d documentsModel) update(msg tea.Msg) (documentsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return d.handleKey(msg)

	case storeChangedMsg:
		d.cursor = clampCursor(d.cursor, len(d.store.Documents()))
		d.flash = ""
		return d, nil

	case urlAddedMsg, uploadDoneMsg, docDeletedMsg:
		d.busy = false
		return d, nil

	case refreshDoneMsg:
		d.busy = false
		if msg.err != nil {
			d.flash = "refresh failed, showing last known state"
		}
		return d, nil
	}

	if d.mode == docsAddingURL || d.mode == docsEnteringPath {
		var cmd tea.Cmd
		d.input, cmd = d.input.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d documentsModel) handleKey(msg tea.KeyMsg) (documentsModel, tea.Cmd) {
	switch d.mode {
	case docsAddingURL, docsEnteringPath:
		switch msg.String() {
		case "esc":
			d.mode = docsBrowsing
			return d, nil
		case "enter":
			value := strings.TrimSpace(d.input.Value())
			if value == "" || d.busy {
				return d, nil
			}
			adding := d.mode == docsAddingURL
			d.mode = docsBrowsing
			d.busy = true
			if adding {
				return d, d.addURL(value)
			}
			return d, d.upload(value)
		}
		var cmd tea.Cmd
		d.input, cmd = d.input.Update(msg)
		return d, cmd

	case docsConfirmingDelete:
		if msg.String() == "y" && !d.busy {
			id := d.deleteID
			d.mode = docsBrowsing
			d.busy = true
			return d, d.deleteDocument(id)
		}
		d.mode = docsBrowsing
		return d, nil
	}

	docs := d.store.Documents()
	switch msg.String() {
	case "j", "down":
		d.cursor = clampCursor(d.cursor+1, len(docs))
	case "k", "up":
		d.cursor = clampCursor(d.cursor-1, len(docs))
	case "a":
		d.mode = docsAddingURL
		d.input.Prompt = "url: "
		d.input.SetValue("")
		d.input.Focus()
		return d, textinput.Blink
	case "u":
		d.mode = docsEnteringPath
		d.input.Prompt = "path: "
		d.input.SetValue("")
		d.input.Focus()
		return d, textinput.Blink
	case "d":
		if d.cursor < len(docs) {
			d.mode = docsConfirmingDelete
			d.deleteID = docs[d.cursor].ID
		}
	case "r":
		if !d.busy {
			d.busy = true
			return d, d.refresh()
		}
	}
	return d, nil
}

func (d documentsModel) addURL(url string) tea.Cmd {
	ctx, sess := d.ctx, d.session
	return func() tea.Msg {
		_, err := sess.AddURL(ctx, url)
		return urlAddedMsg{err: err}
	}
}

func (d documentsModel) upload(path string) tea.Cmd {
	ctx, sess := d.ctx, d.session
	return func() tea.Msg {
		_, err := sess.UploadDocument(ctx, path)
		return uploadDoneMsg{err: err}
	}
}

func (d documentsModel) deleteDocument(id string) tea.Cmd {
	ctx, sess := d.ctx, d.session
	return func() tea.Msg {
		return docDeletedMsg{err: sess.DeleteDocument(ctx, id)}
	}
}

func (d documentsModel) refresh() tea.Cmd {
	ctx, sess := d.ctx, d.session
	return func() tea.Msg {
		return refreshDoneMsg{err: sess.RefreshDocuments(ctx)}
	}
}

func statusGlyph(status models.DocumentStatus) string {
	switch status {
	case models.StatusQueued:
		return statusQueuedStyle.Render("○")
	case models.StatusProcessing:
		return statusProcessingStyle.Render("◐")
	case models.StatusCompleted:
		return statusCompletedStyle.Render("●")
	case models.StatusFailed:
		return statusFailedStyle.Render("✗")
	}
	return "?"
}

func statusLabel(status models.DocumentStatus) string {
	switch status {
	case models.StatusQueued:
		return statusQueuedStyle.Render(string(status))
	case models.StatusProcessing:
		return statusProcessingStyle.Render(string(status))
	case models.StatusCompleted:
		return statusCompletedStyle.Render(string(status))
	case models.StatusFailed:
		return statusFailedStyle.Render(string(status))
	}
	return string(status)
}

func (d documentsModel) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Documents"))
	if !d.store.DocumentsSettled() {
		b.WriteString("  " + statusProcessingStyle.Render("processing..."))
	}
	b.WriteString("\n\n")

	docs := d.store.Documents()
	if len(docs) == 0 {
		b.WriteString(dimStyle.Render("  nothing ingested yet, press u to upload a file or a to add a URL"))
		b.WriteString("\n")
	}
	for i, doc := range docs {
		prefix := "  "
		source := doc.Source
		if i == d.cursor {
			prefix = "> "
			source = selectedStyle.Render(source)
		}
		fmt.Fprintf(&b, "%s%s %s  %s  %s\n", prefix, statusGlyph(doc.Status), source,
			statusLabel(doc.Status), dimStyle.Render(doc.CreatedAt.Local().Format("Jan 2 15:04")))
	}

	if d.cursor < len(docs) && docs[d.cursor].Detail != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  " + docs[d.cursor].Detail))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch d.mode {
	case docsAddingURL, docsEnteringPath:
		b.WriteString("  " + d.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("  enter submit · esc cancel"))
	case docsConfirmingDelete:
		source := d.deleteID
		for _, doc := range docs {
			if doc.ID == d.deleteID {
				source = doc.Source
				break
			}
		}
		b.WriteString(noticeErrorStyle.Render(fmt.Sprintf("  delete %q? y/n", source)))
	default:
		if d.flash != "" {
			b.WriteString(noticeErrorStyle.Render("  " + d.flash))
		} else {
			b.WriteString(helpStyle.Render("  u upload · a add url · d delete · r refresh"))
		}
	}
	return b.String()
}
