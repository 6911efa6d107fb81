package tui

import (
	"fmt"
	"strings"

	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/store"
)

// dashboardModel is the landing view: project summary plus navigation.
// It holds no state of its own, every render reads the store fresh.
type dashboardModel struct {
	session *session.Session
	store   *store.Store
}

func newDashboardModel(sess *session.Session) dashboardModel {
	return dashboardModel{session: sess, store: sess.Store()}
}

func (d dashboardModel) view() string {
	var b strings.Builder

	project, ok := d.store.Project()
	if !ok {
		b.WriteString(titleStyle.Render("Workbench"))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("No project loaded."))
		return b.String()
	}

	b.WriteString(titleStyle.Render(project.Name))
	b.WriteString("\n")
	if project.Description != "" {
		b.WriteString(dimStyle.Render(project.Description))
		b.WriteString("\n")
	}
	if actor, ok := d.session.Actor(); ok {
		b.WriteString(dimStyle.Render("signed in as " + actor.Name))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	chats := d.store.Chats()
	docs := d.store.Documents()
	counts := map[models.DocumentStatus]int{}
	for _, doc := range docs {
		counts[doc.Status]++
	}

	b.WriteString(fmt.Sprintf("  chats      %d\n", len(chats)))
	b.WriteString(fmt.Sprintf("  documents  %d", len(docs)))
	if len(docs) > 0 {
		parts := make([]string, 0, 4)
		if n := counts[models.StatusQueued]; n > 0 {
			parts = append(parts, statusQueuedStyle.Render(fmt.Sprintf("%d queued", n)))
		}
		if n := counts[models.StatusProcessing]; n > 0 {
			parts = append(parts, statusProcessingStyle.Render(fmt.Sprintf("%d processing", n)))
		}
		if n := counts[models.StatusCompleted]; n > 0 {
			parts = append(parts, statusCompletedStyle.Render(fmt.Sprintf("%d completed", n)))
		}
		if n := counts[models.StatusFailed]; n > 0 {
			parts = append(parts, statusFailedStyle.Render(fmt.Sprintf("%d failed", n)))
		}
		b.WriteString("  (" + strings.Join(parts, ", ") + ")")
	}
	b.WriteString("\n")

	if !d.store.DocumentsSettled() {
		b.WriteString(statusProcessingStyle.Render("  processing in progress, statuses update automatically"))
		b.WriteString("\n")
	}
	if d.store.DraftDirty() {
		b.WriteString(dirtyStyle.Render("  settings draft has unpublished changes"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString("  1  chats\n")
	b.WriteString("  2  conversation\n")
	b.WriteString("  3  documents\n")
	b.WriteString("  4  settings\n")
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  press a number to jump, q to quit"))

	return b.String()
}
