package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/store"
)

type chatsMode int

const (
	chatsBrowsing chatsMode = iota
	chatsNaming
	chatsConfirmingDelete
)

type chatCreatedMsg struct{ err error }

type chatDeletedMsg struct{ err error }

// chatsModel lists the project's chats newest first and owns chat creation
// and deletion.
type chatsModel struct {
	ctx     context.Context
	session *session.Session
	store   *store.Store

	mode     chatsMode
	cursor   int
	deleteID string
	input    textinput.Model
	busy     bool
}

func newChatsModel(ctx context.Context, sess *session.Session) chatsModel {
	ti := textinput.New()
	ti.Prompt = "title: "
	ti.CharLimit = 80
	ti.Width = 40
	return chatsModel{ctx: ctx, session: sess, store: sess.Store(), input: ti}
}

func (c chatsModel) typing() bool {
	return c.mode != chatsBrowsing
}

func (c chatsModel) update(msg tea.Msg) (chatsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return c.handleKey(msg)

	case storeChangedMsg:
		c.cursor = clampCursor(c.cursor, len(c.store.Chats()))
		return c, nil

	case chatCreatedMsg:
		c.busy = false
		if msg.err == nil {
			// CreateChat already selected the new chat, jump into it
			return c, func() tea.Msg { return chatOpenedMsg{} }
		}
		return c, nil

	case chatDeletedMsg:
		c.busy = false
		return c, nil
	}

	if c.mode == chatsNaming {
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return c, cmd
	}
	return c, nil
}

func (c chatsModel) handleKey(msg tea.KeyMsg) (chatsModel, tea.Cmd) {
	switch c.mode {
	case chatsNaming:
		switch msg.String() {
		case "esc":
			c.mode = chatsBrowsing
			return c, nil
		case "enter":
			title := strings.TrimSpace(c.input.Value())
			if title == "" || c.busy {
				return c, nil
			}
			c.mode = chatsBrowsing
			c.busy = true
			return c, c.createChat(title)
		}
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return c, cmd

	case chatsConfirmingDelete:
		if msg.String() == "y" && !c.busy {
			id := c.deleteID
			c.mode = chatsBrowsing
			c.busy = true
			return c, c.deleteChat(id)
		}
		c.mode = chatsBrowsing
		return c, nil
	}

	chats := c.store.Chats()
	switch msg.String() {
	case "j", "down":
		c.cursor = clampCursor(c.cursor+1, len(chats))
	case "k", "up":
		c.cursor = clampCursor(c.cursor-1, len(chats))
	case "enter":
		if c.cursor < len(chats) {
			if err := c.session.SelectChat(chats[c.cursor].ID); err == nil {
				return c, func() tea.Msg { return chatOpenedMsg{} }
			}
		}
	case "n":
		c.mode = chatsNaming
		c.input.SetValue("")
		c.input.Focus()
		return c, textinput.Blink
	case "d":
		if c.cursor < len(chats) {
			c.mode = chatsConfirmingDelete
			c.deleteID = chats[c.cursor].ID
		}
	}
	return c, nil
}

func (c chatsModel) createChat(title string) tea.Cmd {
	ctx, sess := c.ctx, c.session
	return func() tea.Msg {
		_, err := sess.CreateChat(ctx, title)
		return chatCreatedMsg{err: err}
	}
}

func (c chatsModel) deleteChat(chatID string) tea.Cmd {
	ctx, sess := c.ctx, c.session
	return func() tea.Msg {
		return chatDeletedMsg{err: sess.DeleteChat(ctx, chatID)}
	}
}

func (c chatsModel) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Chats"))
	b.WriteString("\n\n")

	chats := c.store.Chats()
	if len(chats) == 0 {
		b.WriteString(dimStyle.Render("  no chats yet, press n to start one"))
		b.WriteString("\n")
	}
	active, hasActive := c.session.ActiveChat()
	for i, chat := range chats {
		prefix := "  "
		title := chat.Title
		if i == c.cursor {
			prefix = "> "
			title = selectedStyle.Render(title)
		}
		marker := " "
		if hasActive && chat.ID == active.ID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%s %s  %s\n", prefix, marker, title,
			dimStyle.Render(chat.CreatedAt.Local().Format("Jan 2 15:04")))
	}

	b.WriteString("\n")
	switch c.mode {
	case chatsNaming:
		b.WriteString("  new chat  ")
		b.WriteString(c.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("  enter create · esc cancel"))
	case chatsConfirmingDelete:
		title := c.deleteID
		if chat, ok := c.store.Chat(c.deleteID); ok {
			title = chat.Title
		}
		b.WriteString(noticeErrorStyle.Render(fmt.Sprintf("  delete %q? y/n", title)))
	default:
		b.WriteString(helpStyle.Render("  j/k move · enter open · n new · d delete"))
	}
	return b.String()
}

func clampCursor(cursor, n int) int {
	if n == 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}
