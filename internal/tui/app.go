// Package tui renders the workspace client in the terminal. Every view
// reads straight from the session's store; background work (sends, polling,
// uploads) lands there and wakes the render loop through the store's watch
// channel, so the screen always shows the store's current truth.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/session"
)

type viewID int

const (
	viewDashboard viewID = iota
	viewChats
	viewConversation
	viewDocuments
	viewSettings
)

// storeChangedMsg wakes the UI after any store mutation
type storeChangedMsg struct{}

// noticeMsg carries a transient operation outcome to the status bar
type noticeMsg models.Notice

type noticeExpiredMsg struct{ at time.Time }

// chatOpenedMsg asks the root model to switch to the conversation view
type chatOpenedMsg struct{}

// Model is the root of the UI: one tab per view over a single session
type Model struct {
	watch   <-chan struct{}
	notices <-chan models.Notice

	active viewID
	width  int
	height int

	dashboard    dashboardModel
	chats        chatsModel
	conversation conversationModel
	documents    documentsModel
	settings     settingsModel

	notice    models.Notice
	noticeAt  time.Time
	hasNotice bool
}

// New builds the root model over a loaded session
func New(ctx context.Context, sess *session.Session) Model {
	return Model{
		watch:        sess.Store().Watch(),
		notices:      sess.Notices(),
		active:       viewDashboard,
		dashboard:    newDashboardModel(sess),
		chats:        newChatsModel(ctx, sess),
		conversation: newConversationModel(ctx, sess),
		documents:    newDocumentsModel(ctx, sess),
		settings:     newSettingsModel(ctx, sess),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.watch), waitForNotice(m.notices))
}

// waitForChange blocks on the store's coalesced watch channel and re-arms
// after every wakeup.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func waitForNotice(ch <-chan models.Notice) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-ch)
	}
}

func expireNotice(at time.Time) tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return noticeExpiredMsg{at: at}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.conversation = m.conversation.resize(msg.Width, m.bodyHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case storeChangedMsg:
		next, cmd := m.broadcast(msg)
		return next, tea.Batch(cmd, waitForChange(next.watch))

	case noticeMsg:
		m.notice = models.Notice(msg)
		m.noticeAt = m.notice.Time
		m.hasNotice = true
		return m, tea.Batch(waitForNotice(m.notices), expireNotice(m.noticeAt))

	case noticeExpiredMsg:
		if msg.at.Equal(m.noticeAt) {
			m.hasNotice = false
		}
		return m, nil
	}

	return m.broadcast(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if !m.typing() {
		switch msg.String() {
		case "q", "esc":
			if m.active == viewDashboard {
				return m, tea.Quit
			}
			m.active = viewDashboard
			return m, nil
		case "0":
			m.active = viewDashboard
			return m, nil
		case "1":
			m.active = viewChats
			return m, nil
		case "2":
			m.active = viewConversation
			m.conversation = m.conversation.refreshContent()
			return m, nil
		case "3":
			m.active = viewDocuments
			return m, nil
		case "4":
			m.active = viewSettings
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.active {
	case viewChats:
		m.chats, cmd = m.chats.update(msg)
	case viewConversation:
		m.conversation, cmd = m.conversation.update(msg)
	case viewDocuments:
		m.documents, cmd = m.documents.update(msg)
	case viewSettings:
		m.settings, cmd = m.settings.update(msg)
	}
	return m, cmd
}

// broadcast hands non-key messages to every view, so async results reach
// their owner even after the user switched views.
func (m Model) broadcast(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.chats, cmd = m.chats.update(msg)
	cmds = append(cmds, cmd)
	m.conversation, cmd = m.conversation.update(msg)
	cmds = append(cmds, cmd)
	m.documents, cmd = m.documents.update(msg)
	cmds = append(cmds, cmd)
	m.settings, cmd = m.settings.update(msg)
	cmds = append(cmds, cmd)

	if _, ok := msg.(chatOpenedMsg); ok {
		m.active = viewConversation
		m.conversation = m.conversation.refreshContent()
	}

	return m, tea.Batch(cmds...)
}

func (m Model) typing() bool {
	switch m.active {
	case viewChats:
		return m.chats.typing()
	case viewConversation:
		return m.conversation.typing()
	case viewDocuments:
		return m.documents.typing()
	case viewSettings:
		return m.settings.typing()
	}
	return false
}

func (m Model) bodyHeight() int {
	// Tabs and status bar take one line each
	h := m.height - 2
	if h < 4 {
		h = 4
	}
	return h
}

func (m Model) View() string {
	var body string
	switch m.active {
	case viewDashboard:
		body = m.dashboard.view()
	case viewChats:
		body = m.chats.view()
	case viewConversation:
		body = m.conversation.view()
	case viewDocuments:
		body = m.documents.view()
	case viewSettings:
		body = m.settings.view()
	}
	return m.renderTabs() + "\n" + body + "\n" + m.renderStatus()
}

func (m Model) renderTabs() string {
	tabs := []struct {
		id    viewID
		label string
	}{
		{viewDashboard, "0 overview"},
		{viewChats, "1 chats"},
		{viewConversation, "2 conversation"},
		{viewDocuments, "3 documents"},
		{viewSettings, "4 settings"},
	}
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t.id == m.active {
			parts = append(parts, activeTabStyle.Render(t.label))
		} else {
			parts = append(parts, tabStyle.Render(t.label))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) renderStatus() string {
	if m.hasNotice {
		switch m.notice.Level {
		case models.NoticeError:
			return noticeErrorStyle.Render(m.notice.Text)
		case models.NoticeSuccess:
			return noticeSuccessStyle.Render(m.notice.Text)
		default:
			return noticeInfoStyle.Render(m.notice.Text)
		}
	}
	return helpStyle.Render("0-4 switch view · q quit")
}
