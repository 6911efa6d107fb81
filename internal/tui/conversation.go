package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/store"
)

type convMode int

const (
	convComposing convMode = iota
	convBrowsing
)

type sendDoneMsg struct{ err error }

type feedbackDoneMsg struct{ err error }

// conversationModel renders the active chat's transcript and owns the
// composer. Sends are optimistic: the tentative message shows up in the
// transcript immediately and the store swap on completion redraws it.
type conversationModel struct {
	ctx     context.Context
	session *session.Session
	store   *store.Store

	mode    convMode
	input   textinput.Model
	vp      viewport.Model
	spin    spinner.Model
	ready   bool
	sending bool
}

func newConversationModel(ctx context.Context, sess *session.Session) conversationModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle

	return conversationModel{
		ctx:     ctx,
		session: sess,
		store:   sess.Store(),
		mode:    convComposing,
		input:   ti,
		spin:    sp,
	}
}

func (c conversationModel) typing() bool {
	return c.mode == convComposing
}

func (c conversationModel) resize(width, height int) conversationModel {
	vpHeight := height - 2
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !c.ready {
		c.vp = viewport.New(width, vpHeight)
		c.ready = true
	} else {
		c.vp.Width = width
		c.vp.Height = vpHeight
	}
	c.input.Width = width - 4
	return c.refreshContent()
}

func (c conversationModel) update(msg tea.Msg) (conversationModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return c.handleKey(msg)

	case storeChangedMsg:
		return c.refreshContent(), nil

	case sendDoneMsg:
		c.sending = false
		return c.refreshContent(), nil

	case feedbackDoneMsg:
		return c, nil

	case spinner.TickMsg:
		if !c.sending {
			return c, nil
		}
		var cmd tea.Cmd
		c.spin, cmd = c.spin.Update(msg)
		return c, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if c.mode == convComposing {
		c.input, cmd = c.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	c.vp, cmd = c.vp.Update(msg)
	cmds = append(cmds, cmd)
	return c, tea.Batch(cmds...)
}

func (c conversationModel) handleKey(msg tea.KeyMsg) (conversationModel, tea.Cmd) {
	_, hasChat := c.session.ActiveChat()

	if c.mode == convComposing {
		switch msg.String() {
		case "esc":
			c.mode = convBrowsing
			c.input.Blur()
			return c, nil
		case "enter":
			content := strings.TrimSpace(c.input.Value())
			if content == "" || c.sending || !hasChat {
				return c, nil
			}
			c.input.SetValue("")
			c.sending = true
			return c, tea.Batch(c.send(content), c.spin.Tick)
		}
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return c, cmd
	}

	switch msg.String() {
	case "i", "tab", "enter":
		c.mode = convComposing
		c.input.Focus()
		return c, textinput.Blink
	case "j", "down":
		c.vp.LineDown(1)
	case "k", "up":
		c.vp.LineUp(1)
	case "ctrl+d":
		c.vp.HalfViewDown()
	case "ctrl+u":
		c.vp.HalfViewUp()
	case "g":
		c.vp.GotoTop()
	case "G":
		c.vp.GotoBottom()
	case "l":
		return c, c.rateLastReply(models.RatingLike)
	case "x":
		return c, c.rateLastReply(models.RatingDislike)
	}
	return c, nil
}

func (c conversationModel) send(content string) tea.Cmd {
	ctx, sess := c.ctx, c.session
	return func() tea.Msg {
		return sendDoneMsg{err: sess.SendMessage(ctx, content)}
	}
}

// rateLastReply rates the newest confirmed assistant message. Tentative
// entries are skipped because feedback needs a durable identifier.
func (c conversationModel) rateLastReply(rating models.Rating) tea.Cmd {
	chat, ok := c.session.ActiveChat()
	if !ok {
		return nil
	}
	msgs := c.store.Messages(chat.ID)
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != models.RoleAssistant || m.ID.Tentative() {
			continue
		}
		ctx, sess := c.ctx, c.session
		return func() tea.Msg {
			return feedbackDoneMsg{err: sess.SubmitFeedback(ctx, m.ID, rating, "")}
		}
	}
	return nil
}

// refreshContent rebuilds the transcript from the store, keeping the view
// pinned to the bottom when it already was.
func (c conversationModel) refreshContent() conversationModel {
	if !c.ready {
		return c
	}
	follow := c.vp.AtBottom()
	c.vp.SetContent(c.renderTranscript())
	if follow {
		c.vp.GotoBottom()
	}
	return c
}

func (c conversationModel) renderTranscript() string {
	chat, ok := c.session.ActiveChat()
	if !ok {
		return dimStyle.Render("no chat selected, press 1 to pick one")
	}

	wrap := lipgloss.NewStyle().Width(c.vp.Width)
	var b strings.Builder
	for _, msg := range c.store.Messages(chat.ID) {
		stamp := dimStyle.Render(msg.CreatedAt.Local().Format("15:04"))
		switch {
		case msg.ID.Tentative():
			author := msg.Author
			if author == "" {
				author = "you"
			}
			b.WriteString(pendingStyle.Render(author+" (sending)") + " " + stamp)
		case msg.Role == models.RoleAssistant:
			b.WriteString(assistantStyle.Render("assistant") + " " + stamp)
		default:
			author := msg.Author
			if author == "" {
				author = "you"
			}
			b.WriteString(userStyle.Render(author) + " " + stamp)
		}
		b.WriteString("\n")
		b.WriteString(wrap.Render(msg.Content))
		b.WriteString("\n")
		for _, cit := range msg.Citations {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  [%s] %s", cit.DocumentID, cit.Snippet)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return dimStyle.Render("no messages yet")
	}
	return b.String()
}

func (c conversationModel) view() string {
	chat, hasChat := c.session.ActiveChat()

	var b strings.Builder
	if hasChat {
		b.WriteString(titleStyle.Render(chat.Title))
	} else {
		b.WriteString(titleStyle.Render("Conversation"))
	}
	if c.sending {
		b.WriteString("  " + c.spin.View() + pendingStyle.Render("waiting for reply"))
	}
	b.WriteString("\n")

	if c.ready {
		b.WriteString(c.vp.View())
	} else {
		b.WriteString(dimStyle.Render("loading..."))
	}
	b.WriteString("\n")

	switch {
	case !hasChat:
		b.WriteString(helpStyle.Render("press 1 to choose a chat"))
	case c.mode == convComposing:
		b.WriteString(c.input.View())
	default:
		b.WriteString(helpStyle.Render("i compose · j/k scroll · l like · x dislike reply"))
	}
	return b.String()
}
