package tui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/store"
)

type settingsMode int

const (
	settingsBrowsing settingsMode = iota
	settingsEditingValue
	settingsEnteringKey
	settingsEnteringNewValue
)

type publishDoneMsg struct{ err error }

// settingsModel edits the local settings draft and publishes it wholesale.
// Edits never touch the network until publish.
type settingsModel struct {
	ctx     context.Context
	session *session.Session
	store   *store.Store

	mode    settingsMode
	cursor  int
	editKey string
	input   textinput.Model
	busy    bool
}

func newSettingsModel(ctx context.Context, sess *session.Session) settingsModel {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40
	return settingsModel{ctx: ctx, session: sess, store: sess.Store(), input: ti}
}

func (s settingsModel) typing() bool {
	return s.mode != settingsBrowsing
}

func (s settingsModel) draftKeys() []string {
	draft, ok := s.store.DraftSettings()
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(draft))
	for k := range draft {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)

	case storeChangedMsg:
		s.cursor = clampCursor(s.cursor, len(s.draftKeys()))
		return s, nil

	case publishDoneMsg:
		s.busy = false
		return s, nil
	}

	if s.mode != settingsBrowsing {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s settingsModel) handleKey(msg tea.KeyMsg) (settingsModel, tea.Cmd) {
	switch s.mode {
	case settingsEditingValue, settingsEnteringNewValue:
		switch msg.String() {
		case "esc":
			s.mode = settingsBrowsing
			return s, nil
		case "enter":
			raw := strings.TrimSpace(s.input.Value())
			s.mode = settingsBrowsing
			if raw != "" {
				s.session.UpdateDraft(models.Settings{s.editKey: parseSettingValue(raw)})
			}
			return s, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd

	case settingsEnteringKey:
		switch msg.String() {
		case "esc":
			s.mode = settingsBrowsing
			return s, nil
		case "enter":
			key := strings.TrimSpace(s.input.Value())
			if key == "" {
				return s, nil
			}
			s.editKey = key
			s.mode = settingsEnteringNewValue
			s.input.Prompt = key + ": "
			s.input.SetValue("")
			return s, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}

	keys := s.draftKeys()
	switch msg.String() {
	case "j", "down":
		s.cursor = clampCursor(s.cursor+1, len(keys))
	case "k", "up":
		s.cursor = clampCursor(s.cursor-1, len(keys))
	case "e", "enter":
		if s.cursor < len(keys) {
			draft, _ := s.store.DraftSettings()
			s.editKey = keys[s.cursor]
			s.mode = settingsEditingValue
			s.input.Prompt = s.editKey + ": "
			s.input.SetValue(formatSettingValue(draft[s.editKey]))
			s.input.Focus()
			return s, textinput.Blink
		}
	case "a":
		s.mode = settingsEnteringKey
		s.input.Prompt = "key: "
		s.input.SetValue("")
		s.input.Focus()
		return s, textinput.Blink
	case "p", "ctrl+s":
		if !s.busy {
			s.busy = true
			return s, s.publish()
		}
	}
	return s, nil
}

func (s settingsModel) publish() tea.Cmd {
	ctx, sess := s.ctx, s.session
	return func() tea.Msg {
		return publishDoneMsg{err: sess.PublishSettings(ctx)}
	}
}

// parseSettingValue keeps edited values JSON-shaped: numbers and booleans
// stay typed, everything else is a string.
func parseSettingValue(raw string) any {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	return raw
}

func formatSettingValue(v any) string {
	return fmt.Sprintf("%v", v)
}

func (s settingsModel) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings"))
	if s.store.DraftDirty() {
		b.WriteString("  " + dirtyStyle.Render("unpublished changes"))
	}
	b.WriteString("\n\n")

	draft, ok := s.store.DraftSettings()
	if !ok {
		b.WriteString(dimStyle.Render("  settings not loaded yet"))
		return b.String()
	}

	keys := s.draftKeys()
	if len(keys) == 0 {
		b.WriteString(dimStyle.Render("  no settings, press a to add one"))
		b.WriteString("\n")
	}
	for i, key := range keys {
		prefix := "  "
		name := fmt.Sprintf("%-24s", key)
		if i == s.cursor {
			prefix = "> "
			name = selectedStyle.Render(name)
		}
		fmt.Fprintf(&b, "%s%s %s\n", prefix, name, formatSettingValue(draft[key]))
	}

	b.WriteString("\n")
	switch s.mode {
	case settingsEditingValue, settingsEnteringNewValue, settingsEnteringKey:
		b.WriteString("  " + s.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("  enter apply · esc cancel"))
	default:
		b.WriteString(helpStyle.Render("  e edit · a add · p publish"))
	}
	return b.String()
}
