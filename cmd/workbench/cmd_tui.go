package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/tui"
)

// runTUI opens the interactive terminal client. The convergence poller runs
// alongside the UI for the whole session and is cancelled with it.
func runTUI(cmd *cobra.Command, args []string) {
	log, closeLog := setupLogger(true)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, st := newSession(log)

	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	err := sess.LoadProject(loadCtx)
	loadCancel()
	if err != nil {
		fatalf("could not load project %q from %s: %v\nIs the server running? Try: workbench serve",
			cfg.Workspace.ProjectID, cfg.Server.BaseURL, err)
	}

	poller := session.NewPoller(sess, st, pollInterval(), log)
	go poller.Run(ctx)

	p := tea.NewProgram(tui.New(ctx, sess), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatalf("error running UI: %v", err)
	}
}
