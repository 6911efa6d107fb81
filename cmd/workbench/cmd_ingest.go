package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/store"
)

// runUpload pushes the given files into the knowledge base, a few at a time
func runUpload(cmd *cobra.Command, args []string) {
	log, closeLog := setupLogger(false)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, st := newSession(log)
	if err := sess.LoadProject(ctx); err != nil {
		fatalf("could not load project: %v", err)
	}

	type result struct {
		doc models.Document
		err error
	}
	results := make([]result, len(args))

	var g errgroup.Group
	g.SetLimit(flagJobs)
	for i, path := range args {
		g.Go(func() error {
			doc, err := sess.UploadDocument(ctx, path)
			results[i] = result{doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var uploaded []string
	failures := 0
	for i, path := range args {
		if results[i].err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "failed   %s: %v\n", path, results[i].err)
			continue
		}
		uploaded = append(uploaded, results[i].doc.ID)
		fmt.Printf("uploaded %s\n", filepath.Base(path))
	}

	if flagWait && len(uploaded) > 0 {
		if !awaitProcessing(ctx, sess, st, log, uploaded) {
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

// runURL queues the given links for server-side ingestion
func runURL(cmd *cobra.Command, args []string) {
	log, closeLog := setupLogger(false)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, st := newSession(log)
	if err := sess.LoadProject(ctx); err != nil {
		fatalf("could not load project: %v", err)
	}

	var queued []string
	failures := 0
	for _, link := range args {
		doc, err := sess.AddURL(ctx, link)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "failed   %s: %v\n", link, err)
			continue
		}
		queued = append(queued, doc.ID)
		fmt.Printf("queued   %s\n", link)
	}

	if flagWait && len(queued) > 0 {
		if !awaitProcessing(ctx, sess, st, log, queued) {
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

// awaitProcessing blocks until every document reaches a terminal status,
// then reports the tracked ones. Returns false when any of them failed or
// the wait timed out.
func awaitProcessing(ctx context.Context, sess *session.Session, st *store.Store, log *slog.Logger, ids []string) bool {
	waitCtx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	// Subscribe before the first settled check so a refresh landing in
	// between still wakes the loop.
	watch := st.Watch()
	poller := session.NewPoller(sess, st, pollInterval(), log)
	go poller.Run(waitCtx)

	for !st.DocumentsSettled() {
		select {
		case <-waitCtx.Done():
			fmt.Fprintln(os.Stderr, "timed out waiting for processing to finish")
			return false
		case <-watch:
		}
	}

	byID := make(map[string]models.Document, len(st.Documents()))
	for _, doc := range st.Documents() {
		byID[doc.ID] = doc
	}

	ok := true
	for _, id := range ids {
		doc, found := byID[id]
		if !found {
			continue
		}
		if doc.Status == models.StatusFailed {
			ok = false
		}
		fmt.Printf("%-10s %s", doc.Status, doc.Source)
		if doc.Detail != "" {
			fmt.Printf("  (%s)", doc.Detail)
		}
		fmt.Println()
	}
	return ok
}
