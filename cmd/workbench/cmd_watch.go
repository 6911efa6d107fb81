package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 750 * time.Millisecond

// runWatch uploads files from a directory as they appear or change. Events
// are debounced per batch, so a file still being written uploads once, after
// it goes quiet.
func runWatch(cmd *cobra.Command, args []string) {
	log, closeLog := setupLogger(false)
	defer closeLog()

	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		fatalf("not a directory: %s", dir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, _ := newSession(log)
	if err := sess.LoadProject(ctx); err != nil {
		fatalf("could not load project: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatalf("error starting watcher: %v", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		fatalf("error watching %s: %v", dir, err)
	}

	fmt.Printf("watching %s (ctrl+c to stop)\n", dir)

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for path := range pending {
			delete(pending, path)
			if _, err := sess.UploadDocument(ctx, path); err != nil {
				fmt.Fprintf(os.Stderr, "failed   %s: %v\n", path, err)
				continue
			}
			fmt.Printf("uploaded %s\n", filepath.Base(path))
		}
		timer = nil
		timerC = nil
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if skipPath(event.Name) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			flush()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// skipPath filters dotfiles and editor temp files out of the watch stream
func skipPath(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}
