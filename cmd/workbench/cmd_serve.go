package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/workbench-ai/cli/internal/sandbox"
)

// runServe starts the sandbox server and blocks until interrupted
func runServe(cmd *cobra.Command, args []string) {
	log, closeLog := setupLogger(false)
	defer closeLog()

	gin.SetMode(gin.ReleaseMode)

	listen := cfg.Sandbox.Listen
	if flagListen != "" {
		listen = flagListen
	}

	srv, err := sandbox.New(sandbox.Options{
		Listen:          listen,
		DatabasePath:    cfg.Sandbox.DatabasePath,
		Token:           cfg.Server.Token,
		OpenAIKey:       cfg.Sandbox.OpenAIKey,
		OpenAIModel:     cfg.Sandbox.OpenAIModel,
		ProcessingDelay: time.Duration(cfg.Sandbox.ProcessingDelayMS) * time.Millisecond,
		Log:             log,
	})
	if err != nil {
		fatalf("error starting sandbox: %v", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		fatalf("%v", err)
	}
}
