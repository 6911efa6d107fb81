package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/workbench-ai/cli/config"
	"github.com/workbench-ai/cli/internal/api"
	"github.com/workbench-ai/cli/internal/logging"
	"github.com/workbench-ai/cli/internal/models"
	"github.com/workbench-ai/cli/internal/session"
	"github.com/workbench-ai/cli/internal/store"
)

var cfg *config.Config

var (
	cfgPath     string
	flagServer  string
	flagToken   string
	flagProject string
	flagVerbose bool
	flagListen  string
	flagWait    bool
	flagTimeout time.Duration
	flagJobs    int
	flagForce   bool

	rootCmd = &cobra.Command{
		Use:   "workbench",
		Short: "Terminal client for AI workspace projects",
		Long: `Workbench is a terminal client for chat-with-your-documents projects.
Run it with no arguments to open the interactive UI, or use the
subcommands for scripted ingestion and a local sandbox server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c, err := config.Load(cfgPath)
			if err != nil {
				fatalf("error loading config: %v", err)
			}
			if flagServer != "" {
				c.Server.BaseURL = flagServer
			}
			if flagToken != "" {
				c.Server.Token = flagToken
			}
			if flagProject != "" {
				c.Workspace.ProjectID = flagProject
			}
			if flagVerbose {
				c.Logging.Level = "debug"
			}
			if err := c.Validate(); err != nil {
				fatalf("%v", err)
			}
			cfg = c
		},
		Run: runTUI, // Defined in cmd_tui.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the local sandbox server the client can talk to",
		Run:   runServe, // Defined in cmd_serve.go
	}

	uploadCmd = &cobra.Command{
		Use:   "upload [files...]",
		Short: "Upload local files into the project knowledge base",
		Args:  cobra.MinimumNArgs(1),
		Run:   runUpload, // Defined in cmd_ingest.go
	}

	urlCmd = &cobra.Command{
		Use:   "url [links...]",
		Short: "Queue web pages for ingestion into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		Run:   runURL, // Defined in cmd_ingest.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch [directory]",
		Short: "Watch a directory and upload files as they appear or change",
		Args:  cobra.ExactArgs(1),
		Run:   runWatch, // Defined in cmd_watch.go
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Run:   runInit, // Defined in cmd_init.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run:   runVersion, // Defined in main.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Server base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "Project ID (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")

	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (overrides config)")

	uploadCmd.Flags().BoolVar(&flagWait, "wait", false, "Block until processing reaches a final status")
	uploadCmd.Flags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Give up waiting after this long")
	uploadCmd.Flags().IntVar(&flagJobs, "jobs", 4, "Concurrent uploads")

	urlCmd.Flags().BoolVar(&flagWait, "wait", false, "Block until processing reaches a final status")
	urlCmd.Flags().DurationVar(&flagTimeout, "timeout", 2*time.Minute, "Give up waiting after this long")

	initCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogger builds the process logger from config. Interactive is true for
// runs that own the terminal; those log to a file so the UI stays clean.
func setupLogger(interactive bool) (*slog.Logger, func() error) {
	file := cfg.Logging.File
	if interactive && file == "" {
		file = config.DefaultLogPath()
	}
	log, closeLog, err := logging.Setup(logging.Options{
		Level: cfg.Logging.Level,
		File:  file,
		JSON:  cfg.Logging.JSON,
	})
	if err != nil {
		fatalf("error setting up logging: %v", err)
	}
	return log, closeLog
}

// newSession wires up a client, store, and session from config
func newSession(log *slog.Logger) (*session.Session, *store.Store) {
	client := api.NewClient(cfg.Server.BaseURL, cfg.Server.Token)
	st := store.New()
	actor := &models.Actor{ID: cfg.Workspace.ActorID, Name: cfg.Workspace.ActorName}
	return session.New(client, st, cfg.Workspace.ProjectID, actor, log), st
}

func pollInterval() time.Duration {
	return time.Duration(cfg.Polling.IntervalSeconds) * time.Second
}
