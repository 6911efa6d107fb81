package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Options configures the sandbox server
type Options struct {
	Listen          string
	DatabasePath    string
	Token           string
	OpenAIKey       string
	OpenAIModel     string
	ProcessingDelay time.Duration
	Log             *slog.Logger
}

// Server bundles the HTTP surface, storage, and background worker
type Server struct {
	opts      Options
	db        *sql.DB
	queries   *Queries
	processor *Processor
	engine    *gin.Engine
}

// New opens the database, seeds the demo project, and wires the routes
func New(opts Options) (*Server, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	db, err := Open(opts.DatabasePath)
	if err != nil {
		return nil, err
	}
	queries := NewQueries(db)
	if err := queries.EnsureSeed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding database: %w", err)
	}

	var responder Responder = StaticResponder{}
	if opts.OpenAIKey != "" {
		responder = NewOpenAIResponder(opts.OpenAIKey, opts.OpenAIModel)
	}

	s := &Server{
		opts:      opts,
		db:        db,
		queries:   queries,
		processor: NewProcessor(queries, opts.ProcessingDelay, opts.Log),
	}
	s.engine = s.buildRouter(responder)
	return s, nil
}

func (s *Server) buildRouter(responder Responder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(s.opts.Log))

	// The slot key is the credential for direct uploads
	r.PUT("/v1/uploads/:key", handleUploadPut(s.queries))

	authed := r.Group("/v1", requireBearer(s.opts.Token))
	authed.GET("/projects/:id/bundle", handleBundle(s.queries))
	authed.POST("/projects/:id/chats", handleCreateChat(s.queries))
	authed.DELETE("/chats/:id", handleDeleteChat(s.queries))
	authed.POST("/chats/:id/messages", handleCreateMessage(s.queries, responder))
	authed.POST("/messages/:id/feedback", handleFeedback(s.queries))
	authed.POST("/projects/:id/uploads", handleRequestUpload(s.queries))
	authed.POST("/projects/:id/documents", handleConfirmUpload(s.queries, s.processor))
	authed.POST("/projects/:id/urls", handleProcessURL(s.queries, s.processor))
	authed.DELETE("/documents/:id", handleDeleteDocument(s.queries))
	authed.GET("/projects/:id/documents", handleListDocuments(s.queries))
	authed.PUT("/projects/:id/settings", handleUpdateSettings(s.queries))

	return r
}

// Handler exposes the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// StartWorker runs only the document processor, for callers that serve the
// handler themselves.
func (s *Server) StartWorker(ctx context.Context) {
	go s.processor.Run(ctx)
}

// Run serves requests and works the document queue until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{Addr: s.opts.Listen, Handler: s.engine}

	go s.processor.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	s.opts.Log.Info("sandbox listening", "addr", s.opts.Listen, "database", s.opts.DatabasePath)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("sandbox server: %w", err)
	}
	return nil
}

// Close releases the database
func (s *Server) Close() error {
	return s.db.Close()
}
