package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/messenger"
	"github.com/poiesic/docchat/session"
)

// DefaultMaxUploadBytes caps the multipart body of one upload.
const DefaultMaxUploadBytes = 64 << 20

// Ingester writes uploaded units to a collection.
type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.Request) (*ingestion.Result, error)
}

// Asker answers questions against a session.
type Asker interface {
	Ask(ctx context.Context, q chat.Question) (*chat.Answer, error)
}

// SessionLister lists recent sessions.
type SessionLister interface {
	List(ctx context.Context, limit int) ([]*core.Session, error)
}

// PayloadHandler consumes Messenger webhook payloads.
type PayloadHandler interface {
	HandlePayload(ctx context.Context, payload *messenger.Payload)
}

var (
	_ Ingester       = (*ingestion.Pipeline)(nil)
	_ Asker          = (*chat.Service)(nil)
	_ SessionLister  = (*session.Registry)(nil)
	_ PayloadHandler = (*messenger.Dispatcher)(nil)
)

// Server is the HTTP surface.
type Server struct {
	engine         *gin.Engine
	ingester       Ingester
	asker          Asker
	sessions       SessionLister
	webhook        PayloadHandler
	verifyToken    string
	maxUploadBytes int64
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSessions enables GET /sessions.
func WithSessions(lister SessionLister) Option {
	return func(s *Server) {
		s.sessions = lister
	}
}

// WithWebhook enables the Messenger webhook routes.
func WithWebhook(handler PayloadHandler, verifyToken string) Option {
	return func(s *Server) {
		s.webhook = handler
		s.verifyToken = verifyToken
	}
}

// WithMaxUploadBytes caps the upload body size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the router.
func New(ingester Ingester, asker Asker, opts ...Option) (*Server, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	if asker == nil {
		return nil, ErrAskerRequired
	}

	s := &Server{
		ingester:       ingester,
		asker:          asker,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger(), gin.Recovery())

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, codeRouteNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, codeMethodNotAllow, "method not allowed")
	})

	r.GET("/ping", s.ping)
	r.POST("/upload", s.upload)
	r.POST("/query", s.query)
	if s.sessions != nil {
		r.GET("/sessions", s.listSessions)
	}
	if s.webhook != nil {
		r.GET("/webhook", s.verifyWebhook)
		r.POST("/webhook", s.receiveWebhook)
	}
	return r
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) ping(c *gin.Context) {
	ok(c, gin.H{"message": "pong"})
}
