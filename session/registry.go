// Package session records where each ingested corpus lives so later queries
// can find it again.
//
// The registry is an append-only log: every Create adds one immutable
// record, and Resolve returns the newest record for an id. Registering an
// existing id again is how an upload adds files to a session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// ErrRepositoryRequired is returned when a session repository is not provided.
var ErrRepositoryRequired = errors.New("session repository required")

// Config describes a corpus to register.
type Config struct {
	// ID re-registers an existing session when set; otherwise a new id is
	// generated.
	ID       string
	Backend  core.Backend
	Location core.Location
	Files    []string
}

// Registry maps session ids to corpus locations.
type Registry struct {
	repo         storage.SessionRepository
	singleCorpus bool
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithSingleCorpusFallback makes ResolveOrLatest fall back to the most
// recently created session when a key matches nothing. Every user then
// shares one corpus, so this only suits single-tenant deployments.
// Default is false.
func WithSingleCorpusFallback(enabled bool) Option {
	return func(r *Registry) {
		r.singleCorpus = enabled
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// WithClock sets the time source used to stamp new sessions.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a Registry persisting to repo.
func NewRegistry(repo storage.SessionRepository, opts ...Option) (*Registry, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	r := &Registry{
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "session-registry")
	return r, nil
}

// SingleCorpus reports whether the latest-session fallback is enabled.
func (r *Registry) SingleCorpus() bool {
	return r.singleCorpus
}

// Create validates cfg and appends a session record, returning its id.
func (r *Registry) Create(ctx context.Context, cfg Config) (string, error) {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	s := &core.Session{
		ID:        id,
		Backend:   cfg.Backend,
		Location:  cfg.Location,
		Files:     cfg.Files,
		CreatedAt: r.now().UTC(),
	}
	if err := core.ValidateSession(s); err != nil {
		return "", err
	}
	if err := r.repo.CreateSession(ctx, s); err != nil {
		r.logger.Error("error registering session", "session", id, "err", err)
		return "", err
	}
	r.logger.Info("registered session",
		"session", id, "backend", s.Backend, "collection", s.Collection(), "files", len(s.Files))
	return id, nil
}

// Resolve returns the newest record for id, or storage.ErrNotFound.
func (r *Registry) Resolve(ctx context.Context, id string) (*core.Session, error) {
	if id == "" {
		return nil, storage.ErrNotFound
	}
	return r.repo.GetSession(ctx, id)
}

// ResolveOrLatest resolves key and, when single-corpus fallback is enabled
// and key matches nothing, returns the most recently created session.
func (r *Registry) ResolveOrLatest(ctx context.Context, key string) (*core.Session, error) {
	s, err := r.Resolve(ctx, key)
	if err == nil || !errors.Is(err, storage.ErrNotFound) || !r.singleCorpus {
		return s, err
	}

	latest, err := r.repo.LatestSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no session for %q and none registered: %w", key, err)
		}
		return nil, err
	}
	r.logger.Warn("no session for key, using most recent session; all users share this corpus",
		"key", key, "session", latest.ID, "collection", latest.Collection())
	return latest, nil
}

// List returns up to limit sessions, newest first.
func (r *Registry) List(ctx context.Context, limit int) ([]*core.Session, error) {
	return r.repo.ListSessions(ctx, limit)
}
