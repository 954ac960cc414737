package storage

import (
	"context"
	"time"

	"github.com/poiesic/docchat/core"
)

// DocumentRepository stores embedded document records grouped by collection.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// ReplaceAll deletes every record in collection and writes records.
	// Records are validated before anything is deleted.
	ReplaceAll(ctx context.Context, collection string, records []*core.DocumentRecord) error

	// Upsert writes records, overwriting any existing record with the same id.
	Upsert(ctx context.Context, collection string, records []*core.DocumentRecord) error

	// Scan returns every record in collection in a deterministic order.
	// An unknown collection yields an empty slice.
	Scan(ctx context.Context, collection string) ([]*core.DocumentRecord, error)

	// Count returns the number of records in collection.
	Count(ctx context.Context, collection string) (int, error)

	// Collections lists the collections that hold at least one record.
	Collections(ctx context.Context) ([]string, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// SessionRepository is the append-only log of ingestion sessions.
type SessionRepository interface {
	// CreateSession appends session to the log.
	CreateSession(ctx context.Context, session *core.Session) error

	// GetSession returns the most recently appended session with id.
	// Returns ErrNotFound if none exists.
	GetSession(ctx context.Context, id string) (*core.Session, error)

	// LatestSession returns the most recently appended session.
	// Returns ErrNotFound if the log is empty.
	LatestSession(ctx context.Context) (*core.Session, error)

	// ListSessions returns up to limit sessions, most recent first.
	ListSessions(ctx context.Context, limit int) ([]*core.Session, error)
}

// TurnRepository stores per-user conversation turns.
type TurnRepository interface {
	// AppendTurn appends turn to its user's log.
	AppendTurn(ctx context.Context, turn *core.Turn) error

	// RecentTurns returns the last limit turns of userID in creation order.
	RecentTurns(ctx context.Context, userID string, limit int) ([]*core.Turn, error)
}

// GreetingRepository tracks whether a user has been greeted.
// The flag only ever moves from first-turn to greeted.
type GreetingRepository interface {
	IsFirstTurn(ctx context.Context, userID string) (bool, error)
	MarkGreeted(ctx context.Context, userID string) error
}

// ProcessedRepository remembers message ids that have already been handled.
type ProcessedRepository interface {
	// MarkProcessed records id and reports whether it was newly recorded.
	MarkProcessed(ctx context.Context, id string) (bool, error)

	// IsProcessed reports whether id has been recorded.
	IsProcessed(ctx context.Context, id string) (bool, error)

	// PruneProcessed forgets ids recorded before cutoff and returns how many were removed.
	PruneProcessed(ctx context.Context, cutoff time.Time) (int, error)
}
