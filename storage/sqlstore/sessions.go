package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// CreateSession appends session to the session log.
func (s *Store) CreateSession(ctx context.Context, session *core.Session) error {
	if err := core.ValidateSession(session); err != nil {
		return err
	}
	files, err := json.Marshal(session.Files)
	if err != nil {
		return fmt.Errorf("%w: session files: %w", storage.ErrSerializationFailed, err)
	}
	row := &sessionModel{
		SessionID:      session.ID,
		Backend:        string(session.Backend),
		IndexName:      session.Location.Index,
		Namespace:      session.Location.Namespace,
		DatabaseName:   session.Location.Database,
		CollectionName: session.Location.Collection,
		Files:          string(files),
		CreatedAt:      session.CreatedAt,
	}
	return wrap("create session", s.db.WithContext(ctx).Create(row).Error)
}

// GetSession returns the most recently appended session with id.
func (s *Store) GetSession(ctx context.Context, id string) (*core.Session, error) {
	var row sessionModel
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("seq DESC").
		First(&row).Error; err != nil {
		return nil, wrap("get session", err)
	}
	return fromSessionModel(&row)
}

// LatestSession returns the most recently appended session.
func (s *Store) LatestSession(ctx context.Context) (*core.Session, error) {
	var row sessionModel
	if err := s.db.WithContext(ctx).Order("seq DESC").First(&row).Error; err != nil {
		return nil, wrap("latest session", err)
	}
	return fromSessionModel(&row)
}

// ListSessions returns up to limit sessions, most recent first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*core.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []sessionModel
	if err := s.db.WithContext(ctx).Order("seq DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, wrap("list sessions", err)
	}
	sessions := make([]*core.Session, 0, len(rows))
	for i := range rows {
		session, err := fromSessionModel(&rows[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func fromSessionModel(row *sessionModel) (*core.Session, error) {
	var files []string
	if row.Files != "" {
		if err := json.Unmarshal([]byte(row.Files), &files); err != nil {
			return nil, fmt.Errorf("%w: session files: %w", storage.ErrSerializationFailed, err)
		}
	}
	return &core.Session{
		ID:      row.SessionID,
		Backend: core.Backend(row.Backend),
		Location: core.Location{
			Index:      row.IndexName,
			Namespace:  row.Namespace,
			Database:   row.DatabaseName,
			Collection: row.CollectionName,
		},
		Files:     files,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}
