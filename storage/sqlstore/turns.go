package sqlstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/poiesic/docchat/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendTurn appends turn to its user's conversation log.
func (s *Store) AppendTurn(ctx context.Context, turn *core.Turn) error {
	if err := core.ValidateTurn(turn); err != nil {
		return err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	row := &turnModel{
		UserID:    turn.UserID,
		Role:      string(turn.Role),
		Content:   turn.Content,
		CreatedAt: turn.Timestamp,
	}
	return wrap("append turn", s.db.WithContext(ctx).Create(row).Error)
}

// RecentTurns returns the last limit turns of userID, oldest first.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]*core.Turn, error) {
	if limit <= 0 {
		return []*core.Turn{}, nil
	}
	var rows []turnModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, wrap("recent turns", err)
	}
	slices.Reverse(rows)

	turns := make([]*core.Turn, len(rows))
	for i, row := range rows {
		turns[i] = &core.Turn{
			UserID:    row.UserID,
			Role:      core.Role(row.Role),
			Content:   row.Content,
			Timestamp: row.CreatedAt.UTC(),
		}
	}
	return turns, nil
}

// IsFirstTurn reports whether userID has not been greeted yet.
func (s *Store) IsFirstTurn(ctx context.Context, userID string) (bool, error) {
	var row greetingModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, wrap("read greeting", err)
	}
	return !row.Greeted, nil
}

// MarkGreeted records that userID has been greeted. It is idempotent.
func (s *Store) MarkGreeted(ctx context.Context, userID string) error {
	row := &greetingModel{UserID: userID, Greeted: true, UpdatedAt: time.Now().UTC()}
	return wrap("mark greeted", s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"greeted", "updated_at"}),
		}).
		Create(row).Error)
}
