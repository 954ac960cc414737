package sqlstore

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

// MarkProcessed records id and reports whether it was newly recorded.
func (s *Store) MarkProcessed(ctx context.Context, id string) (bool, error) {
	row := &processedModel{MessageID: id, ProcessedAt: time.Now().UTC()}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if result.Error != nil {
		return false, wrap("mark processed", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// IsProcessed reports whether id has been recorded.
func (s *Store) IsProcessed(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&processedModel{}).
		Where("message_id = ?", id).
		Count(&count).Error; err != nil {
		return false, wrap("is processed", err)
	}
	return count > 0, nil
}

// PruneProcessed deletes ids recorded before cutoff.
func (s *Store) PruneProcessed(ctx context.Context, cutoff time.Time) (int, error) {
	result := s.db.WithContext(ctx).
		Where("processed_at < ?", cutoff.UTC()).
		Delete(&processedModel{})
	if result.Error != nil {
		return 0, wrap("prune processed", result.Error)
	}
	return int(result.RowsAffected), nil
}
