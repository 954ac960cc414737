package inbox

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/docchat/storage"
)

// DefaultDedupTTL is how long a processed message id is remembered.
const DefaultDedupTTL = 24 * time.Hour

// Deduplicator remembers which messages have been handled.
type Deduplicator interface {
	// IsDuplicate reports whether id has already been marked.
	IsDuplicate(ctx context.Context, id string) (bool, error)

	// MarkProcessed records id.
	MarkProcessed(ctx context.Context, id string) error

	// TryMark records id and reports whether this call recorded it.
	// Exactly one of several concurrent callers with the same id wins.
	TryMark(ctx context.Context, id string) (bool, error)
}

// Sweepable is a deduplicator that must be pruned explicitly.
type Sweepable interface {
	// Sweep forgets ids marked more than olderThan ago and returns how many.
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

// MemoryDeduplicator keeps ids in a process-local map.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

var (
	_ Deduplicator = (*MemoryDeduplicator)(nil)
	_ Sweepable    = (*MemoryDeduplicator)(nil)
)

// NewMemoryDeduplicator creates an empty in-memory deduplicator.
func NewMemoryDeduplicator() *MemoryDeduplicator {
	return &MemoryDeduplicator{seen: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduplicator) IsDuplicate(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyMessageID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok, nil
}

func (d *MemoryDeduplicator) MarkProcessed(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyMessageID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[id] = d.now()
	return nil
}

func (d *MemoryDeduplicator) TryMark(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyMessageID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = d.now()
	return true, nil
}

func (d *MemoryDeduplicator) Sweep(_ context.Context, olderThan time.Duration) (int, error) {
	cutoff := d.now().Add(-olderThan)
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for id, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of remembered ids.
func (d *MemoryDeduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// StoreDeduplicator keeps ids in a ProcessedRepository so they survive restarts.
type StoreDeduplicator struct {
	repo storage.ProcessedRepository
	now  func() time.Time
}

var (
	_ Deduplicator = (*StoreDeduplicator)(nil)
	_ Sweepable    = (*StoreDeduplicator)(nil)
)

// NewStoreDeduplicator creates a deduplicator backed by repo.
func NewStoreDeduplicator(repo storage.ProcessedRepository) *StoreDeduplicator {
	return &StoreDeduplicator{repo: repo, now: time.Now}
}

func (d *StoreDeduplicator) IsDuplicate(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyMessageID
	}
	return d.repo.IsProcessed(ctx, id)
}

func (d *StoreDeduplicator) MarkProcessed(ctx context.Context, id string) error {
	_, err := d.TryMark(ctx, id)
	return err
}

func (d *StoreDeduplicator) TryMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyMessageID
	}
	return d.repo.MarkProcessed(ctx, id)
}

func (d *StoreDeduplicator) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	return d.repo.PruneProcessed(ctx, d.now().Add(-olderThan))
}
