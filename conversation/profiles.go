package conversation

import (
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
)

// DefaultProfileCapacity is the number of user profiles kept in memory.
const DefaultProfileCapacity = 1024

// ProfileStore keeps one profile per user, evicting the least recently
// used when full. Profiles are not persisted.
type ProfileStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, core.Profile]
}

// NewProfileStore creates a store holding up to capacity profiles.
func NewProfileStore(capacity int) (*ProfileStore, error) {
	if capacity < 1 {
		capacity = DefaultProfileCapacity
	}
	cache, err := lru.New[string, core.Profile](capacity)
	if err != nil {
		return nil, err
	}
	return &ProfileStore{cache: cache}, nil
}

// Get returns a copy of userID's profile.
func (s *ProfileStore) Get(userID string) (core.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.cache.Get(userID)
	if !ok {
		return core.Profile{}, false
	}
	p.Hobbies = slices.Clone(p.Hobbies)
	return p, true
}

// Merge folds extracted into userID's profile and returns the result.
func (s *ProfileStore) Merge(userID string, extracted ai.ExtractedProfile) core.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, _ := s.cache.Get(userID)
	p.Hobbies = slices.Clone(p.Hobbies)
	p.Merge(core.Profile{
		Name:       extracted.Name,
		Age:        extracted.Age,
		Profession: extracted.Profession,
		Hobbies:    extracted.Hobbies,
	})
	s.cache.Add(userID, p)
	return p
}

// Len returns the number of stored profiles.
func (s *ProfileStore) Len() int {
	return s.cache.Len()
}
