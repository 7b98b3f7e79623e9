// internal/adapter/storage/memory.go

// In-memory reference implementations of the store ports. They carry the
// same semantics as the pgx stores and back the test suites; production
// wiring uses the pgx stores.

package storage

import (
	"context"
	"sort"
	"sync"

	"feedcore/internal/domain/focus"
	"feedcore/internal/domain/profile"
)

// MemoryProfileStore is an in-memory profile.Store
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
}

// NewMemoryProfileStore creates an empty in-memory profile store
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]profile.Profile)}
}

var _ profile.Store = (*MemoryProfileStore)(nil)

// Get returns the profile for userID or profile.ErrNotFound
func (s *MemoryProfileStore) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	copied := copyProfile(p)
	return &copied, nil
}

// Save upserts the profile keyed by user id
func (s *MemoryProfileStore) Save(ctx context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = copyProfile(*p)
	return nil
}

// Delete removes the profile for userID
func (s *MemoryProfileStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}

// copyProfile deep-copies slice fields so callers never share backing
// arrays with the store.
func copyProfile(p profile.Profile) profile.Profile {
	p.Topics = append([]profile.InterestEntry(nil), p.Topics...)
	p.Categories = append([]profile.InterestEntry(nil), p.Categories...)
	p.SourceTypes = append([]profile.InterestEntry(nil), p.SourceTypes...)
	p.ExplicitPreferences.Topics = append([]string(nil), p.ExplicitPreferences.Topics...)
	p.ExplicitPreferences.Categories = append([]string(nil), p.ExplicitPreferences.Categories...)
	p.ExplicitPreferences.SourceTypes = append([]string(nil), p.ExplicitPreferences.SourceTypes...)
	return p
}

// MemoryFocusStore is an in-memory focus.Store
type MemoryFocusStore struct {
	mu      sync.RWMutex
	areas   map[string]map[string]focus.Area // userID -> areaID -> area
	filters map[string][]string
}

// NewMemoryFocusStore creates an empty in-memory focus store
func NewMemoryFocusStore() *MemoryFocusStore {
	return &MemoryFocusStore{
		areas:   make(map[string]map[string]focus.Area),
		filters: make(map[string][]string),
	}
}

var _ focus.Store = (*MemoryFocusStore)(nil)

// Save upserts a focus area
func (s *MemoryFocusStore) Save(ctx context.Context, a *focus.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.areas[a.UserID] == nil {
		s.areas[a.UserID] = make(map[string]focus.Area)
	}
	s.areas[a.UserID][a.ID] = copyArea(*a)
	return nil
}

// Get returns one of the user's focus areas by id
func (s *MemoryFocusStore) Get(ctx context.Context, userID, id string) (*focus.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.areas[userID][id]
	if !ok {
		return nil, focus.ErrNotFound
	}
	copied := copyArea(a)
	return &copied, nil
}

// ListByUser returns all of the user's focus areas ordered by creation time
func (s *MemoryFocusStore) ListByUser(ctx context.Context, userID string) ([]focus.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var areas []focus.Area
	for _, a := range s.areas[userID] {
		areas = append(areas, copyArea(a))
	}
	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].CreatedAt.Before(areas[j].CreatedAt)
	})
	return areas, nil
}

// Delete removes one of the user's focus areas
func (s *MemoryFocusStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.areas[userID][id]; !ok {
		return focus.ErrNotFound
	}
	delete(s.areas[userID], id)
	return nil
}

// SetActiveSet replaces the user's active filter id set
func (s *MemoryFocusStore) SetActiveSet(ctx context.Context, userID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters[userID] = append([]string(nil), ids...)
	return nil
}

// ActiveSet returns the user's active filter id set
func (s *MemoryFocusStore) ActiveSet(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.filters[userID]...), nil
}

func copyArea(a focus.Area) focus.Area {
	a.Topics = append([]string(nil), a.Topics...)
	a.Categories = append([]string(nil), a.Categories...)
	a.Keywords = append([]string(nil), a.Keywords...)
	a.SourceTypes = append([]string(nil), a.SourceTypes...)
	if a.LastMatchedAt != nil {
		t := *a.LastMatchedAt
		a.LastMatchedAt = &t
	}
	return a
}
