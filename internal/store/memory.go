package store

import (
	"errors"
	"sync"

	"github.com/i474232898/weather-warnings/internal/warnings"
)

var (
	// ErrNotFound is returned when no state has been reported for a region.
	ErrNotFound = errors.New("no state for region")
)

// StateStore is a concurrency-safe in-memory display surface holding the
// latest reported state of every region. It keeps no history.
type StateStore struct {
	mu sync.RWMutex

	// key: region id, value: latest state
	data map[warnings.RegionID]warnings.RegionState

	// regions in the order they first reported
	order []warnings.RegionID
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{
		data: make(map[warnings.RegionID]warnings.RegionState),
	}
}

// Report replaces the stored state for the region. It implements warnings.Reporter.
func (s *StateStore) Report(state warnings.RegionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[state.RegionID]; !ok {
		s.order = append(s.order, state.RegionID)
	}
	s.data[state.RegionID] = state
}

// Get returns the latest state for a region.
func (s *StateStore) Get(id warnings.RegionID) (warnings.RegionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[id]
	if !ok {
		return warnings.RegionState{}, ErrNotFound
	}
	return state, nil
}

// List returns the latest state of every region in first-report order.
func (s *StateStore) List() []warnings.RegionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]warnings.RegionState, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.data[id])
	}
	return result
}
