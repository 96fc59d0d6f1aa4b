package presence

import (
	"sort"
	"sync"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// Set holds the IDs of users currently connected. It only changes through Apply.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Apply folds one channel event into the set and reports whether it changed.
// Repeated connects and disconnects of absent IDs are no-ops.
func (s *Set) Apply(ev models.PresenceEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case models.PresenceSnapshot:
		next := make(map[string]struct{}, len(ev.UserIDs))
		for _, id := range ev.UserIDs {
			if id != "" {
				next[id] = struct{}{}
			}
		}
		changed := !sameKeys(s.ids, next)
		s.ids = next
		return changed
	case models.PresenceConnected:
		if ev.UserID == "" {
			return false
		}
		if _, ok := s.ids[ev.UserID]; ok {
			return false
		}
		s.ids[ev.UserID] = struct{}{}
		return true
	case models.PresenceDisconnected:
		if _, ok := s.ids[ev.UserID]; !ok {
			return false
		}
		delete(s.ids, ev.UserID)
		return true
	}
	return false
}

// Contains reports whether id is online.
func (s *Set) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// IDs returns the online IDs sorted.
func (s *Set) IDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of online IDs.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Reset empties the set.
func (s *Set) Reset() {
	s.mu.Lock()
	s.ids = make(map[string]struct{})
	s.mu.Unlock()
}

func sameKeys(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
