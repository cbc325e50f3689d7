// internal/game/round_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultTableID keys the round used by callers that do not name one.
var DefaultTableID = uuid.Nil

// RoundStore keeps live rounds in memory, keyed by round id.
type RoundStore struct {
	mu     sync.Mutex
	rounds map[uuid.UUID]*Round
	opts   []RoundOption
}

// NewRoundStore returns an empty store. opts are applied to every round it creates.
func NewRoundStore(opts ...RoundOption) *RoundStore {
	return &RoundStore{
		rounds: make(map[uuid.UUID]*Round),
		opts:   opts,
	}
}

func (s *RoundStore) AddRound(r *Round) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.ID] = r
}

func (s *RoundStore) GetRound(id uuid.UUID) (*Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[id]
	return r, ok
}

// GetOrCreateRound returns the round for id, creating a NotStarted one if absent.
func (s *RoundStore) GetOrCreateRound(id uuid.UUID) *Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rounds[id]; ok {
		return r
	}
	r := NewRound(id, s.opts...)
	s.rounds[id] = r
	return r
}

func (s *RoundStore) DeleteRound(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rounds, id)
}

func (s *RoundStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rounds)
}
