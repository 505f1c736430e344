package memory

import (
	"context"
	"fmt"
	"sync"

	"metas/internal/core"
)

// Store is an in-memory report sink used in tests and local development.
type Store struct {
	mu    sync.Mutex
	items []core.Goal
}

func New() *Store {
	return &Store{}
}

// Append stores the goal snapshot and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, g core.Goal) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, g)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.items...)
}
