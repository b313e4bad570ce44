// Package prefs remembers the last active board of each room so board selection stays stable
// across reloads and across separate CLI runs.
package prefs

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	// ActiveBoard returns ErrNotFound when nothing is remembered for the room.
	ActiveBoard(ctx context.Context, roomID string) (string, error)
	SetActiveBoard(ctx context.Context, roomID, boardID string) error
	Forget(ctx context.Context, roomID string) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	boards map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{boards: make(map[string]string)} }

func (s *MemoryStore) ActiveBoard(_ context.Context, roomID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.boards[roomID]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) SetActiveBoard(_ context.Context, roomID, boardID string) error {
	s.mu.Lock()
	s.boards[roomID] = boardID
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, roomID string) error {
	s.mu.Lock()
	delete(s.boards, roomID)
	s.mu.Unlock()
	return nil
}
