// Package inflight tracks actions that are currently running so the same action cannot be
// submitted twice. Unrelated actions are never serialized.
package inflight

import (
	"errors"
	"sync"
)

var ErrBusy = errors.New("this action is already in progress")

type Guard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// Begin marks key as running. The returned func ends it and must be called exactly once.
func (g *Guard) Begin(key string) (done func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return nil, ErrBusy
	}
	g.running[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, key)
			g.mu.Unlock()
		})
	}, nil
}

func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}
