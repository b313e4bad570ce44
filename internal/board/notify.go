package board

import "sync"

// notifier fans view snapshots out to subscribers. A subscriber that is not keeping up
// misses snapshots instead of blocking the engine.
type notifier struct {
	mu   sync.RWMutex
	subs map[chan View]struct{}
}

func newNotifier() *notifier { return &notifier{subs: make(map[chan View]struct{})} }

func (n *notifier) subscribe() (ch chan View, cancel func()) {
	ch = make(chan View, 16)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			n.mu.Unlock()
			close(ch)
		})
	}
}

func (n *notifier) publish(v View) {
	n.mu.RLock()
	for ch := range n.subs {
		select {
		case ch <- v:
		default: // drop if slow
		}
	}
	n.mu.RUnlock()
}
