package app

import "sync"

// generations tracks the latest token request per session so a batch can
// tell whether a newer request started while it ran. Tickets come from one
// counter shared by all sessions, so a ticket is never reissued.
type generations struct {
	mu      sync.Mutex
	counter uint64
	last    map[string]uint64
}

func newGenerations() *generations {
	return &generations{last: make(map[string]uint64)}
}

// next issues a new ticket for key.
func (g *generations) next(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	g.last[key] = g.counter
	return g.counter
}

// finish reports whether ticket is still the latest for key and releases
// the entry when it is.
func (g *generations) finish(key string, ticket uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last[key] != ticket {
		return false
	}
	delete(g.last, key)
	return true
}
