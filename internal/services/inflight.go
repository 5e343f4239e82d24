package services

import "sync"

// KeyGuard grants at most one in-flight synchronization per key. The
// check-then-dispatch sequence is a race under concurrent delivery; callers
// must hold the key for the whole dispatch.
type KeyGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

// NewKeyGuard creates an empty guard.
func NewKeyGuard() *KeyGuard {
	return &KeyGuard{inFlight: make(map[string]bool)}
}

// TryAcquire claims the key without blocking. It returns a release function
// and true on success, or nil and false when a dispatch for the key is
// already in flight.
func (g *KeyGuard) TryAcquire(key string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[key] {
		return nil, false
	}
	g.inFlight[key] = true
	return func() {
		g.mu.Lock()
		delete(g.inFlight, key)
		g.mu.Unlock()
	}, true
}

// Active returns the number of keys currently held.
func (g *KeyGuard) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}
