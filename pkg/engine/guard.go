package engine

import "sync"

// opGuard is the call-scoped reentrancy lock wrapping each public mutating
// operation. An order under settlement cannot be entered again - by another
// caller or by a collaborator calling back in - until the operation exits.
// Acquisition never blocks: a busy order means a settlement is in flight and
// the caller loses the race.
type opGuard struct {
	mu   sync.Mutex
	held map[uint64]bool
}

func newOpGuard() *opGuard {
	return &opGuard{held: make(map[uint64]bool)}
}

// acquire takes the lock for an order ID. Returns false if it is already held.
func (g *opGuard) acquire(id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[id] {
		return false
	}
	g.held[id] = true
	return true
}

// release frees the lock. Must run on every exit path of the operation.
func (g *opGuard) release(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, id)
}
