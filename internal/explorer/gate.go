package explorer

import "sync"

// Gate counts in-flight operations. Loading stays true until every acquired
// slot has been released, so a fast completion never hides a slower one.
type Gate struct {
	mu       sync.Mutex
	inflight int
	onChange func(loading bool)
}

// NewGate creates a gate; onChange (may be nil) fires on idle/loading edges.
// It is called outside the lock, so edges from racing goroutines can be
// delivered out of order; callers that care should re-read Loading.
func NewGate(onChange func(loading bool)) *Gate {
	return &Gate{onChange: onChange}
}

// Acquire marks one operation as in flight. The returned release is safe to
// call more than once.
func (g *Gate) Acquire() (release func()) {
	g.mu.Lock()
	g.inflight++
	first := g.inflight == 1
	g.mu.Unlock()

	if first && g.onChange != nil {
		g.onChange(true)
	}

	var once sync.Once
	return func() {
		once.Do(g.release)
	}
}

func (g *Gate) release() {
	g.mu.Lock()
	g.inflight--
	last := g.inflight == 0
	g.mu.Unlock()

	if last && g.onChange != nil {
		g.onChange(false)
	}
}

// Loading reports whether any operation is in flight
func (g *Gate) Loading() bool {
	return g.InFlight() > 0
}

// InFlight returns the number of outstanding operations
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight
}
