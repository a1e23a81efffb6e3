package engine

// Guard is the reentrancy latch that keeps the engine's own bookkeeping
// statements from being treated as injectable operations, and stops a
// dispatch from triggering another refresh-and-dispatch cycle.
//
// The guard is depth-counted: nested guarded sections (an admin call
// issued while a refresh is in flight) release in order without clearing
// the outer hold. Sessions process one statement at a time, so no lock
// is needed.
type Guard struct {
	depth int
}

// NewGuard returns a released guard, the state a session starts in.
func NewGuard() *Guard { return &Guard{} }

// Held reports whether any guarded section is active.
func (g *Guard) Held() bool { return g.depth > 0 }

// During runs fn with the guard held. The hold is released on every
// return path, including when fn fails.
func (g *Guard) During(fn func() error) error {
	g.depth++
	defer func() {
		// ForceClear may have zeroed the depth mid-section; never go
		// negative, or a later Held would lie.
		if g.depth > 0 {
			g.depth--
		}
	}()
	return fn()
}

// ForceClear releases the guard regardless of depth. Bound to transaction
// end, so a hold leaked by a crashed refresh cannot outlive the
// transaction that took it.
func (g *Guard) ForceClear() { g.depth = 0 }
