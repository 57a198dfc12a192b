package queue

import "sync/atomic"

// DragGuard is a single-slot mutual exclusion for platform drag-export
// operations: try-acquire, run, release on every exit path. It is independent
// of both stores and holds no lock of its own beyond the flag.
type DragGuard struct {
	busy atomic.Bool
}

// TryAcquire claims the slot. It never blocks.
func (g *DragGuard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the slot. Releasing an unheld guard is a no-op.
func (g *DragGuard) Release() {
	g.busy.Store(false)
}

// With runs fn if the slot is free and reports whether it ran. The slot is
// released even if fn panics.
func (g *DragGuard) With(fn func()) bool {
	if !g.TryAcquire() {
		return false
	}
	defer g.Release()
	fn()
	return true
}
