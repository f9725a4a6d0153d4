package fifogate

import "sync"

// ReadGuard is the admission claim handed to a read once its turn comes.
// While it is held, the write stamped with the same timestamp cannot be
// admitted. The zero ReadGuard holds nothing and releases as a no-op.
type ReadGuard struct {
	sink *Sink
	once sync.Once
}

// Release gives the turn up. Once every read sharing the timestamp has
// released, the write waiting on them becomes admissible. Release is
// idempotent; only the first call performs the exit transition.
func (g *ReadGuard) Release() {
	if g == nil || g.sink == nil {
		return
	}
	g.once.Do(g.sink.releaseRead)
}

// WriteGuard is the admission claim handed to a write once its turn comes.
// While it is held, no later token can advance past the write. The zero
// WriteGuard holds nothing and releases as a no-op.
type WriteGuard struct {
	sink *Sink
	txn  Transition
	once sync.Once
}

// Release gives the turn up, advancing the order past this write. Reads
// stamped with the new timestamp are admitted at once; the next write follows
// when those reads have released. Release is idempotent; only the first call
// performs the exit transition.
func (g *WriteGuard) Release() {
	if g == nil || g.sink == nil {
		return
	}
	g.once.Do(func() { g.sink.releaseWrite(g.txn) })
}
