package fifogate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCanceled is returned by AdmitRead and AdmitWrite when the context is
// cancelled before the token's turn comes. The sink is left exactly as if the
// cancelled call had never been made, so the caller may retry with the same or
// a different token.
var ErrCanceled = errors.New("fifogate: admission cancelled")

type readWaiter struct {
	ts    Timestamp
	ready chan struct{}
}

type writeWaiter struct {
	precedingReads int
	ready          chan struct{}
}

// Sink is the second checkpoint. It admits tokens in the order their Source
// issued them, no matter which goroutines present them or in what order they
// arrive. Reads sharing a timestamp are admitted together; writes are admitted
// one at a time, each after the reads issued before it have released.
//
// The internal lock covers only queue and counter bookkeeping. It is never
// held while a caller waits for admission or runs its protected work.
//
// The zero value is ready to use and starts at the zero state; use NewSink to
// start from a Source snapshot instead.
type Sink struct {
	mu sync.Mutex

	// state.reads counts reads that were admitted at state.ts and have
	// already released their guards, unlike the Source where it counts
	// issued reads. The timestamp trails the Source's by however many
	// writes are still in flight.
	state State

	readers map[Timestamp][]*readWaiter
	writers map[Timestamp]*writeWaiter // keyed by transition before-state
}

// NewSink returns a Sink that behaves as if it had already admitted and seen
// released every token issued before the given Source snapshot was taken.
// Tokens issued before the snapshot must not be presented to it.
func NewSink(init State) *Sink {
	return &Sink{state: init}
}

// AdmitRead blocks until the read's turn comes: every write issued before the
// token has been admitted and released. It returns a guard that the caller
// must Release when its protected work is done. Reads sharing a timestamp are
// admitted independently and may hold their guards concurrently.
//
// If ctx is cancelled first, AdmitRead removes the queued entry and returns an
// error matching both ErrCanceled and the context cause. A cancellation that
// loses the race to admission is ignored and the guard is returned.
func (s *Sink) AdmitRead(ctx context.Context, t ReadToken) (*ReadGuard, error) {
	s.mu.Lock()
	if t.ts == s.state.ts {
		s.mu.Unlock()
		return &ReadGuard{sink: s}, nil
	}
	if t.ts < s.state.ts {
		s.mu.Unlock()
		panic(fmt.Sprintf("fifogate: %v is behind sink %v; token predates the sink's snapshot or was admitted twice", t, s.state))
	}
	w := &readWaiter{ts: t.ts, ready: make(chan struct{})}
	if s.readers == nil {
		s.readers = make(map[Timestamp][]*readWaiter)
	}
	s.readers[t.ts] = append(s.readers[t.ts], w)
	s.mu.Unlock()

	select {
	case <-w.ready:
		return &ReadGuard{sink: s}, nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-w.ready:
		// Admission won the race; the cancellation came too late to matter.
		return &ReadGuard{sink: s}, nil
	default:
	}
	s.removeReader(w)
	return nil, fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}

// AdmitWrite blocks until the write's turn comes: the sink has reached the
// transition's before-state and every read issued before the write has
// released. It returns a guard that the caller must Release when its protected
// work is done; the release is what lets the order advance past this write.
//
// Cancellation behaves as for AdmitRead.
func (s *Sink) AdmitWrite(ctx context.Context, t WriteToken) (*WriteGuard, error) {
	before := t.txn.Before()

	s.mu.Lock()
	if before == s.state.ts && s.state.reads >= t.precedingReads {
		s.mu.Unlock()
		return &WriteGuard{sink: s, txn: t.txn}, nil
	}
	if before < s.state.ts {
		s.mu.Unlock()
		panic(fmt.Sprintf("fifogate: %v is behind sink %v; token predates the sink's snapshot or was admitted twice", t, s.state))
	}
	if _, dup := s.writers[before]; dup {
		s.mu.Unlock()
		panic(fmt.Sprintf("fifogate: two writes queued for %v; a token was admitted twice or issued by a foreign source", t.txn))
	}
	w := &writeWaiter{precedingReads: t.precedingReads, ready: make(chan struct{})}
	if s.writers == nil {
		s.writers = make(map[Timestamp]*writeWaiter)
	}
	s.writers[before] = w
	s.mu.Unlock()

	select {
	case <-w.ready:
		return &WriteGuard{sink: s, txn: t.txn}, nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-w.ready:
		return &WriteGuard{sink: s, txn: t.txn}, nil
	default:
	}
	delete(s.writers, before)
	return nil, fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}

// Close asserts that the Sink has drained. Discarding a Sink with callers
// still queued strands their goroutines, so Close panics if any waiter
// remains. A drained Sink needs no cleanup.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	reads := 0
	for _, q := range s.readers {
		reads += len(q)
	}
	if reads != 0 || len(s.writers) != 0 {
		panic(fmt.Sprintf("fifogate: sink closed with %d reads and %d writes awaiting admission", reads, len(s.writers)))
	}
}

// releaseRead is the exit transition for a read guard: one fewer read stands
// between the write at the current timestamp and its turn.
func (s *Sink) releaseRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.reads++
	s.pumpWriter()
}

// releaseWrite is the exit transition for a write guard: the order advances
// past the write, unblocking the reads stamped with the new timestamp and,
// once those release, the next write.
func (s *Sink) releaseWrite(txn Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ts = txn.After()
	s.state.reads = 0
	s.pumpReaders()
	s.pumpWriter()
}

// pumpReaders admits every read queued at the current timestamp. Called with
// the lock held, after the timestamp advances.
func (s *Sink) pumpReaders() {
	for _, w := range s.readers[s.state.ts] {
		close(w.ready)
	}
	delete(s.readers, s.state.ts)
}

// pumpWriter re-checks the one write eligible at the current timestamp.
// Called with the lock held, whenever a read releases or the timestamp
// advances.
func (s *Sink) pumpWriter() {
	if w, ok := s.writers[s.state.ts]; ok && s.state.reads >= w.precedingReads {
		delete(s.writers, s.state.ts)
		close(w.ready)
	}
}

// removeReader unqueues a cancelled read waiter. Called with the lock held;
// the waiter is known to still be queued because its ready channel is open and
// admission closes it before dropping the queue entry.
func (s *Sink) removeReader(w *readWaiter) {
	q := s.readers[w.ts]
	for i, other := range q {
		if other == w {
			q = append(q[:i], q[i+1:]...)
			break
		}
	}
	if len(q) == 0 {
		delete(s.readers, w.ts)
	} else {
		s.readers[w.ts] = q
	}
}
