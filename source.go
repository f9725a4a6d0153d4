package fifogate

import (
	"fmt"
	"sync"
)

// State is a snapshot of a Source's progress: the current timestamp and the
// number of reads issued since the last write. Pass it to NewSink to build a
// Sink that behaves as if it had already admitted every token issued before
// the snapshot was taken. The zero State describes a Source that has issued
// nothing.
type State struct {
	ts    Timestamp
	reads int
}

func (s State) String() string { return fmt.Sprintf("state(%v, %d reads)", s.ts, s.reads) }

// Source is the first checkpoint. It stamps each passing operation with a
// token that fixes the operation's place in the order a Sink later enforces.
// All operations take a short internal lock and never block on external
// events. The zero value is ready to use and starts at the zero state.
type Source struct {
	mu    sync.Mutex
	state State
}

// EnterRead issues a token for a read defined to observe the current state.
// Reads issued between the same pair of writes carry equal timestamps and are
// mutually unordered.
func (s *Source) EnterRead() ReadToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.reads++
	return ReadToken{ts: s.state.ts}
}

// EnterWrite issues a token for the next write in the total order and advances
// the state. The token remembers how many reads were issued since the previous
// write; the Sink will not admit it until that many reads have released.
func (s *Source) EnterWrite() WriteToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := WriteToken{
		txn:            Transition{before: s.state.ts},
		precedingReads: s.state.reads,
	}
	s.state.ts = s.state.ts.Next()
	s.state.reads = 0
	return tok
}

// State snapshots the Source. Tokens issued before the snapshot must never be
// presented to a Sink built from it.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
