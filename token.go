package fifogate

import "fmt"

// Timestamp counts the writes that have passed through a Source. Timestamps
// are comparable for equality and order but are otherwise opaque; they are
// meaningful only to the Source and Sink that exchange them.
type Timestamp uint64

// Next reports the Timestamp immediately after t.
func (t Timestamp) Next() Timestamp { return t + 1 }

func (t Timestamp) String() string { return fmt.Sprintf("ts:%d", uint64(t)) }

// Transition identifies one write's position in the total order as the pair of
// states on either side of it. After is always the immediate successor of
// Before, so writes issued by a single Source form a contiguous chain starting
// at the zero state.
type Transition struct {
	before Timestamp
}

// Before reports the state the write transitions from.
func (tr Transition) Before() Timestamp { return tr.before }

// After reports the state the write transitions to.
func (tr Transition) After() Timestamp { return tr.before.Next() }

func (tr Transition) String() string {
	return fmt.Sprintf("txn:%d->%d", uint64(tr.Before()), uint64(tr.After()))
}

// ReadToken stamps a read with the state it is defined to observe. Tokens are
// plain copyable values with no ownership of shared state; callers may move
// them freely between goroutines. Two read tokens with equal timestamps are
// mutually unordered.
type ReadToken struct {
	ts Timestamp
}

// Timestamp reports the state the read observes.
func (t ReadToken) Timestamp() Timestamp { return t.ts }

func (t ReadToken) String() string { return fmt.Sprintf("read(%v)", t.ts) }

// WriteToken stamps a write with its transition in the total order, along with
// the number of reads issued after the previous write and before this one. The
// Sink holds the write back until that many reads have released their guards.
type WriteToken struct {
	txn            Transition
	precedingReads int
}

// Transition reports the write's position in the total order.
func (t WriteToken) Transition() Transition { return t.txn }

// PrecedingReads reports how many reads were issued at the transition's
// before-state.
func (t WriteToken) PrecedingReads() int { return t.precedingReads }

func (t WriteToken) String() string {
	return fmt.Sprintf("write(%v, %d preceding reads)", t.txn, t.precedingReads)
}
