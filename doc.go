// package fifogate enforces that operations pass through one checkpoint in the
// same order that they passed through an earlier one.
//
// Consider a replica applying a stream of operations that arrive over worker
// goroutines. The workers finish in whatever order the scheduler likes, but
// every write must land in the order it was issued, and a read must observe
// exactly the writes that were issued before it. Serializing everything behind
// one lock gives up all parallelism; fifogate instead stamps each operation at
// the first checkpoint and gates it at the second:
//
//	var (
//		src  fifogate.Source
//		sink fifogate.Sink
//	)
//
//	func Write(ctx context.Context, op Op) {
//		tok := src.EnterWrite()
//		go func() {
//			guard, err := sink.AdmitWrite(ctx, tok)
//			if err != nil {
//				return // cancelled while waiting its turn
//			}
//			defer guard.Release()
//			apply(op)
//		}()
//	}
//
//	func Read(ctx context.Context, q Query) {
//		tok := src.EnterRead()
//		go func() {
//			guard, err := sink.AdmitRead(ctx, tok)
//			if err != nil {
//				return
//			}
//			defer guard.Release()
//			observe(q)
//		}()
//	}
//
// The Source stamps write tokens with consecutive positions in a single total
// order and stamps read tokens with the position of the last write issued
// before them. The Sink admits writes in exactly issuance order no matter how
// the tokens arrive; reads issued between the same pair of writes are admitted
// together and may run concurrently with each other. No lock is held while the
// caller's work runs, so independent operations stay parallel.
package fifogate
