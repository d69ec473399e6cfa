package lazy

import (
	"github.com/cwbudde/go-lazy/pkg/heap"
)

// evalUnique forces a thunk with no other owners. The generated evaluator
// only matches on its argument and cannot reach the thunk through another
// path, so no blackhole or indirection is needed and the result is
// returned as-is. This is the common case of strictly linear consumption:
// zero allocations, zero header writes.
func evalUnique(ctx *heap.Context, b *heap.Block, eval Evaluator) heap.Value {
	if BlockIsBlackhole(b) {
		// Only reachable if a reference escaped a generated evaluator.
		// Hand the blackhole back and let the downstream match fail,
		// the same way the shared path reports recursion.
		return heap.Box(b)
	}
	return eval(ctx, heap.Box(b))
}

// evalLocal forces a thunk with additional owners on this thread. The
// original Block plays two roles: it is the blackhole while evaluation
// runs and the indirection afterwards. The thunk's content moves out to a
// fresh unique copy so the evaluator still sees an intact constructor to
// match against.
func evalLocal(ctx *heap.Context, b *heap.Block, eval Evaluator) heap.Value {
	if BlockIsBlackhole(b) {
		// Recursive force of a value already being evaluated on this
		// thread. Return the blackhole unchanged; the downstream pattern
		// match raises the runtime's standard match failure.
		return heap.Box(b)
	}

	// Move the content out, then blackhole the original. Ownership of the
	// managed fields transfers to the copy; zeroing the scan count first
	// keeps any same-thread reader from scanning fields it no longer owns.
	x := ctx.AllocCopy(b)
	b.SetScanCount(0)
	b.SetTag(heap.TagLazyEval)

	res := eval(ctx, heap.Box(x))

	if ctx.Yielding() {
		// Leave b blackholed; Eval reports the fatal error. No partial
		// indirection is ever observable.
		return heap.Value{}
	}

	if res.IsPtr() && res.Ptr() == b {
		// The evaluation collapsed onto the thunk itself, still
		// blackholed: recursive forcing that surfaced through the
		// evaluator's return value. Installing an indirection here would
		// make b forward to itself, so leave the blackhole in place for
		// the driver's short-circuit. The reference the caller passed in
		// is released; res carries its own.
		ctx.Decref(b)
		return res
	}

	// Publish the forwarded value before the tag switch so a reader that
	// observes TagLazyInd also observes field 0.
	b.SetField(0, res)
	b.SetScanCount(1)
	b.SetTag(heap.TagLazyInd)
	return heap.Box(b)
}

// evalThreadShared forces a thunk owned across threads. The full protocol
// — an atomic blackhole install carrying a waiter list via TagLazyPrep,
// first writer wins, waiters chase the installed indirection — is not
// implemented yet. Delegating to the local protocol is correct for
// single-threaded use and degrades to duplicate evaluation under
// contention; the atomic header stores keep the degradation free of torn
// reads.
func evalThreadShared(ctx *heap.Context, b *heap.Block, eval Evaluator) heap.Value {
	return evalLocal(ctx, b, eval)
}

// Eval forces the lazy value next until it is fully evaluated. The caller
// guarantees IsLazyValue(next) and transfers its reference; the returned
// value carries one reference owned by the caller.
//
// The driver is iterative: force results may forward through arbitrarily
// long indirection chains, and chasing them must not grow the stack. Each
// chased indirection hands exactly one reference to the forwarded value —
// inherited from the indirection when it was uniquely owned (which frees
// it), or added explicitly alongside a decref otherwise.
func Eval(ctx *heap.Context, next heap.Value, eval Evaluator) heap.Value {
	b := next.Ptr()
	tag := b.Tag()
	for {
		rc := b.Refcount()
		if tag == heap.TagLazyInd {
			next = b.Field(0)
			if rc.IsUnique() {
				ctx.Free(b)
			} else {
				next = ctx.DupValue(next)
				ctx.Decref(b)
			}
		} else {
			// The evaluator reference stays borrowed across the dispatch
			// even though its body may re-enter Force on sub-thunks; the
			// garbage collector keeps the closure alive, so the static
			// dup/drop pair of the protocol is implicit here.
			switch {
			case rc.IsUnique():
				next = evalUnique(ctx, b, eval)
			case rc.IsThreadShared():
				next = evalThreadShared(ctx, b, eval)
			default:
				next = evalLocal(ctx, b, eval)
			}
			if ctx.Yielding() {
				ctx.Fatal(&UnsupportedError{Code: CodeNotSupported, Tag: tag})
				return heap.Value{}
			}
		}
		if !next.IsPtr() {
			break
		}
		nb := next.Ptr()
		tag = nb.Tag()
		if nb == b && tag == heap.TagLazyEval {
			// The dispatch returned its own blackhole: recursive forcing.
			// Re-entering would loop; the caller's match reports it.
			break
		}
		b = nb
		if !tag.IsLazy() {
			break
		}
	}
	return next
}

// Force evaluates v if it is lazy and returns it unchanged otherwise. The
// already-evaluated case is a single tag compare with no memory traffic:
// Force is used on typed lazy data, so a tag at or above the sentinel is
// conclusive.
func Force(ctx *heap.Context, v heap.Value, eval Evaluator) heap.Value {
	if !IsLazy(v) {
		return v
	}
	return Eval(ctx, v, eval)
}
