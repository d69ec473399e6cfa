// Package lazy implements the thunk-forcing protocol of the runtime: the
// tag predicates, the refcount-discriminated evaluators, the iterative
// force driver, and the indirection helper used by generated evaluator
// epilogues.
//
// A thunk is a Block carrying a lazy constructor tag. Forcing it for the
// first time either consumes it in place (sole owner) or turns it into a
// blackhole while a moved-out copy is evaluated, and finally into an
// indirection every alias observes. Re-entering a blackhole on the same
// thread is how recursive laziness is diagnosed: the blackhole flows to
// the downstream pattern match, which fails.
package lazy

import (
	"github.com/cwbudde/go-lazy/pkg/heap"
)

// Evaluator turns a thunk Block into its evaluated form. One is generated
// per lazy constructor type. The argument is always a boxed pointer to a
// uniquely owned lazy Block, which the evaluator consumes; the result is a
// fully evaluated constructor, another lazy value, or an indirection. The
// evaluator must not yield.
type Evaluator func(ctx *heap.Context, v heap.Value) heap.Value

// BlockIsLazy reports whether b's tag lies in the lazy partition.
func BlockIsLazy(b *heap.Block) bool {
	return b.Tag().IsLazy()
}

// BlockIsBlackhole reports whether b is currently being evaluated.
func BlockIsBlackhole(b *heap.Block) bool {
	return b.Tag() == heap.TagLazyEval
}

// BlockIsLazyOrSpecial is the single-compare fast test for typed lazy
// data.
func BlockIsLazyOrSpecial(b *heap.Block) bool {
	return b.Tag().IsLazyOrSpecial()
}

// IsLazyValue reports whether v points to a Block in the lazy partition.
func IsLazyValue(v heap.Value) bool {
	return v.IsPtr() && BlockIsLazy(v.Ptr())
}

// IsLazy is the fast boxed-value test. Callers use it on values whose
// static type is lazy, where a tag at or above the sentinel is conclusive.
func IsLazy(v heap.Value) bool {
	return v.IsPtr() && BlockIsLazyOrSpecial(v.Ptr())
}

// Indirect installs the result of an evaluation over target, the primitive
// generated evaluator epilogues use. A uniquely owned target is freed and
// result is returned directly; otherwise target is rewritten into an
// indirection forwarding to result, so every alias observes the evaluated
// value.
func Indirect(ctx *heap.Context, target, result heap.Value) heap.Value {
	b := target.Ptr()
	if b.IsUnique() {
		ctx.Free(b)
		return result
	}
	b.SetField(0, result)
	b.InitHeader(1, 1, heap.TagLazyInd)
	return target
}
