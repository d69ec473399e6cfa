// Package heap implements the reference-counted heap substrate of the
// runtime: blocks, boxed values, and the per-thread context that owns
// allocation, the live-block registry, and the effect-yield flag.
package heap

// Tag identifies the constructor of a heap Block. The tag space is
// partitioned: ordinary constructor tags occupy [TagMin, TagLazyMin),
// lazy tags occupy [TagLazyMin, TagLazyMax] with the three distinguished
// markers at the top of that range, and runtime-special markers sit above
// TagLazyMax.
type Tag uint32

const (
	// TagNone is never allocated; it shows up in diagnostics for immediates.
	TagNone Tag = 0

	// TagMin is the first valid constructor tag.
	TagMin Tag = 1

	// TagLazyMin is the sentinel of the lazy partition: every tag at or
	// above it is either a lazy constructor or a special marker. Lazy
	// constructor tags produced by code generation start here.
	TagLazyMin Tag = 0x0001_0000

	// TagLazyPrep is reserved for the two-phase blackhole install of the
	// thread-shared protocol. The local protocol never writes it.
	TagLazyPrep Tag = 0x0001_fffd

	// TagLazyEval marks a blackhole: a thunk currently being evaluated on
	// this thread. A blackhole has scan count 0 and its fields are opaque.
	TagLazyEval Tag = 0x0001_fffe

	// TagLazyInd marks an indirection: field 0 forwards to the evaluated
	// value.
	TagLazyInd Tag = 0x0001_ffff

	// TagLazyMax is the last tag of the lazy partition.
	TagLazyMax Tag = TagLazyInd

	// TagFreed poisons the header of a freed Block so a use after free
	// trips the tag predicates instead of masquerading as a constructor.
	// It sits in the special partition above the lazy range.
	TagFreed Tag = 0xffff_ffff
)

// IsValue reports whether t is an ordinary constructor tag.
func (t Tag) IsValue() bool { return t >= TagMin && t < TagLazyMin }

// IsLazy reports whether t lies in the lazy partition.
func (t Tag) IsLazy() bool { return t >= TagLazyMin && t <= TagLazyMax }

// IsLazyOrSpecial reports whether t is at or above the lazy sentinel. On
// typed lazy data this single compare is conclusive, since the only tags a
// value of a lazy type can carry are its own constructors and the runtime
// markers.
func (t Tag) IsLazyOrSpecial() bool { return t >= TagLazyMin }
