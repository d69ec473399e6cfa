package heap

import (
	"fmt"
)

// Stats counts the heap activity of a Context.
type Stats struct {
	Allocs int // blocks allocated, including copies
	Copies int // blocks allocated by AllocCopy
	Frees  int // blocks freed
	Live   int // blocks currently live
}

// Context is the per-thread runtime context. It owns allocation, the
// live-block registry used by the heap checker, and the effect-yield flag.
// A Context must not be shared across goroutines; thread-shared Blocks are
// the only state that crosses threads.
type Context struct {
	live     map[*Block]struct{}
	allocs   int
	copies   int
	frees    int
	yielding bool
	onFatal  func(error)
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{live: make(map[*Block]struct{})}
}

// Alloc allocates a uniquely owned Block with the given tag and fields;
// the first scan fields are managed pointers. A lazy Block always carries
// at least one field slot so the indirection install has a place for the
// forwarded value.
func (ctx *Context) Alloc(tag Tag, scan int, fields ...Value) *Block {
	if scan > len(fields) {
		panic(fmt.Sprintf("heap: scan count %d exceeds %d fields", scan, len(fields)))
	}
	stored := append([]Value(nil), fields...)
	if tag.IsLazy() && len(stored) == 0 {
		stored = make([]Value, 1)
	}
	b := &Block{fields: stored}
	b.InitHeader(scan, 0, tag)
	ctx.allocs++
	ctx.live[b] = struct{}{}
	return b
}

// AllocCopy allocates a uniquely owned copy of b: same tag, scan count,
// and fields. Ownership of the managed fields moves to the copy; the
// caller is expected to zero the original's scan count immediately, as the
// blackhole install does.
func (ctx *Context) AllocCopy(b *Block) *Block {
	x := &Block{fields: append([]Value(nil), b.fields...)}
	x.InitHeader(b.ScanCount(), int(b.cpath), b.Tag())
	ctx.allocs++
	ctx.copies++
	ctx.live[x] = struct{}{}
	return x
}

// Free releases b without touching its fields: the caller either owns no
// managed fields through b anymore, or has transferred their ownership
// elsewhere. Freeing a Block twice is heap corruption and panics.
func (ctx *Context) Free(b *Block) {
	if _, ok := ctx.live[b]; !ok {
		panic(fmt.Sprintf("heap: double free of block tag=%#x", uint32(b.Tag())))
	}
	delete(ctx.live, b)
	ctx.frees++
	b.fields = nil
	b.InitHeader(0, 0, TagFreed)
}

// Decref removes one owner from b. The last owner dropping away releases
// the managed fields and frees the block. The thread-shared window between
// the load and the decrement is tolerated for now: the shared forcing
// protocol is stubbed onto the local one and documents the same
// degradation.
func (ctx *Context) Decref(b *Block) {
	rc := b.rc.Load()
	switch {
	case rc == 0:
		ctx.dropFields(b)
		ctx.Free(b)
	case rc&threadSharedBit != 0:
		if rc&^threadSharedBit == 0 {
			ctx.dropFields(b)
			ctx.Free(b)
		} else {
			b.rc.Sub(1)
		}
	default:
		b.rc.Store(rc - 1)
	}
}

// dropFields releases the managed fields of b.
func (ctx *Context) dropFields(b *Block) {
	n := b.ScanCount()
	for i := 0; i < n; i++ {
		ctx.DropValue(b.Field(i))
	}
}

// DupValue adds one owner to v when it is a pointer and returns it.
func (ctx *Context) DupValue(v Value) Value {
	if v.IsPtr() {
		v.Ptr().Dup()
	}
	return v
}

// DropValue releases one owning reference to v.
func (ctx *Context) DropValue(v Value) {
	if v.IsPtr() {
		ctx.Decref(v.Ptr())
	}
}

// Yielding reports whether the effect system has requested a yield.
func (ctx *Context) Yielding() bool {
	return ctx.yielding
}

// SetYielding flips the effect-yield flag. The effect system sets it from
// inside an evaluator; the force driver treats a set flag as fatal.
func (ctx *Context) SetYielding(y bool) {
	ctx.yielding = y
}

// SetOnFatal installs f as the fatal-error hook and returns the previous
// hook. The default hook panics with the error; tests install a recorder.
func (ctx *Context) SetOnFatal(f func(error)) func(error) {
	prev := ctx.onFatal
	ctx.onFatal = f
	return prev
}

// Fatal reports an unrecoverable runtime error through the fatal hook.
func (ctx *Context) Fatal(err error) {
	if ctx.onFatal != nil {
		ctx.onFatal(err)
		return
	}
	panic(err)
}

// Stats returns a snapshot of the allocation counters.
func (ctx *Context) Stats() Stats {
	return Stats{
		Allocs: ctx.allocs,
		Copies: ctx.copies,
		Frees:  ctx.frees,
		Live:   len(ctx.live),
	}
}
