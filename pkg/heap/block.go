package heap

import (
	"go.uber.org/atomic"
)

// threadSharedBit marks a refcount word as thread-shared; the remaining
// bits carry the owner count.
const threadSharedBit uint32 = 1 << 31

// Refcount is the raw refcount word of a Block. Zero means uniquely owned
// by the current caller; a positive value below the thread-shared bit
// counts that many additional owners on the same thread; the thread-shared
// bit marks the Block as reachable from more than one thread, with the low
// bits still counting the additional owners.
type Refcount uint32

// IsUnique reports whether the word encodes sole ownership.
func (rc Refcount) IsUnique() bool {
	return rc == 0
}

// IsThreadShared reports whether the word carries the thread-shared bit.
func (rc Refcount) IsThreadShared() bool {
	return uint32(rc)&threadSharedBit != 0
}

// Block is a reference-counted heap object: a header plus inline fields.
// The first ScanCount fields are managed pointers; the rest is raw payload.
//
// The header words an aliased reader may observe mid-transition (tag, scan
// count, refcount) are atomics. The local forcing protocol only needs
// ordinary stores, but the thread-shared protocol requires an indirection's
// field to be published before the tag switches to TagLazyInd, and the
// atomic tag store provides that ordering.
type Block struct {
	tag    atomic.Uint32
	scan   atomic.Uint32
	cpath  uint32
	rc     atomic.Uint32
	fields []Value
}

// Tag returns the current constructor tag.
func (b *Block) Tag() Tag {
	return Tag(b.tag.Load())
}

// SetTag overwrites the tag. Reserved for the forcing protocol; the tag of
// a non-lazy Block never changes.
func (b *Block) SetTag(t Tag) {
	b.tag.Store(uint32(t))
}

// ScanCount returns the number of leading managed fields.
func (b *Block) ScanCount() int {
	return int(b.scan.Load())
}

// SetScanCount overwrites the scan count. Reserved for the forcing
// protocol.
func (b *Block) SetScanCount(n int) {
	b.scan.Store(uint32(n))
}

// InitHeader reinitializes the header. The scan count is stored before the
// tag so a reader that observes the new tag also observes a header
// consistent with it.
func (b *Block) InitHeader(scan int, cpath int, t Tag) {
	b.scan.Store(uint32(scan))
	b.cpath = uint32(cpath)
	b.tag.Store(uint32(t))
}

// Refcount returns the raw refcount word.
func (b *Block) Refcount() Refcount {
	return Refcount(b.rc.Load())
}

// IsUnique reports whether b has a single owner.
func (b *Block) IsUnique() bool {
	return b.Refcount().IsUnique()
}

// IsThreadShared reports whether b is owned across threads.
func (b *Block) IsThreadShared() bool {
	return b.Refcount().IsThreadShared()
}

// Dup adds one owner and returns b.
func (b *Block) Dup() *Block {
	rc := b.rc.Load()
	if rc&threadSharedBit != 0 {
		b.rc.Add(1)
	} else {
		b.rc.Store(rc + 1)
	}
	return b
}

// MarkThreadShared switches the refcount word to the thread-shared
// encoding, preserving the owner count. The flag is sticky: once a Block
// has been visible to another thread its count is always maintained
// atomically.
func (b *Block) MarkThreadShared() {
	for {
		rc := b.rc.Load()
		if rc&threadSharedBit != 0 {
			return
		}
		if b.rc.CompareAndSwap(rc, rc|threadSharedBit) {
			return
		}
	}
}

// Len returns the number of fields.
func (b *Block) Len() int {
	return len(b.fields)
}

// Field returns field i.
func (b *Block) Field(i int) Value {
	return b.fields[i]
}

// SetField overwrites field i. Ownership of the stored value moves into
// the Block.
func (b *Block) SetField(i int, v Value) {
	b.fields[i] = v
}

// Fields returns the backing field slice. Callers must not retain it
// across a Free of b.
func (b *Block) Fields() []Value {
	return b.fields
}
