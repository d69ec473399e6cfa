package heap

import (
	"fmt"
	"strconv"
)

// Value is a boxed runtime value: either an immediate integer or a pointer
// to a Block. The zero Value is the immediate 0.
type Value struct {
	block *Block
	imm   int64
}

// Box wraps a Block pointer as a Value.
func Box(b *Block) Value {
	return Value{block: b}
}

// Int boxes an immediate integer.
func Int(i int64) Value {
	return Value{imm: i}
}

// IsPtr reports whether v holds a Block pointer.
func (v Value) IsPtr() bool {
	return v.block != nil
}

// Ptr returns the Block v points to, or nil for an immediate.
func (v Value) Ptr() *Block {
	return v.block
}

// Imm returns the immediate payload. Only meaningful when IsPtr is false.
func (v Value) Imm() int64 {
	return v.imm
}

// String returns a short diagnostic form of the value.
func (v Value) String() string {
	if v.block == nil {
		return strconv.FormatInt(v.imm, 10)
	}
	return fmt.Sprintf("block(tag=%#x rc=%d)", uint32(v.block.Tag()), uint32(v.block.Refcount()))
}
