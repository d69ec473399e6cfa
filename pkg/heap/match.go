package heap

import (
	"fmt"
)

// PatternMatchError is the runtime's standard pattern-match failure: a
// destructure observed a tag other than the constructor it matched on.
// Forcing a recursively defined thunk surfaces here — the force driver
// hands back the blackhole Block and the downstream match fails on its
// tag.
type PatternMatchError struct {
	Got  Tag
	Want Tag
}

// Error implements the error interface.
func (e *PatternMatchError) Error() string {
	return fmt.Sprintf("pattern match failure: matched constructor %#x against value with tag %#x", uint32(e.Want), uint32(e.Got))
}

// Match destructures v against the constructor tag want and returns its
// fields. Blackhole and indirection tags never equal a constructor tag, so
// no field of a blackhole is ever read here.
func Match(v Value, want Tag) ([]Value, error) {
	if !v.IsPtr() {
		return nil, &PatternMatchError{Got: TagNone, Want: want}
	}
	b := v.Ptr()
	if got := b.Tag(); got != want {
		return nil, &PatternMatchError{Got: got, Want: want}
	}
	return b.fields, nil
}
