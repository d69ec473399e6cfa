package lazy

import (
	"fmt"

	"github.com/cwbudde/go-lazy/pkg/heap"
)

// CodeNotSupported mirrors ENOTSUP. It is the code carried by the fatal
// error raised when an evaluator reaches a runtime facility the lazy
// protocol cannot host yet.
const CodeNotSupported = 95

// UnsupportedError is the fatal error for an evaluator that yields while a
// lazy constructor is being forced. Proper suspension needs yield-extend
// support from the effect runtime; until then the force operation aborts.
type UnsupportedError struct {
	Code int
	Tag  heap.Tag // the lazy constructor being forced
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("yielding from inside a lazy constructor (tag %#x) is currently not supported (code %d)", uint32(e.Tag), e.Code)
}
