package heap

import (
	"fmt"

	"go.uber.org/multierr"
)

// Check verifies the structural invariants over every live Block in ctx:
// a blackhole never rests on the heap outside an active force, and an
// indirection has exactly one managed field. Violations are aggregated and
// returned as a single error.
func Check(ctx *Context) error {
	var err error
	for b := range ctx.live {
		switch tag := b.Tag(); {
		case tag == TagLazyEval:
			err = multierr.Append(err, fmt.Errorf("heap: blackhole at rest (rc=%d)", uint32(b.Refcount())))
		case tag == TagLazyInd:
			if b.ScanCount() != 1 || b.Len() < 1 {
				err = multierr.Append(err, fmt.Errorf("heap: malformed indirection (scan=%d len=%d)", b.ScanCount(), b.Len()))
			}
		case tag == TagFreed, tag == TagNone:
			err = multierr.Append(err, fmt.Errorf("heap: live block with tag %#x", uint32(tag)))
		case b.ScanCount() > b.Len():
			err = multierr.Append(err, fmt.Errorf("heap: scan count %d exceeds %d fields (tag=%#x)", b.ScanCount(), b.Len(), uint32(tag)))
		}
	}
	return err
}

// CheckLeaks runs Check and additionally requires that no Block is live at
// all. Tests call it after releasing every reference they own.
func CheckLeaks(ctx *Context) error {
	err := Check(ctx)
	for b := range ctx.live {
		err = multierr.Append(err, fmt.Errorf("heap: leaked block (tag=%#x rc=%d)", uint32(b.Tag()), uint32(b.Refcount())))
	}
	return err
}
