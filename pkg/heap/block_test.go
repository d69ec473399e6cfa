package heap

import "testing"

func TestRefcountEncoding(t *testing.T) {
	tests := []struct {
		name       string
		rc         Refcount
		wantUnique bool
		wantShared bool
	}{
		{"unique", 0, true, false},
		{"one extra local owner", 1, false, false},
		{"many local owners", 12, false, false},
		{"thread shared, no extra owners", Refcount(threadSharedBit), false, true},
		{"thread shared with owners", Refcount(threadSharedBit | 3), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rc.IsUnique(); got != tt.wantUnique {
				t.Errorf("Refcount(%#x).IsUnique() = %v, want %v", uint32(tt.rc), got, tt.wantUnique)
			}
			if got := tt.rc.IsThreadShared(); got != tt.wantShared {
				t.Errorf("Refcount(%#x).IsThreadShared() = %v, want %v", uint32(tt.rc), got, tt.wantShared)
			}
		})
	}
}

func TestDupDecref(t *testing.T) {
	ctx := NewContext()
	b := ctx.Alloc(TagMin, 0, Int(1))

	if !b.IsUnique() {
		t.Fatalf("fresh block not unique: rc=%#x", uint32(b.Refcount()))
	}

	b.Dup()
	b.Dup()
	if got := b.Refcount(); got != 2 {
		t.Errorf("after two dups rc = %d, want 2", uint32(got))
	}

	ctx.Decref(b)
	if got := b.Refcount(); got != 1 {
		t.Errorf("after decref rc = %d, want 1", uint32(got))
	}
	ctx.Decref(b)
	ctx.Decref(b) // last owner: frees
	if got := b.Tag(); got != TagFreed {
		t.Errorf("after final decref tag = %#x, want TagFreed", uint32(got))
	}
	if err := CheckLeaks(ctx); err != nil {
		t.Errorf("CheckLeaks() = %v, want nil", err)
	}
}

func TestMarkThreadShared(t *testing.T) {
	ctx := NewContext()
	b := ctx.Alloc(TagMin, 0)
	b.Dup()

	b.MarkThreadShared()
	if !b.IsThreadShared() {
		t.Fatal("block not thread shared after MarkThreadShared")
	}
	if b.IsUnique() {
		t.Error("thread-shared block reported unique")
	}

	// Sticky: marking twice keeps the owner count.
	b.MarkThreadShared()
	b.Dup()
	ctx.Decref(b)
	ctx.Decref(b)
	if !b.IsThreadShared() {
		t.Error("shared bit lost across dup/decref")
	}
	ctx.Decref(b)
	if err := CheckLeaks(ctx); err != nil {
		t.Errorf("CheckLeaks() = %v, want nil", err)
	}
}

func TestInitHeader(t *testing.T) {
	ctx := NewContext()
	b := ctx.Alloc(TagLazyMin, 1, Int(0), Int(7))
	b.InitHeader(1, 1, TagLazyInd)

	if got := b.Tag(); got != TagLazyInd {
		t.Errorf("tag = %#x, want TagLazyInd", uint32(got))
	}
	if got := b.ScanCount(); got != 1 {
		t.Errorf("scan count = %d, want 1", got)
	}
	if got := b.Field(1); got.Imm() != 7 {
		t.Errorf("field 1 = %v, want 7", got)
	}
	ctx.Free(b)
}

func TestLazyAllocReservesIndirectionSlot(t *testing.T) {
	ctx := NewContext()
	b := ctx.Alloc(TagLazyMin+3, 0)
	if b.Len() != 1 {
		t.Fatalf("fieldless lazy block has %d slots, want 1", b.Len())
	}
	ctx.Free(b)
}
