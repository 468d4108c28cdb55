package object

import (
	"github.com/kristofer/crux/pkg/table"
	"github.com/kristofer/crux/pkg/value"
)

// Interner deduplicates string objects: Intern returns the single *String
// for a given byte sequence across the lifetime of a VM, so that string
// equality reduces to pointer equality (see value.Equal's ObjRef case).
//
// It is backed by pkg/table used as a set (every value is value.NilVal);
// Table.FindString does the hash/length/byte comparison before any *String
// is allocated, so re-interning an already-known string costs no
// allocation.
type Interner struct {
	t *table.Table
}

func NewInterner() *Interner {
	return &Interner{t: table.New()}
}

// Intern returns the canonical *String for chars, allocating and
// registering a new one only the first time chars is seen. created
// reports whether this call allocated that new String, so a caller
// responsible for GC bookkeeping (see pkg/vm's allocator) knows whether it
// needs to link a fresh object into its tracked heap.
func (in *Interner) Intern(chars string) (s *String, created bool) {
	hash := fnvHash(chars)
	if k, ok := in.t.FindString(chars, hash); ok {
		return k.(*String), false
	}
	s = NewString(chars)
	in.t.Set(s, value.NilVal())
	return s, true
}

// Sweep drops every interned string the GC did not mark, matching clox's
// weak-reference handling of its string table: a string reachable only
// from the intern table, and from nowhere else, is garbage.
func (in *Interner) Sweep() {
	in.t.DeleteIf(func(k table.Key) bool {
		return !k.(*String).Marked
	})
}

// Each visits every interned string. Diagnostic use only — the GC must
// NOT mark through this to its entries, since the intern table holds weak
// references and marking through it would keep every string alive forever.
func (in *Interner) Each(fn func(s *String)) {
	in.t.Each(func(k table.Key, _ value.Value) {
		fn(k.(*String))
	})
}
