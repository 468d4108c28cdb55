// Package table implements the open-addressed, linear-probed hash table
// used for crux's globals table, the intern table, class method tables,
// and instance field tables.
//
// Keys are anything implementing Key (in practice: interned *object.String
// pointers, compared by identity and by the Key interface's Bytes/Hash so
// that table need not import package object — see DESIGN.md on the
// acyclic-package-graph adaptation this requires).
package table

import "github.com/kristofer/crux/pkg/value"

// Key is the minimal contract a table key must satisfy: precomputed hash
// and the underlying bytes, so FindString can compare length, hash, then
// bytes without a table lookup allocating a new key.
type Key interface {
	Bytes() string
	Hash() uint32
}

type entry struct {
	key   Key
	value value.Value
	// tombstone is true for a deleted slot: distinct from an empty slot
	// (key == nil && !tombstone) so probing doesn't stop early.
	tombstone bool
}

const maxLoad = 0.75

// Table is an open-addressed hash table keyed by interned strings.
type Table struct {
	count   int // live entries + tombstones, for growth decisions
	entries []entry
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Count reports the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	live := 0
	for _, e := range t.entries {
		if e.key != nil && !e.tombstone {
			live++
		}
	}
	return live
}

// Get looks up key, reporting whether it was found.
func (t *Table) Get(key Key) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Value{}, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return value.Value{}, false
	}
	return e.value, true
}

// Set stores v under key, growing the table if needed. It reports whether
// this added a brand new key (as opposed to overwriting an existing one).
func (t *Table) Set(key Key, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}

	e := t.findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey && !e.tombstone {
		t.count++
	}
	e.key = key
	e.value = v
	e.tombstone = false
	return isNewKey
}

// Delete writes a tombstone for key, reporting whether it was present.
func (t *Table) Delete(key Key) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.tombstone = true
	return true
}

// AddAll bulk-copies every live entry of from into t — used for class
// inheritance, which copies the superclass's whole method table.
func (t *Table) AddAll(from *Table) {
	for _, e := range from.entries {
		if e.key != nil && !e.tombstone {
			t.Set(e.key, e.value)
		}
	}
}

// Each calls fn for every live entry. Used by the GC to mark the globals
// table and by Interner.Each to enumerate interned strings.
func (t *Table) Each(fn func(key Key, v value.Value)) {
	for _, e := range t.entries {
		if e.key != nil && !e.tombstone {
			fn(e.key, e.value)
		}
	}
}

// DeleteIf removes every live entry for which pred reports true. Used by
// the GC's string weak-reference fix-up before sweep.
func (t *Table) DeleteIf(pred func(key Key) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.tombstone && pred(e.key) {
			e.key = nil
			e.tombstone = true
		}
	}
}

// FindString looks for an interned entry whose key has the given bytes and
// precomputed hash, without allocating a new key to do the comparison.
// Used by the interning path: compare length, hash, then bytes.
func (t *Table) FindString(bytes string, hash uint32) (Key, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.tombstone {
				return nil, false
			}
		} else if e.Hash2() == hash && e.key.Bytes() == bytes {
			return e.key, true
		}
		index = (index + 1) & mask
	}
}

func (e *entry) Hash2() uint32 {
	return e.key.Hash()
}

// findEntry locates the slot key belongs in (or its first tombstone, if
// reused), linear-probing from its hash bucket.
func (t *Table) findEntry(entries []entry, key Key) *entry {
	mask := uint32(len(entries) - 1)
	index := key.Hash() & mask
	var tombstone *entry

	for {
		e := &entries[index]
		if e.key == nil {
			if !e.tombstone {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key || (e.key.Hash() == key.Hash() && e.key.Bytes() == key.Bytes()) {
			return e
		}
		index = (index + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)

	t.count = 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		dest := t.findEntry(newEntries, e.key)
		dest.key = e.key
		dest.value = e.value
		t.count++
	}
	t.entries = newEntries
}
