// Package table implements the open-addressed, linear-probing hash table
// mandated by spec §4.5: entries are (key *object.String, value
// bytecode.Value) pairs, deletions leave a tombstone so probing can
// continue past them, the load factor (live entries + tombstones) is capped
// at 0.75, and FindString probes by byte-content equality rather than
// identity, which is what lets the GC's string interner canonicalize a
// freshly-scanned byte sequence to an existing String object.
//
// This is the one hand-rolled data structure in the module: dolthub/swiss
// (used elsewhere for Class.Methods and Instance.Fields, see lang/object)
// has no tombstone-based deletion, no raw hash+bytes probe ahead of an
// object's existence, and no hook for a GC weak-sweep pass, so it cannot
// serve either of this table's two callers (the VM's globals map and the
// GC's string-interning set).
package table

import (
	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/object"
)

const maxLoad = 0.75

// tombstoneValue marks a deleted slot: Key is nil but Value is not itself
// nil (distinguishing a tombstone from a never-used slot, both of which
// have a nil Key).
var tombstoneValue = bytecode.Bool(true)

// Entry is one slot of the table.
type Entry struct {
	Key   *object.String
	Value bytecode.Value
}

// Table is an open-addressed hash table keyed by interned strings.
type Table struct {
	entries []Entry
	count   int // live entries plus tombstones
}

// New returns an empty table.
func New() *Table { return &Table{} }

// Get returns the value associated with key, or !found if absent.
func (t *Table) Get(key *object.String) (bytecode.Value, bool) {
	if len(t.entries) == 0 {
		return bytecode.Nil, false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.Key == nil {
		return bytecode.Nil, false
	}
	return e.Value, true
}

// Set inserts or updates key's value. It returns true iff a new key was
// inserted (spec §4.5: "set(key, value): returns true iff a new key was
// inserted").
func (t *Table) Set(key *object.String, value bytecode.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	isNewKey := e.Key == nil
	if isNewKey && e.Value.IsNil() {
		// A brand new slot (not a reused tombstone) grows the live+tombstone
		// count; reusing a tombstone does not, since it was already counted.
		t.count++
	}
	e.Key = key
	e.Value = value
	return isNewKey
}

// Delete removes key, leaving a tombstone so that subsequent probes for
// other keys that hashed past this slot still terminate correctly. It
// returns true iff the key was present.
func (t *Table) Delete(key *object.String) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.Key == nil {
		return false
	}
	*e = Entry{Key: nil, Value: tombstoneValue}
	return true
}

// FindString probes the table by byte-content equality rather than object
// identity, for the case where no String object for this byte sequence has
// been allocated yet. It is used only at intern time to canonicalize a
// newly-scanned or newly-concatenated string.
func (t *Table) FindString(chars string, hash uint32) *object.String {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	index := int(hash) % capacity
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				// a true empty slot (not a tombstone) ends the probe
				return nil
			}
		} else if e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		index = (index + 1) % capacity
	}
}

// Iterate calls fn for every live entry. fn must not mutate the table.
func (t *Table) Iterate(fn func(key *object.String, value bytecode.Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil {
			fn(e.Key, e.Value)
		}
	}
}

// RemoveWhite implements the GC's weak-reference fix-up (spec §4.5 step 3):
// any entry whose key object did not survive marking is deleted from the
// table in the same collection cycle, so an interned string with no other
// live references is collected and its intern-table entry does not keep it
// alive forever.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil && !e.Key.Marked() {
			*e = Entry{Key: nil, Value: tombstoneValue}
		}
	}
}

// findEntry returns the index of the matching entry, the first tombstone
// seen along the probe sequence, or the first truly-empty slot, whichever
// comes first along the linear probe from key's hash.
func (t *Table) findEntry(entries []Entry, key *object.String) int {
	capacity := len(entries)
	index := int(key.Hash) % capacity
	tombstone := -1
	for {
		e := &entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				// truly empty
				if tombstone != -1 {
					return tombstone
				}
				return index
			}
			// tombstone
			if tombstone == -1 {
				tombstone = index
			}
		} else if e.Key == key {
			return index
		}
		index = (index + 1) % capacity
	}
}

func (t *Table) grow() {
	capacity := growCapacity(len(t.entries))
	newEntries := make([]Entry, capacity)
	t.count = 0
	for _, e := range t.entries {
		if e.Key == nil {
			continue
		}
		idx := t.findEntry(newEntries, e.Key)
		newEntries[idx].Key = e.Key
		newEntries[idx].Value = e.Value
		t.count++
	}
	t.entries = newEntries
}

func growCapacity(old int) int {
	if old < 8 {
		return 8
	}
	return old * 2
}
