// Package object implements the heap object kinds manipulated by the
// compiler and VM: String, Function, Native, Closure, Upvalue, Class,
// Instance, and BoundMethod. Every kind shares a Header (mark bit plus an
// intrusive link into the allocator's object list) and implements Traceable
// so the collector in lang/gc can walk the object graph without a type
// switch per kind.
package object

import "github.com/emberlang/ember/lang/bytecode"

// Traceable is implemented by every heap object kind. Trace reports, via
// mark, every Value the object directly references; the collector is
// responsible for recursing (gray-to-black tracing over the work list).
type Traceable interface {
	Trace(mark bytecode.MarkFunc)
}

// Header is embedded by every heap object kind. It carries the tri-color
// mark bit and the intrusive next-pointer into the heap's global object
// list (spec §3: "every heap object is on exactly one list").
type Header struct {
	marked bool
	next   bytecode.Obj
}

// Marked reports whether the object survived the current mark phase.
func (h *Header) Marked() bool { return h.marked }

// Mark sets the object's mark bit (black/gray, as far as sweep cares).
func (h *Header) Mark() { h.marked = true }

// Unmark clears the mark bit, turning the object white again for the next
// collection cycle.
func (h *Header) Unmark() { h.marked = false }

// Next returns the next object in the allocator's intrusive object list.
func (h *Header) Next() bytecode.Obj { return h.next }

// SetNext sets the next object in the allocator's intrusive object list.
func (h *Header) SetNext(o bytecode.Obj) { h.next = o }
