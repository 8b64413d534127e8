// Package gc implements the precise, non-moving, mark-sweep collector
// described in spec §4.5: a single allocation hook tracks live bytes and
// triggers collection when a configurable threshold is crossed, roots are
// supplied by pluggable RootProviders (the compiler's in-progress function
// chain, the VM's stack/frames/globals/open-upvalues), tracing uses a
// tri-color gray work list, and the string-interning table gets a
// weak-reference fix-up pass between trace and sweep.
//
// This is a non-moving collector layered on top of Go's own garbage
// collector: Heap does not free memory itself. Sweep only unlinks
// unreachable objects from the heap's intrusive object list; once nothing
// else (in our model or in real Go heap references) points at an unlinked
// object, Go's own collector reclaims the underlying memory. Spec §9 notes
// the observable contract is only the invariants in §8, which this
// satisfies without manual deallocation.
package gc

import (
	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/object"
	"github.com/emberlang/ember/lang/table"
)

const (
	initialNextGC  = 1024 * 1024 // 1 MiB, per spec §4.5
	heapGrowFactor = 2
)

// Rough per-kind accounting units for bytesAllocated bookkeeping. These
// aren't true byte sizes (Go object sizes aren't something we can observe
// precisely without unsafe.Sizeof games that would fight the garbage
// collector); they only need to be consistent enough that the grow-trigger
// threshold behaves sensibly.
const (
	sizeString      = 32
	sizeFunction    = 96
	sizeNative      = 48
	sizeClosure     = 40
	sizeUpvalue     = 40
	sizeClass       = 48
	sizeInstance    = 48
	sizeBoundMethod = 40
)

// node is what the collector needs from any heap object: the bookkeeping
// promoted by object.Header plus the Traceable contract.
type node interface {
	bytecode.Obj
	object.Traceable
	Marked() bool
	Mark()
	Unmark()
	Next() bytecode.Obj
	SetNext(bytecode.Obj)
}

// RootProvider is implemented by any subsystem that owns GC roots. The
// compiler registers one to keep in-progress Function objects (and their
// enclosing chain) alive across nested compiles; the VM registers one to
// mark its value stack, call frames, globals table, and open-upvalue list.
type RootProvider interface {
	MarkRoots(mark bytecode.MarkFunc)
}

// Heap owns the intrusive list of every allocated object, the string
// interning table, and the byte-accounting that drives collection.
type Heap struct {
	objects bytecode.Obj
	strings *table.Table

	bytesAllocated int
	nextGC         int
	StressGC       bool

	// GrowFactor multiplies bytesAllocated to compute the next collection
	// threshold after each cycle (spec §4.5's heap-growth policy). Defaults
	// to heapGrowFactor; the CLI driver overrides it from EMBER_HEAP_GROW_FACTOR.
	GrowFactor int

	roots []RootProvider
	gray  []node
}

// NewHeap returns an empty heap with spec's 1 MiB initial collection
// threshold.
func NewHeap() *Heap {
	return &Heap{strings: table.New(), nextGC: initialNextGC, GrowFactor: heapGrowFactor}
}

// AddRootProvider registers r to be asked for its roots at the start of
// every collection.
func (h *Heap) AddRootProvider(r RootProvider) {
	h.roots = append(h.roots, r)
}

// RemoveRootProvider unregisters r (by identity). Used when a compilation
// finishes and the compiler's roots should no longer be walked.
func (h *Heap) RemoveRootProvider(r RootProvider) {
	for i, p := range h.roots {
		if p == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// BytesAllocated reports the current accounted live-byte estimate.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// NextGC reports the byte threshold that will trigger the next collection.
func (h *Heap) NextGC() int { return h.nextGC }

// Intern returns the canonical String for chars, allocating and linking a
// new one only if no live String with these exact bytes already exists
// (spec §3: "at most one live String per byte sequence"). The returned
// string is immediately inserted into the intern table so subsequent
// Intern calls for the same bytes return the same object; it is removed
// again only by RemoveWhite when nothing else references it.
func (h *Heap) Intern(chars string) *object.String {
	hash := object.FNV1a(chars)
	if s := h.strings.FindString(chars, hash); s != nil {
		return s
	}
	s := &object.String{Chars: chars, Hash: hash}
	h.link(s, sizeString)
	h.strings.Set(s, bytecode.Bool(true))
	return s
}

// NewFunction allocates an empty Function for the compiler to fill in as
// it compiles a function's body.
func (h *Heap) NewFunction() *object.Function {
	f := &object.Function{}
	h.link(f, sizeFunction)
	return f
}

// NewNative allocates a host-callable Native.
func (h *Heap) NewNative(name string, arity int, fn object.NativeFn) *object.Native {
	n := &object.Native{NameStr: name, Arity: arity, Fn: fn}
	h.link(n, sizeNative)
	return n
}

// NewClosure allocates a Closure over fn with an Upvalues slice sized to
// fn's declared upvalue count.
func (h *Heap) NewClosure(fn *object.Function) *object.Closure {
	c := &object.Closure{Fn: fn, Upvalues: make([]*object.Upvalue, fn.UpvalueCount)}
	h.link(c, sizeClosure)
	return c
}

// NewUpvalue allocates an open Upvalue pointing at slot.
func (h *Heap) NewUpvalue(slot *bytecode.Value) *object.Upvalue {
	uv := &object.Upvalue{Location: slot}
	h.link(uv, sizeUpvalue)
	return uv
}

// NewClass allocates an empty Class named name.
func (h *Heap) NewClass(name *object.String) *object.Class {
	c := object.NewClass(name)
	h.link(c, sizeClass)
	return c
}

// NewInstance allocates a field-less Instance of class.
func (h *Heap) NewInstance(class *object.Class) *object.Instance {
	i := object.NewInstance(class)
	h.link(i, sizeInstance)
	return i
}

// NewBoundMethod allocates a BoundMethod pairing receiver with method.
func (h *Heap) NewBoundMethod(receiver bytecode.Value, method *object.Closure) *object.BoundMethod {
	b := &object.BoundMethod{Receiver: receiver, Method: method}
	h.link(b, sizeBoundMethod)
	return b
}

// link is the single allocation hook every New* method and Intern route
// through (spec §4.5: "every alloc/free/resize goes through single
// function"). It checks the grow-trigger *before* accounting for o, so a
// collection provoked by this allocation never sees o on the object list:
// o does not yet exist from the collector's point of view, so it cannot be
// swept out from under its own constructor. This is the Go-native
// replacement for clox's "push the transient value on the stack, pop once
// attached to a root" discipline described in spec §5 — it has the same
// effect (a freshly allocated object always survives until the allocation
// that created it returns) without requiring every call site to touch a
// VM-owned stack.
func (h *Heap) link(o node, size int) {
	if h.StressGC || h.bytesAllocated+size > h.nextGC {
		h.Collect()
	}
	o.SetNext(h.objects)
	h.objects = o
	h.bytesAllocated += size
}

// Collect runs one full mark-sweep cycle: mark roots, trace the gray work
// list to black, fix up the intern table's weak references, then sweep the
// object list.
func (h *Heap) Collect() {
	h.markRoots()
	h.traceReferences()
	h.strings.RemoveWhite()
	h.sweep()

	growFactor := h.GrowFactor
	if growFactor <= 0 {
		growFactor = heapGrowFactor
	}
	h.nextGC = bytecode.ClampMin(h.bytesAllocated*growFactor, initialNextGC)
}

func (h *Heap) markRoots() {
	for _, r := range h.roots {
		r.MarkRoots(h.MarkValue)
	}
}

// MarkValue marks v's underlying object, if any, gray. It is the
// bytecode.MarkFunc passed to every RootProvider and Traceable.Trace.
func (h *Heap) MarkValue(v bytecode.Value) {
	if !v.IsObj() {
		return
	}
	h.markObject(v.AsObj())
}

func (h *Heap) markObject(o bytecode.Obj) {
	if o == nil {
		return
	}
	n, ok := o.(node)
	if !ok || n.Marked() {
		return
	}
	n.Mark()
	h.gray = append(h.gray, n)
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		last := len(h.gray) - 1
		n := h.gray[last]
		h.gray = h.gray[:last]
		n.Trace(h.MarkValue)
	}
}

func (h *Heap) sweep() {
	var prev node
	obj := h.objects
	for obj != nil {
		n := obj.(node)
		next := n.Next()
		if n.Marked() {
			n.Unmark()
			prev = n
		} else {
			if prev == nil {
				h.objects = next
			} else {
				prev.SetNext(next)
			}
			h.bytesAllocated -= sizeOf(obj)
		}
		obj = next
	}
}

func sizeOf(o bytecode.Obj) int {
	switch o.(type) {
	case *object.String:
		return sizeString
	case *object.Function:
		return sizeFunction
	case *object.Native:
		return sizeNative
	case *object.Closure:
		return sizeClosure
	case *object.Upvalue:
		return sizeUpvalue
	case *object.Class:
		return sizeClass
	case *object.Instance:
		return sizeInstance
	case *object.BoundMethod:
		return sizeBoundMethod
	default:
		return 0
	}
}
