package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/gc"
)

// fakeRoots lets a test control exactly what the collector sees as a root
// for a given cycle.
type fakeRoots struct {
	values []bytecode.Value
}

func (f *fakeRoots) MarkRoots(mark bytecode.MarkFunc) {
	for _, v := range f.values {
		mark(v)
	}
}

func TestInternReturnsSameObjectForEqualBytes(t *testing.T) {
	h := gc.NewHeap()
	a := h.Intern("foobar")
	b := h.Intern("foobar")
	require.Same(t, a, b)

	c := h.Intern("other")
	require.NotSame(t, a, c)
}

func TestCollectFreesUnreachableObjects(t *testing.T) {
	h := gc.NewHeap()
	roots := &fakeRoots{}
	h.AddRootProvider(roots)

	name := h.Intern("Reachable")
	cls := h.NewClass(name)
	roots.values = []bytecode.Value{bytecode.FromObj(cls)}

	// An instance that nothing roots.
	garbageName := h.Intern("Garbage")
	garbageClass := h.NewClass(garbageName)
	h.NewInstance(garbageClass)

	before := h.BytesAllocated()
	h.Collect()
	after := h.BytesAllocated()
	require.Less(t, after, before, "unreachable objects should be swept")

	// The rooted class and its name must survive.
	require.Equal(t, "Reachable", cls.Name.Chars)
}

func TestWeakInternedStringCollectedWhenUnreferenced(t *testing.T) {
	h := gc.NewHeap()
	roots := &fakeRoots{}
	h.AddRootProvider(roots)

	first := h.Intern("lonely")
	roots.values = nil

	h.Collect()

	// After a cycle with no roots holding it, a fresh Intern call must
	// allocate a new object rather than finding a stale one, proving the
	// old entry was removed from the table during RemoveWhite.
	again := h.Intern("lonely")
	require.Equal(t, "lonely", again.Chars)
	require.NotSame(t, first, again)
}

func TestRootedStringSurvivesCollection(t *testing.T) {
	h := gc.NewHeap()
	roots := &fakeRoots{}
	h.AddRootProvider(roots)

	s := h.Intern("kept")
	roots.values = []bytecode.Value{bytecode.FromObj(s)}

	h.Collect()

	again := h.Intern("kept")
	require.Same(t, s, again)
}

func TestTraceReachesThroughClosureAndUpvalue(t *testing.T) {
	h := gc.NewHeap()
	roots := &fakeRoots{}
	h.AddRootProvider(roots)

	fnName := h.Intern("f")
	fn := h.NewFunction()
	fn.Name = fnName
	fn.UpvalueCount = 1

	captured := h.Intern("captured-string")
	slot := bytecode.FromObj(captured)
	uv := h.NewUpvalue(&slot)
	uv.Close() // detach from the (fake) stack slot so only Closed holds it

	closure := h.NewClosure(fn)
	closure.Upvalues[0] = uv

	roots.values = []bytecode.Value{bytecode.FromObj(closure)}

	h.Collect()

	again := h.Intern("captured-string")
	require.Same(t, captured, again, "string reachable via closure->upvalue->closed value must survive")
}

func TestStressGCCollectsOnEveryAllocation(t *testing.T) {
	h := gc.NewHeap()
	h.StressGC = true
	roots := &fakeRoots{}
	h.AddRootProvider(roots)

	s := h.Intern("kept")
	roots.values = []bytecode.Value{bytecode.FromObj(s)}

	// Each of these allocations would trigger a collection under stress
	// mode; none of them should disturb the rooted string.
	for i := 0; i < 5; i++ {
		h.Intern("throwaway")
	}

	again := h.Intern("kept")
	require.Same(t, s, again)
}

func TestNewInstanceTraceMarksClassAndFields(t *testing.T) {
	h := gc.NewHeap()
	roots := &fakeRoots{}
	h.AddRootProvider(roots)

	className := h.Intern("Point")
	class := h.NewClass(className)
	inst := h.NewInstance(class)

	fieldName := h.Intern("label")
	fieldVal := h.Intern("origin")
	inst.Fields.Put(fieldName.Chars, bytecode.FromObj(fieldVal))

	roots.values = []bytecode.Value{bytecode.FromObj(inst)}
	h.Collect()

	again := h.Intern("origin")
	require.Same(t, fieldVal, again, "field value reachable via instance must survive")

	classAgain := h.Intern("Point")
	require.Same(t, className, classAgain, "class name reachable via instance->class must survive")
}
