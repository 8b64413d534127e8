package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/lang/gc"
	"github.com/emberlang/ember/lang/vm"
)

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	heap := gc.NewHeap()
	machine := vm.New(heap)
	var out bytes.Buffer
	machine.Stdout = &out
	err := machine.Interpret(source)
	return out.String(), err
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestClosuresCaptureByReference(t *testing.T) {
	out, err := run(t, `
		fun makeCounter() { var i = 0; fun c() { i = i + 1; print i; } return c; }
		var a = makeCounter(); a(); a(); a();
	`)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3"}, lines(out))
}

func TestClassesInheritanceSuper(t *testing.T) {
	out, err := run(t, `
		class A { greet() { print "A"; } }
		class B < A { greet() { super.greet(); print "B"; } }
		B().greet();
	`)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, lines(out))
}

func TestInitializerBindsFields(t *testing.T) {
	out, err := run(t, `class P { init(x) { this.x = x; } } print P(7).x;`)
	require.NoError(t, err)
	require.Equal(t, []string{"7"}, lines(out))
}

func TestStringInterningDeterminesEquality(t *testing.T) {
	out, err := run(t, `var a = "foo" + "bar"; var b = "foobar"; print a == b;`)
	require.NoError(t, err)
	require.Equal(t, []string{"true"}, lines(out))
}

func TestArityMismatchIsRecoverableRuntimeError(t *testing.T) {
	heap := gc.NewHeap()
	machine := vm.New(heap)
	var out, errOut bytes.Buffer
	machine.Stdout = &out
	machine.Stderr = &errOut

	require.NoError(t, machine.Interpret(`fun f(a) {}`))

	err := machine.Interpret(`f();`)
	require.Error(t, err)
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Equal(t, "Expected 1 arguments, but got 0.", re.Message)

	// the VM recovers: a subsequent, well-formed call succeeds.
	require.NoError(t, machine.Interpret(`f(1);`))
}

func TestStressGCKeepsProgramOutputIdentical(t *testing.T) {
	source := `
		class Node { init(v) { this.value = v; this.next = nil; } }
		fun build(n) {
			var head = nil;
			for (var i = 0; i < n; i = i + 1) {
				var node = Node(i);
				node.next = head;
				head = node;
			}
			return head;
		}
		var list = build(20);
		var sum = 0;
		while (list != nil) {
			sum = sum + list.value;
			list = list.next;
		}
		print sum;
	`

	heap := gc.NewHeap()
	machine := vm.New(heap)
	var out bytes.Buffer
	machine.Stdout = &out
	require.NoError(t, machine.Interpret(source))

	stressHeap := gc.NewHeap()
	stressHeap.StressGC = true
	stressMachine := vm.New(stressHeap)
	var stressOut bytes.Buffer
	stressMachine.Stdout = &stressOut
	require.NoError(t, stressMachine.Interpret(source))

	require.Equal(t, out.String(), stressOut.String())
}

func TestRuntimeErrorPrintsStackTraceTopDown(t *testing.T) {
	heap := gc.NewHeap()
	machine := vm.New(heap)
	var out, errOut bytes.Buffer
	machine.Stdout = &out
	machine.Stderr = &errOut

	err := machine.Interpret(`
		fun inner() { return 1 + "x"; }
		fun outer() { return inner(); }
		outer();
	`)
	require.Error(t, err)
	re := err.(*vm.RuntimeError)
	require.Equal(t, "Operands must be two numbers or two strings.", re.Message)
	require.GreaterOrEqual(t, len(re.Trace), 2)
	require.Contains(t, re.Trace[0], "in inner")
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, `print undefinedThing;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Undefined variable 'undefinedThing'.")
}

func TestMaxStepsAbortsRunawayLoop(t *testing.T) {
	heap := gc.NewHeap()
	machine := vm.New(heap)
	machine.MaxSteps = 1000
	var out bytes.Buffer
	machine.Stdout = &out

	err := machine.Interpret(`while (true) {}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "step limit")
}
