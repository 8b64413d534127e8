package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/lang/compiler"
	"github.com/emberlang/ember/lang/gc"
)

func mustCompile(t *testing.T, source string) {
	t.Helper()
	heap := gc.NewHeap()
	fn, err := compiler.Compile(heap, source)
	require.NoError(t, err)
	require.NotNil(t, fn)
}

func compileErr(t *testing.T, source string) *compiler.CompileError {
	t.Helper()
	heap := gc.NewHeap()
	_, err := compiler.Compile(heap, source)
	require.Error(t, err)
	ce, ok := err.(*compiler.CompileError)
	require.True(t, ok)
	return ce
}

func TestCompileSimpleProgramsSucceed(t *testing.T) {
	programs := []string{
		`print "hello";`,
		`var x = 1; print x;`,
		`fun f(a, b) { return a + b; } print f(1, 2);`,
		`class A { greet() { print "A"; } } A().greet();`,
		`class A { greet() { print "A"; } } class B < A { greet() { super.greet(); print "B"; } } B().greet();`,
		`fun makeCounter() { var i = 0; fun c() { i = i + 1; print i; } return c; } var a = makeCounter(); a();`,
		`if (1) { print "t"; } else { print "f"; }`,
		`var i = 0; while (i < 3) { i = i + 1; }`,
		`for (var i = 0; i < 3; i = i + 1) { print i; }`,
		`class P { init(x) { this.x = x; } } print P(7).x;`,
	}
	for _, src := range programs {
		mustCompile(t, src)
	}
}

func TestSelfReferentialLocalInitializerIsCompileError(t *testing.T) {
	ce := compileErr(t, `{ var x = x; }`)
	require.Contains(t, ce.Error(), "Can't read local variable in its own initializer.")
}

func TestInvalidAssignmentTargetIsCompileError(t *testing.T) {
	ce := compileErr(t, `1 + 2 = 3;`)
	require.Contains(t, ce.Error(), "Invalid assignment target.")
}

func TestReturnValueFromInitializerIsCompileError(t *testing.T) {
	ce := compileErr(t, `class Q { init() { return 1; } }`)
	require.Contains(t, ce.Error(), "Can't return a value from an initializer.")
}

func TestClassInheritingFromItselfIsCompileError(t *testing.T) {
	ce := compileErr(t, `class A < A {}`)
	require.Contains(t, ce.Error(), "A class can't inherit from itself.")
}

func TestSameScopeShadowingIsCompileError(t *testing.T) {
	ce := compileErr(t, `{ var x = 1; var x = 2; }`)
	require.Contains(t, ce.Error(), "Already a variable with this name in this scope.")
}

func TestCrossScopeShadowingIsAllowed(t *testing.T) {
	mustCompile(t, `var x = 1; { var x = 2; print x; }`)
}

func TestReturnOutsideFunctionIsCompileError(t *testing.T) {
	ce := compileErr(t, `return 1;`)
	require.Contains(t, ce.Error(), "Can't return from top-level code.")
}

func TestThisOutsideClassIsCompileError(t *testing.T) {
	ce := compileErr(t, `print this;`)
	require.Contains(t, ce.Error(), "Can't use 'this' outside of a class.")
}

func TestSuperWithoutSuperclassIsCompileError(t *testing.T) {
	ce := compileErr(t, `class A { f() { super.f(); } }`)
	require.Contains(t, ce.Error(), "Can't use 'super' in a class with no superclass.")
}

func TestUnterminatedStringIsCompileError(t *testing.T) {
	ce := compileErr(t, "print \"unterminated;")
	require.Contains(t, ce.Error(), "Unterminated string.")
}

func TestMultipleErrorsAreGatheredViaSynchronization(t *testing.T) {
	ce := compileErr(t, `{ var x = x; } { var y = y; }`)
	require.Len(t, ce.Messages, 2)
}
