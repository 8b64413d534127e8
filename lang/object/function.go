package object

import (
	"fmt"

	"github.com/emberlang/ember/lang/bytecode"
)

// Function is a compiled routine: its Chunk, declared arity, declared
// upvalue count, and an optional name. It is created by the compiler and
// never mutated after compilation of its body completes (spec §3: "after
// end_compiler its Chunk is immutable").
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        bytecode.Chunk
	Name         *String // nil for the top-level script
}

var (
	_ bytecode.Obj = (*Function)(nil)
	_ Traceable    = (*Function)(nil)
)

func (f *Function) ObjKind() bytecode.ObjKind { return bytecode.ObjFunction }

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// DisplayName returns the function's name for error messages and stack
// traces, or "script" for the top-level function.
func (f *Function) DisplayName() string {
	if f.Name == nil {
		return "script"
	}
	return f.Name.Chars
}

// Trace marks the function's name and every heap-object-valued constant in
// its chunk, including nested function constants (OP_CLOSURE reads them
// from the same pool), so they stay reachable for as long as the enclosing
// function is reachable.
func (f *Function) Trace(mark bytecode.MarkFunc) {
	if f.Name != nil {
		mark(bytecode.FromObj(f.Name))
	}
	for _, c := range f.Chunk.Constants {
		if c.IsObj() {
			mark(c)
		}
	}
}

// NativeFn is a host-provided callable. It receives the raw argument
// values and returns a result or an error.
type NativeFn func(args []bytecode.Value) (bytecode.Value, error)

// Native is a host-provided callable with a declared arity.
type Native struct {
	Header
	NameStr string
	Arity   int
	Fn      NativeFn
}

var (
	_ bytecode.Obj = (*Native)(nil)
	_ Traceable    = (*Native)(nil)
)

func (n *Native) ObjKind() bytecode.ObjKind { return bytecode.ObjNative }
func (n *Native) String() string            { return fmt.Sprintf("<native fn %s>", n.NameStr) }
func (n *Native) Trace(bytecode.MarkFunc)   {}
