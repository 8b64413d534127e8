package object

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/emberlang/ember/lang/bytecode"
)

// Instance is a runtime object: a reference to its Class plus a mapping
// from field name to Value. Fields are created on first assignment, so the
// map starts empty rather than pre-sized from the class shape.
type Instance struct {
	Header
	Class  *Class
	Fields *swiss.Map[string, bytecode.Value]
}

var (
	_ bytecode.Obj = (*Instance)(nil)
	_ Traceable    = (*Instance)(nil)
)

// NewInstance returns a new, field-less instance of class.
func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: swiss.NewMap[string, bytecode.Value](0)}
}

func (i *Instance) ObjKind() bytecode.ObjKind { return bytecode.ObjInstance }
func (i *Instance) String() string            { return fmt.Sprintf("<%s instance>", i.Class.Name.Chars) }

func (i *Instance) Trace(mark bytecode.MarkFunc) {
	mark(bytecode.FromObj(i.Class))
	i.Fields.Iter(func(_ string, v bytecode.Value) bool {
		if v.IsObj() {
			mark(v)
		}
		return false
	})
}

// BoundMethod pairs a receiver Value with a method Closure, produced when a
// method is accessed as a first-class value (e.g. `var m = instance.method;`).
type BoundMethod struct {
	Header
	Receiver bytecode.Value
	Method   *Closure
}

var (
	_ bytecode.Obj = (*BoundMethod)(nil)
	_ Traceable    = (*BoundMethod)(nil)
)

func (b *BoundMethod) ObjKind() bytecode.ObjKind { return bytecode.ObjBoundMethod }
func (b *BoundMethod) String() string            { return b.Method.String() }

func (b *BoundMethod) Trace(mark bytecode.MarkFunc) {
	if b.Receiver.IsObj() {
		mark(b.Receiver)
	}
	mark(bytecode.FromObj(b.Method))
}
