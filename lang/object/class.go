package object

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/emberlang/ember/lang/bytecode"
)

// Class is a named template with a mapping from method name to method
// Closure. Method lookup (including inherited methods, copied in by
// OP_INHERIT) only ever needs get/put/iterate, so it is backed by
// dolthub/swiss rather than the hand-rolled table in lang/table (that one
// exists specifically for the intern/globals tombstone contract, see
// lang/table's doc comment).
type Class struct {
	Header
	Name    *String
	Methods *swiss.Map[string, *Closure]
}

var (
	_ bytecode.Obj = (*Class)(nil)
	_ Traceable    = (*Class)(nil)
)

// NewClass returns an empty class named name.
func NewClass(name *String) *Class {
	return &Class{Name: name, Methods: swiss.NewMap[string, *Closure](8)}
}

func (c *Class) ObjKind() bytecode.ObjKind { return bytecode.ObjClass }
func (c *Class) String() string            { return fmt.Sprintf("<class %s>", c.Name.Chars) }

func (c *Class) Trace(mark bytecode.MarkFunc) {
	mark(bytecode.FromObj(c.Name))
	c.Methods.Iter(func(_ string, m *Closure) bool {
		mark(bytecode.FromObj(m))
		return false
	})
}
