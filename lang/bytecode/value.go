package bytecode

import "fmt"

// ObjKind identifies the concrete kind of a heap object. It is a closed,
// finite variant; lang/object implements exactly one Go type per kind.
type ObjKind uint8

//nolint:revive
const (
	ObjString ObjKind = iota
	ObjFunction
	ObjNative
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjBoundMethod
)

func (k ObjKind) String() string {
	switch k {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjNative:
		return "native"
	case ObjClosure:
		return "closure"
	case ObjUpvalue:
		return "upvalue"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjBoundMethod:
		return "bound method"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap-allocated value kind (lang/object). It is
// defined here, rather than in lang/object, so that Value (and Chunk, which
// embeds a Constants pool of Values) can refer to heap objects without
// lang/bytecode depending on lang/object.
type Obj interface {
	// ObjKind reports the concrete heap object kind.
	ObjKind() ObjKind
	// String returns the textual form used by PRINT and in error messages.
	String() string
}

// MarkFunc is the callback a Traceable heap object uses to report the
// Values it references to the collector during tracing.
type MarkFunc func(Value)

// valueKind is the tag of the small Value union.
type valueKind uint8

const (
	valueNil valueKind = iota
	valueBool
	valueNumber
	valueObj
)

// Value is a small, copyable tagged union: nil, a boolean, a double, or a
// reference to a heap object.
type Value struct {
	kind valueKind
	num  float64
	obj  Obj
}

// Nil is the singular nil value.
var Nil = Value{kind: valueNil}

// Bool returns the Value wrapping b.
func Bool(b bool) Value {
	n := 0.0
	if b {
		n = 1
	}
	return Value{kind: valueBool, num: n}
}

// Number returns the Value wrapping f.
func Number(f float64) Value { return Value{kind: valueNumber, num: f} }

// FromObj returns the Value referencing the heap object o.
func FromObj(o Obj) Value { return Value{kind: valueObj, obj: o} }

func (v Value) IsNil() bool    { return v.kind == valueNil }
func (v Value) IsBool() bool   { return v.kind == valueBool }
func (v Value) IsNumber() bool { return v.kind == valueNumber }
func (v Value) IsObj() bool    { return v.kind == valueObj }

// AsBool does not check v's kind; callers must check IsBool first
// (mirroring the compiler-trusted, assertion-only discipline of spec §4.4).
func (v Value) AsBool() bool { return v.num != 0 }

func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObj() Obj        { return v.obj }

// Is reports whether v holds a heap object of the given kind.
func (v Value) Is(kind ObjKind) bool {
	return v.kind == valueObj && v.obj.ObjKind() == kind
}

// IsFalsey implements the language's truthiness rule: Nil, Bool(false), and
// Number(0) are all falsey. This is a deliberate deviation from the more
// common convention that only nil/false are falsey; spec §4.4/§9 mandate it.
func (v Value) IsFalsey() bool {
	switch v.kind {
	case valueNil:
		return true
	case valueBool:
		return v.num == 0
	case valueNumber:
		return v.num == 0
	default:
		return false
	}
}

// Equal implements the language's == operator. Numbers compare with IEEE-754
// double equality (NaN != NaN, +0 == -0); objects compare by identity, which
// is correct for interned strings and reference types alike; values of
// different kinds are never equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case valueNil:
		return true
	case valueBool, valueNumber:
		return a.num == b.num
	case valueObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String returns the textual form of v, as used by PRINT.
func (v Value) String() string {
	switch v.kind {
	case valueNil:
		return "nil"
	case valueBool:
		return fmt.Sprintf("%t", v.AsBool())
	case valueNumber:
		return formatNumber(v.num)
	case valueObj:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

// TypeName returns a short description of v's runtime type, for error
// messages.
func (v Value) TypeName() string {
	switch v.kind {
	case valueNil:
		return "nil"
	case valueBool:
		return "boolean"
	case valueNumber:
		return "number"
	case valueObj:
		return v.obj.ObjKind().String()
	default:
		return "invalid"
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
