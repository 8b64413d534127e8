package object

import "github.com/emberlang/ember/lang/bytecode"

// Closure is the runtime pairing of a Function with a fixed-length array of
// captured Upvalues. Every user-visible call target except Native and Class
// is a Closure. Its Upvalues slice length always equals Fn.UpvalueCount
// (spec §3 invariant).
type Closure struct {
	Header
	Fn       *Function
	Upvalues []*Upvalue
}

var (
	_ bytecode.Obj = (*Closure)(nil)
	_ Traceable    = (*Closure)(nil)
)

func (c *Closure) ObjKind() bytecode.ObjKind { return bytecode.ObjClosure }
func (c *Closure) String() string            { return c.Fn.String() }

func (c *Closure) Trace(mark bytecode.MarkFunc) {
	mark(bytecode.FromObj(c.Fn))
	for _, uv := range c.Upvalues {
		if uv != nil {
			mark(bytecode.FromObj(uv))
		}
	}
}

// Upvalue is a captured variable slot: a pointer into the value stack while
// open, plus an inline Closed slot once the corresponding stack slot has
// gone out of scope. Open is tracked by whether Location is non-nil.
type Upvalue struct {
	Header
	// Location points at the live stack slot while the upvalue is open. It
	// is nil once the upvalue has been closed, at which point Closed holds
	// the captured value.
	Location *bytecode.Value
	Closed   bytecode.Value
	// NextOpen links this upvalue into the VM's open-upvalue intrusive
	// list, sorted by descending stack address (spec §3 invariant). It is
	// owned by lang/vm, not read by the collector.
	NextOpen *Upvalue
}

var (
	_ bytecode.Obj = (*Upvalue)(nil)
	_ Traceable    = (*Upvalue)(nil)
)

func (u *Upvalue) ObjKind() bytecode.ObjKind { return bytecode.ObjUpvalue }
func (u *Upvalue) String() string            { return "upvalue" }

// IsOpen reports whether the upvalue is still pointing at a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.Location != nil }

// Get returns the upvalue's current value, whether open or closed.
func (u *Upvalue) Get() bytecode.Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through to the live stack slot if open, or to the closed
// inline slot otherwise.
func (u *Upvalue) Set(v bytecode.Value) {
	if u.Location != nil {
		*u.Location = v
	} else {
		u.Closed = v
	}
}

// Close copies the current value into the inline slot and redirects
// Location to nil, so subsequent Get/Set use Closed.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = nil
}

func (u *Upvalue) Trace(mark bytecode.MarkFunc) {
	if u.Location != nil {
		if u.Location.IsObj() {
			mark(*u.Location)
		}
		return
	}
	if u.Closed.IsObj() {
		mark(u.Closed)
	}
}
