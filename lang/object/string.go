package object

import (
	"github.com/emberlang/ember/lang/bytecode"
)

// String is an immutable byte sequence. All Strings are interned (see
// lang/gc's intern table): equal byte sequences share exactly one live
// String object, so equality reduces to pointer identity.
type String struct {
	Header
	Chars string
	Hash  uint32
}

var (
	_ bytecode.Obj = (*String)(nil)
	_ Traceable    = (*String)(nil)
)

func (s *String) ObjKind() bytecode.ObjKind { return bytecode.ObjString }

// String returns the raw bytes: PRINT and string concatenation both expect
// the unquoted textual form. Callers that need a quoted form for error
// messages (e.g. "Undefined variable 'x'.") add the quotes around s.Chars
// themselves.
func (s *String) String() string { return s.Chars }

// Trace is a no-op: a String has no outgoing owned references.
func (s *String) Trace(bytecode.MarkFunc) {}

// FNV1a computes the 32-bit FNV-1a hash of s, per spec §4.5.
func FNV1a(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
