package bytecode

import "golang.org/x/exp/constraints"

// lineRun is one entry of the run-length-encoded line table: line is the
// source line that starts at code index startOffset.
type lineRun struct {
	line        int
	startOffset int
}

// Chunk is a packed bytecode buffer paired with a run-length-encoded line
// table and a constants pool, owned by a single Function. It is mutable
// while its owning compiler is active and frozen once end-of-compilation is
// reached (lang/compiler enforces the freeze; Chunk itself stays a plain
// value type so tests can build one without a compiler).
type Chunk struct {
	Code      []byte
	Constants []Value
	lines     []lineRun
}

// Write appends a single byte to the code buffer, recording line as its
// source line if it differs from the line of the previous byte.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	if n := len(c.lines); n == 0 || c.lines[n-1].line != line {
		c.lines = append(c.lines, lineRun{line: line, startOffset: len(c.Code) - 1})
	}
}

// AddConstant appends v to the constants pool and returns its index.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// GetLine returns the source line associated with the instruction at the
// given code index: the largest line_number whose stored start offset is
// <= offset.
func (c *Chunk) GetLine(offset int) int {
	lo, hi := 0, len(c.lines)-1
	line := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if c.lines[mid].startOffset <= offset {
			line = c.lines[mid].line
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return line
}

// ClampMin returns the larger of a and b. Shared generic helper; used by
// lang/gc for next_gc heap-growth bookkeeping.
func ClampMin[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
