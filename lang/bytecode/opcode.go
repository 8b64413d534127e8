// Package bytecode defines the packed instruction set, the tagged runtime
// Value union, and the Chunk container that the compiler emits into and the
// VM executes. It is the lowest-level package in the module: it has no
// dependency on lang/object, so that heap object kinds (which embed a
// Chunk inside Function) can depend on bytecode without a cycle.
package bytecode

import "fmt"

// Opcode is a single bytecode instruction. Some opcodes take no operand;
// constant-indexed opcodes take an operand whose width depends on whether
// the short or long form is used (see the OP_*_LONG entries).
type Opcode uint8

//nolint:revive
const (
	OP_CONSTANT Opcode = iota
	OP_CONSTANT_LONG
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_EQUAL
	OP_NOT_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT

	OP_DEFINE_GLOBAL
	OP_DEFINE_GLOBAL_LONG
	OP_GET_GLOBAL
	OP_GET_GLOBAL_LONG
	OP_SET_GLOBAL
	OP_SET_GLOBAL_LONG
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_UPVALUE
	OP_SET_UPVALUE

	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP

	OP_CALL
	OP_CLOSURE
	OP_CLOSURE_LONG
	OP_CLOSE_UPVALUE
	OP_RETURN

	OP_CLASS
	OP_CLASS_LONG
	OP_INHERIT
	OP_METHOD
	OP_METHOD_LONG
	OP_GET_PROPERTY
	OP_GET_PROPERTY_LONG
	OP_SET_PROPERTY
	OP_SET_PROPERTY_LONG
	OP_GET_SUPER
	OP_GET_SUPER_LONG
	OP_INVOKE
	OP_INVOKE_LONG
	OP_SUPER_INVOKE
	OP_SUPER_INVOKE_LONG

	maxOpcode
)

var opcodeNames = [...]string{
	OP_CONSTANT:           "constant",
	OP_CONSTANT_LONG:      "constant_long",
	OP_NIL:                "nil",
	OP_TRUE:               "true",
	OP_FALSE:              "false",
	OP_POP:                "pop",
	OP_EQUAL:              "equal",
	OP_NOT_EQUAL:          "not_equal",
	OP_GREATER:            "greater",
	OP_GREATER_EQUAL:      "greater_equal",
	OP_LESS:               "less",
	OP_LESS_EQUAL:         "less_equal",
	OP_ADD:                "add",
	OP_SUBTRACT:           "subtract",
	OP_MULTIPLY:           "multiply",
	OP_DIVIDE:             "divide",
	OP_NOT:                "not",
	OP_NEGATE:             "negate",
	OP_PRINT:              "print",
	OP_DEFINE_GLOBAL:      "define_global",
	OP_DEFINE_GLOBAL_LONG: "define_global_long",
	OP_GET_GLOBAL:         "get_global",
	OP_GET_GLOBAL_LONG:    "get_global_long",
	OP_SET_GLOBAL:         "set_global",
	OP_SET_GLOBAL_LONG:    "set_global_long",
	OP_GET_LOCAL:          "get_local",
	OP_SET_LOCAL:          "set_local",
	OP_GET_UPVALUE:        "get_upvalue",
	OP_SET_UPVALUE:        "set_upvalue",
	OP_JUMP:               "jump",
	OP_JUMP_IF_FALSE:      "jump_if_false",
	OP_LOOP:               "loop",
	OP_CALL:               "call",
	OP_CLOSURE:            "closure",
	OP_CLOSURE_LONG:       "closure_long",
	OP_CLOSE_UPVALUE:      "close_upvalue",
	OP_RETURN:             "return",
	OP_CLASS:              "class",
	OP_CLASS_LONG:         "class_long",
	OP_INHERIT:            "inherit",
	OP_METHOD:             "method",
	OP_METHOD_LONG:        "method_long",
	OP_GET_PROPERTY:       "get_property",
	OP_GET_PROPERTY_LONG:  "get_property_long",
	OP_SET_PROPERTY:       "set_property",
	OP_SET_PROPERTY_LONG:  "set_property_long",
	OP_GET_SUPER:          "get_super",
	OP_GET_SUPER_LONG:     "get_super_long",
	OP_INVOKE:             "invoke",
	OP_INVOKE_LONG:        "invoke_long",
	OP_SUPER_INVOKE:       "super_invoke",
	OP_SUPER_INVOKE_LONG:  "super_invoke_long",
}

func (op Opcode) String() string {
	if op < maxOpcode {
		if s := opcodeNames[op]; s != "" {
			return s
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}
