package vm

import (
	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/object"
)

// add implements OP_ADD: number+number or string+string (concatenation,
// producing a fresh interned String). Any other operand combination is a
// runtime error.
func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(bytecode.Number(a.AsNumber() + b.AsNumber()))
	case a.Is(bytecode.ObjString) && b.Is(bytecode.ObjString):
		vm.pop()
		vm.pop()
		as := a.AsObj().(*object.String)
		bs := b.AsObj().(*object.String)
		vm.push(bytecode.FromObj(vm.heap.Intern(as.Chars + bs.Chars)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// arith implements OP_SUBTRACT, OP_MULTIPLY, and OP_DIVIDE, all of which
// require two number operands.
func (vm *VM) arith(op bytecode.Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b, a := vm.pop().AsNumber(), vm.pop().AsNumber()
	switch op {
	case bytecode.OP_SUBTRACT:
		vm.push(bytecode.Number(a - b))
	case bytecode.OP_MULTIPLY:
		vm.push(bytecode.Number(a * b))
	case bytecode.OP_DIVIDE:
		vm.push(bytecode.Number(a / b))
	}
	return nil
}

// compare implements OP_GREATER, OP_GREATER_EQUAL, OP_LESS, and
// OP_LESS_EQUAL, all of which require two number operands.
func (vm *VM) compare(op bytecode.Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b, a := vm.pop().AsNumber(), vm.pop().AsNumber()
	switch op {
	case bytecode.OP_GREATER:
		vm.push(bytecode.Bool(a > b))
	case bytecode.OP_GREATER_EQUAL:
		vm.push(bytecode.Bool(a >= b))
	case bytecode.OP_LESS:
		vm.push(bytecode.Bool(a < b))
	case bytecode.OP_LESS_EQUAL:
		vm.push(bytecode.Bool(a <= b))
	}
	return nil
}
