// Package vm implements the stack-based virtual machine of spec §4.4: a
// fetch-decode-execute loop over a call-frame stack, a value stack shared
// by every frame, closure upvalues with open/closed tracking, globals
// backed by lang/table, and class/instance/method dispatch.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/compiler"
	"github.com/emberlang/ember/lang/gc"
	"github.com/emberlang/ember/lang/object"
	"github.com/emberlang/ember/lang/table"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// frame is one active call: the closure being executed, its instruction
// pointer, and the base index into the VM's value stack where its local
// slots begin (slot 0 is the receiver or callee placeholder).
type frame struct {
	closure   *object.Closure
	ip        int
	slotsBase int
}

// VM is the stack-based interpreter of spec §4.4. Stdout, Stderr, and Stdin
// default to the process streams when nil; MaxSteps, if positive, bounds
// the number of instructions a single Interpret call may execute before it
// is aborted as a runtime error (an ambient safety limit, not part of the
// language's observable semantics).
type VM struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
	MaxSteps int

	heap *gc.Heap

	stack    [stackMax]bytecode.Value
	stackTop int

	frames     [framesMax]frame
	frameCount int

	globals      *table.Table
	openUpvalues *object.Upvalue

	initString  *object.String
	stdinReader *bufio.Reader

	// pending anchors a heap object that has been allocated but not yet
	// attached to any stack slot, frame, or global — e.g. the freshly
	// compiled top-level Function between compiler.Compile returning and
	// NewClosure linking it into a Closure. Without this, a collection
	// triggered by that very allocation (stress mode, or natural heap
	// growth) would sweep the Function before it becomes reachable through
	// the closure that wraps it (spec §5: transient-allocation sites must
	// keep their object rooted until it is attached). Set it immediately
	// before such an allocation and clear it once the object has a durable
	// root of its own.
	pending bytecode.Value

	steps int
}

var _ gc.RootProvider = (*VM)(nil)

// New returns a VM backed by heap, with natives registered and ready to
// interpret source.
func New(heap *gc.Heap) *VM {
	vm := &VM{heap: heap, globals: table.New()}
	heap.AddRootProvider(vm)
	vm.initString = heap.Intern("init")
	vm.RegisterNatives()
	return vm
}

// MarkRoots reports every root the VM owns: the live value stack, every
// active frame's closure, the open-upvalue list, the globals table (both
// keys and values), the cached "init" string, and any pending object
// awaiting attachment (spec §4.5 "Mark roots").
func (vm *VM) MarkRoots(mark bytecode.MarkFunc) {
	for i := 0; i < vm.stackTop; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(bytecode.FromObj(vm.frames[i].closure))
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		mark(bytecode.FromObj(uv))
	}
	vm.globals.Iterate(func(key *object.String, v bytecode.Value) {
		mark(bytecode.FromObj(key))
		mark(v)
	})
	if vm.initString != nil {
		mark(bytecode.FromObj(vm.initString))
	}
	if vm.pending.IsObj() {
		mark(vm.pending)
	}
}

// Interpret compiles and runs source to completion. It returns a
// *compiler.CompileError if compilation failed, a *RuntimeError if
// execution raised one, or nil on success.
func (vm *VM) Interpret(source string) error {
	vm.steps = 0
	fn, err := compiler.Compile(vm.heap, source)
	if err != nil {
		return err
	}

	// fn is already on the heap but reachable from nothing yet: keep it
	// rooted across the NewClosure allocation below, which can itself
	// trigger a collection before closure exists to reference it.
	vm.pending = bytecode.FromObj(fn)
	closure := vm.heap.NewClosure(fn)
	vm.pending = bytecode.Nil

	vm.push(bytecode.FromObj(closure))
	if err := vm.call(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) push(v bytecode.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() bytecode.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

func (vm *VM) stdin() io.Reader {
	if vm.Stdin != nil {
		return vm.Stdin
	}
	return os.Stdin
}

// run is the fetch-decode-execute loop: read a byte at ip, advance, dispatch.
// Bytecode is trusted (compiler-produced), so operand bounds aren't
// re-validated here (spec §4.4: "invariant checks are debug-only
// assertions").
func (vm *VM) run() error {
	fr := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := fr.closure.Fn.Chunk.Code[fr.ip]
		fr.ip++
		return b
	}
	readShort := func() int {
		hi := readByte()
		lo := readByte()
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() bytecode.Value {
		return fr.closure.Fn.Chunk.Constants[readByte()]
	}
	readConstantLong := func() bytecode.Value {
		idx := int(readByte())<<16 | int(readByte())<<8 | int(readByte())
		return fr.closure.Fn.Chunk.Constants[idx]
	}
	readString := func() *object.String { return readConstant().AsObj().(*object.String) }
	readStringLong := func() *object.String { return readConstantLong().AsObj().(*object.String) }

	for {
		vm.steps++
		if vm.MaxSteps > 0 && vm.steps > vm.MaxSteps {
			return vm.runtimeError("Execution step limit exceeded.")
		}

		op := bytecode.Opcode(readByte())
		switch op {
		case bytecode.OP_CONSTANT:
			vm.push(readConstant())
		case bytecode.OP_CONSTANT_LONG:
			vm.push(readConstantLong())
		case bytecode.OP_NIL:
			vm.push(bytecode.Nil)
		case bytecode.OP_TRUE:
			vm.push(bytecode.Bool(true))
		case bytecode.OP_FALSE:
			vm.push(bytecode.Bool(false))
		case bytecode.OP_POP:
			vm.pop()

		case bytecode.OP_EQUAL:
			b, a := vm.pop(), vm.pop()
			vm.push(bytecode.Bool(bytecode.Equal(a, b)))
		case bytecode.OP_NOT_EQUAL:
			b, a := vm.pop(), vm.pop()
			vm.push(bytecode.Bool(!bytecode.Equal(a, b)))
		case bytecode.OP_GREATER, bytecode.OP_GREATER_EQUAL, bytecode.OP_LESS, bytecode.OP_LESS_EQUAL:
			if err := vm.compare(op); err != nil {
				return err
			}
		case bytecode.OP_ADD:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.OP_SUBTRACT, bytecode.OP_MULTIPLY, bytecode.OP_DIVIDE:
			if err := vm.arith(op); err != nil {
				return err
			}
		case bytecode.OP_NOT:
			vm.push(bytecode.Bool(vm.pop().IsFalsey()))
		case bytecode.OP_NEGATE:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(bytecode.Number(-vm.pop().AsNumber()))

		case bytecode.OP_PRINT:
			fmt.Fprintln(vm.stdout(), vm.pop().String())

		case bytecode.OP_DEFINE_GLOBAL, bytecode.OP_DEFINE_GLOBAL_LONG:
			var name *object.String
			if op == bytecode.OP_DEFINE_GLOBAL {
				name = readString()
			} else {
				name = readStringLong()
			}
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case bytecode.OP_GET_GLOBAL, bytecode.OP_GET_GLOBAL_LONG:
			var name *object.String
			if op == bytecode.OP_GET_GLOBAL {
				name = readString()
			} else {
				name = readStringLong()
			}
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)

		case bytecode.OP_SET_GLOBAL, bytecode.OP_SET_GLOBAL_LONG:
			var name *object.String
			if op == bytecode.OP_SET_GLOBAL {
				name = readString()
			} else {
				name = readStringLong()
			}
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OP_GET_LOCAL:
			slot := readByte()
			vm.push(vm.stack[fr.slotsBase+int(slot)])
		case bytecode.OP_SET_LOCAL:
			slot := readByte()
			vm.stack[fr.slotsBase+int(slot)] = vm.peek(0)
		case bytecode.OP_GET_UPVALUE:
			slot := readByte()
			vm.push(fr.closure.Upvalues[slot].Get())
		case bytecode.OP_SET_UPVALUE:
			slot := readByte()
			fr.closure.Upvalues[slot].Set(vm.peek(0))

		case bytecode.OP_JUMP:
			offset := readShort()
			fr.ip += offset
		case bytecode.OP_JUMP_IF_FALSE:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				fr.ip += offset
			}
		case bytecode.OP_LOOP:
			offset := readShort()
			fr.ip -= offset

		case bytecode.OP_CALL:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			fr = &vm.frames[vm.frameCount-1]

		case bytecode.OP_CLOSURE, bytecode.OP_CLOSURE_LONG:
			var fnVal bytecode.Value
			if op == bytecode.OP_CLOSURE {
				fnVal = readConstant()
			} else {
				fnVal = readConstantLong()
			}
			childFn := fnVal.AsObj().(*object.Function)
			closure := vm.heap.NewClosure(childFn)
			vm.push(bytecode.FromObj(closure))
			for i := 0; i < childFn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(fr.slotsBase + int(index))
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}

		case bytecode.OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case bytecode.OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(fr.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = fr.slotsBase
			vm.push(result)
			fr = &vm.frames[vm.frameCount-1]

		case bytecode.OP_CLASS, bytecode.OP_CLASS_LONG:
			var name *object.String
			if op == bytecode.OP_CLASS {
				name = readString()
			} else {
				name = readStringLong()
			}
			vm.push(bytecode.FromObj(vm.heap.NewClass(name)))

		case bytecode.OP_INHERIT:
			if !vm.peek(1).Is(bytecode.ObjClass) {
				return vm.runtimeError("Superclass must be a class.")
			}
			super := vm.peek(1).AsObj().(*object.Class)
			sub := vm.peek(0).AsObj().(*object.Class)
			super.Methods.Iter(func(name string, m *object.Closure) bool {
				sub.Methods.Put(name, m)
				return false
			})
			vm.pop() // subclass; superclass remains bound as the `super` local

		case bytecode.OP_METHOD, bytecode.OP_METHOD_LONG:
			var name *object.String
			if op == bytecode.OP_METHOD {
				name = readString()
			} else {
				name = readStringLong()
			}
			vm.defineMethod(name)

		case bytecode.OP_GET_PROPERTY, bytecode.OP_GET_PROPERTY_LONG:
			var name *object.String
			if op == bytecode.OP_GET_PROPERTY {
				name = readString()
			} else {
				name = readStringLong()
			}
			if err := vm.getProperty(name); err != nil {
				return err
			}

		case bytecode.OP_SET_PROPERTY, bytecode.OP_SET_PROPERTY_LONG:
			var name *object.String
			if op == bytecode.OP_SET_PROPERTY {
				name = readString()
			} else {
				name = readStringLong()
			}
			if err := vm.setProperty(name); err != nil {
				return err
			}

		case bytecode.OP_GET_SUPER, bytecode.OP_GET_SUPER_LONG:
			var name *object.String
			if op == bytecode.OP_GET_SUPER {
				name = readString()
			} else {
				name = readStringLong()
			}
			super := vm.pop().AsObj().(*object.Class)
			if err := vm.bindMethod(super, name); err != nil {
				return err
			}

		case bytecode.OP_INVOKE, bytecode.OP_INVOKE_LONG:
			var name *object.String
			if op == bytecode.OP_INVOKE {
				name = readString()
			} else {
				name = readStringLong()
			}
			argCount := int(readByte())
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
			fr = &vm.frames[vm.frameCount-1]

		case bytecode.OP_SUPER_INVOKE, bytecode.OP_SUPER_INVOKE_LONG:
			var name *object.String
			if op == bytecode.OP_SUPER_INVOKE {
				name = readString()
			} else {
				name = readStringLong()
			}
			argCount := int(readByte())
			super := vm.pop().AsObj().(*object.Class)
			if err := vm.invokeFromClass(super, name, argCount); err != nil {
				return err
			}
			fr = &vm.frames[vm.frameCount-1]

		default:
			return vm.runtimeError("illegal opcode %s", op)
		}
	}
}
