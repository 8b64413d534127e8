package vm

import (
	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/object"
)

// callValue dispatches a call to whatever kind of callable sits at callee,
// per spec §4.4's call_value table: closures, natives, classes (which
// instantiate), and bound methods (which rebind the receiver into slot 0).
func (vm *VM) callValue(callee bytecode.Value, argCount int) error {
	if callee.IsObj() {
		switch callee.AsObj().ObjKind() {
		case bytecode.ObjClosure:
			return vm.call(callee.AsObj().(*object.Closure), argCount)
		case bytecode.ObjNative:
			return vm.callNative(callee.AsObj().(*object.Native), argCount)
		case bytecode.ObjClass:
			return vm.instantiate(callee.AsObj().(*object.Class), argCount)
		case bytecode.ObjBoundMethod:
			bound := callee.AsObj().(*object.BoundMethod)
			vm.stack[vm.stackTop-argCount-1] = bound.Receiver
			return vm.call(bound.Method, argCount)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

// call pushes a new frame for closure over the argCount arguments already
// sitting on top of the value stack (plus the callee itself at slot 0).
func (vm *VM) call(closure *object.Closure, argCount int) error {
	if argCount != closure.Fn.Arity {
		return vm.runtimeError("Expected %d arguments, but got %d.", closure.Fn.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}

	fr := &vm.frames[vm.frameCount]
	vm.frameCount++
	fr.closure = closure
	fr.ip = 0
	fr.slotsBase = vm.stackTop - argCount - 1
	return nil
}

// callNative invokes a host function directly, without pushing a frame.
func (vm *VM) callNative(native *object.Native, argCount int) error {
	if argCount != native.Arity {
		return vm.runtimeError("Expected %d arguments, but got %d.", native.Arity, argCount)
	}
	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, err := native.Fn(args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

// instantiate allocates a new Instance of class, replaces the class value on
// the stack with it (so init sees it at slot 0), and runs init if the class
// declares one.
func (vm *VM) instantiate(class *object.Class, argCount int) error {
	inst := vm.heap.NewInstance(class)
	vm.stack[vm.stackTop-argCount-1] = bytecode.FromObj(inst)

	if init, ok := class.Methods.Get(vm.initString.Chars); ok {
		return vm.call(init, argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("Expected 0 arguments, but got %d.", argCount)
	}
	return nil
}

// invoke resolves name on the instance sitting argCount below the stack top:
// a field shadowing a method wins and is called through callValue, otherwise
// the method is dispatched directly without an intermediate BoundMethod
// allocation (spec §4.4's OP_INVOKE fast path).
func (vm *VM) invoke(name *object.String, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.Is(bytecode.ObjInstance) {
		return vm.runtimeError("Only instances have methods.")
	}

	inst := receiver.AsObj().(*object.Instance)
	if field, ok := inst.Fields.Get(name.Chars); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.Class, name *object.String, argCount int) error {
	method, ok := class.Methods.Get(name.Chars)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method, argCount)
}

func (vm *VM) bindMethod(class *object.Class, name *object.String) error {
	method, ok := class.Methods.Get(name.Chars)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.heap.NewBoundMethod(vm.peek(0), method)
	vm.pop()
	vm.push(bytecode.FromObj(bound))
	return nil
}

func (vm *VM) defineMethod(name *object.String) {
	method := vm.peek(0).AsObj().(*object.Closure)
	class := vm.peek(1).AsObj().(*object.Class)
	class.Methods.Put(name.Chars, method)
	vm.pop()
}

func (vm *VM) getProperty(name *object.String) error {
	v := vm.peek(0)
	if !v.Is(bytecode.ObjInstance) {
		return vm.runtimeError("Only instances have properties.")
	}
	inst := v.AsObj().(*object.Instance)
	if field, ok := inst.Fields.Get(name.Chars); ok {
		vm.pop()
		vm.push(field)
		return nil
	}
	return vm.bindMethod(inst.Class, name)
}

func (vm *VM) setProperty(name *object.String) error {
	if !vm.peek(1).Is(bytecode.ObjInstance) {
		return vm.runtimeError("Only instances have fields.")
	}
	inst := vm.peek(1).AsObj().(*object.Instance)
	inst.Fields.Put(name.Chars, vm.peek(0))
	value := vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}
