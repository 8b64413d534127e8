package vm

import (
	"unsafe"

	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/object"
)

// captureUpvalue returns the open Upvalue for vm.stack[slotIndex], reusing
// an existing one if some other closure already captured that exact slot
// (spec §3 invariant: "no two open Upvalues point to the same slot"). The
// open list is kept sorted by descending stack address so closeUpvalues can
// stop at the first upvalue below the target frame.
func (vm *VM) captureUpvalue(slotIndex int) *object.Upvalue {
	target := &vm.stack[slotIndex]

	var prev *object.Upvalue
	uv := vm.openUpvalues
	for uv != nil && addrOf(uv.Location) > addrOf(target) {
		prev = uv
		uv = uv.NextOpen
	}
	if uv != nil && uv.Location == target {
		return uv
	}

	created := vm.heap.NewUpvalue(target)
	created.NextOpen = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above fromIndex, copying the
// live stack value into the upvalue's own storage before the frame that owns
// that slot is popped.
func (vm *VM) closeUpvalues(fromIndex int) {
	target := &vm.stack[fromIndex]
	for vm.openUpvalues != nil && addrOf(vm.openUpvalues.Location) >= addrOf(target) {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}

// addrOf exposes a stack-slot pointer's relative address so the open-upvalue
// list can be ordered the same way clox orders raw stack pointers. All
// pointers compared this way point inside the same VM's fixed stack array.
func addrOf(p *bytecode.Value) uintptr { return uintptr(unsafe.Pointer(p)) }
