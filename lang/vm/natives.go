package vm

import (
	"bufio"
	"strings"
	"time"

	"github.com/emberlang/ember/lang/bytecode"
	"github.com/emberlang/ember/lang/object"
)

// RegisterNatives installs the host-provided functions spec §4.6 requires:
// clock, a zero-argument timer, and readln, a zero-argument line reader. New
// is responsible for calling this once per VM before the first Interpret.
func (vm *VM) RegisterNatives() {
	start := time.Now()
	vm.defineNative("clock", 0, func(args []bytecode.Value) (bytecode.Value, error) {
		// Go's standard library has no portable, cgo-free way to read true
		// process CPU time, so this approximates clox's clock() with
		// wall-clock seconds elapsed since the VM was constructed.
		return bytecode.Number(time.Since(start).Seconds()), nil
	})

	vm.defineNative("readln", 0, func(args []bytecode.Value) (bytecode.Value, error) {
		if vm.stdinReader == nil {
			vm.stdinReader = bufio.NewReader(vm.stdin())
		}
		line, err := vm.stdinReader.ReadString('\n')
		if err != nil && line == "" {
			return bytecode.Nil, nil
		}
		line = strings.TrimRight(line, "\r\n")
		return bytecode.FromObj(vm.heap.Intern(line)), nil
	})
}

func (vm *VM) defineNative(name string, arity int, fn object.NativeFn) {
	native := vm.heap.NewNative(name, arity, fn)
	key := vm.heap.Intern(name)
	vm.globals.Set(key, bytecode.FromObj(native))
}
