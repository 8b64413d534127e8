package vm

import "fmt"

// RuntimeError is returned by Interpret when execution fails after
// compilation succeeded. Message is the error text; Trace holds the
// top-down call-stack lines printed alongside it (innermost frame first,
// including frame 0, per spec §7's redesigned stack-trace behavior).
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string { return e.Message }

// runtimeError formats msg, writes it and a full stack trace to Stderr,
// resets the VM to a clean idle state, and returns the error to the caller.
func (vm *VM) runtimeError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		line := fr.closure.Fn.Chunk.GetLine(fr.ip - 1)
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, fr.closure.Fn.DisplayName()))
	}

	fmt.Fprintln(vm.stderr(), msg)
	for _, line := range trace {
		fmt.Fprintln(vm.stderr(), line)
	}

	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}
