package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/emberlang/ember/lang/compiler"
	"github.com/emberlang/ember/lang/gc"
	"github.com/emberlang/ember/lang/vm"
)

// Run compiles and executes the script named by args[0], returning the
// sysexits-style code the script's outcome maps to.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", args[0], err)
		return exitIOErr
	}

	cfg, err := LoadConfig(c.ConfigPath)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "config: %s\n", err)
		return exitIOErr
	}

	heap := gc.NewHeap()
	heap.StressGC = cfg.StressGC
	if cfg.HeapGrowFactor > 0 {
		heap.GrowFactor = cfg.HeapGrowFactor
	}

	machine := vm.New(heap)
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr
	machine.Stdin = stdio.Stdin
	machine.MaxSteps = cfg.MaxSteps

	if err := machine.Interpret(string(source)); err != nil {
		if ce, ok := err.(*compiler.CompileError); ok {
			fmt.Fprintln(stdio.Stderr, ce.Error())
			return exitCompileErr
		}
		// runtime errors have already been written to stdio.Stderr by the VM
		// itself, including the stack trace.
		return exitRuntimeErr
	}
	return exitSuccess
}
