package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"

	"github.com/emberlang/ember/lang/compiler"
	"github.com/emberlang/ember/lang/gc"
	"github.com/emberlang/ember/lang/vm"
)

// Repl reads one line at a time from stdio.Stdin, compiling and running each
// as an independent top-level program against one long-lived VM and heap, so
// globals and classes declared on one line are visible on the next. A
// compile or runtime error on one line is reported and the loop continues
// (spec §8 scenario 6: the REPL recovers from a runtime error).
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) mainer.ExitCode {
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

	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if ctx.Err() != nil {
			return exitSuccess
		}
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return exitSuccess
		}

		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := machine.Interpret(line); err != nil {
			if ce, ok := err.(*compiler.CompileError); ok {
				fmt.Fprintln(stdio.Stderr, ce.Error())
			}
			// runtime errors have already been written to stdio.Stderr by the
			// VM itself, including the stack trace. Either way, the REPL stays
			// up for the next line.
			continue
		}
	}
}
