// Command sisa runs a raw SISA binary image to completion and reports the
// final register file. It is a minimal driver for exercising the vm
// package; it has no terminal UI, no REPL, and no peripheral rendering.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/smoynes/elsie/internal/log"
	"github.com/smoynes/elsie/internal/vm"
)

func main() {
	var (
		loadAddr = flag.Uint("load", 0xC000, "physical address to load the binary at")
		maxCycle = flag.Uint64("max-cycles", 10_000_000, "stop after this many cycles even if the CPU never halts")
	)

	flag.Parse()

	logger := log.DefaultLogger()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sisa [flags] <binary>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), vm.Word(*loadAddr), *maxCycle, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(path string, loadAddr vm.Word, maxCycles uint64, logger *log.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read binary: %w", err)
	}

	m := vm.New(vm.WithLogger(logger))
	m.LoadBinary(loadAddr, data)
	m.SetPC(loadAddr)

	for !m.CPUIsHalted() && m.Cycles < maxCycles {
		m.StepCycle()
	}

	if !m.CPUIsHalted() {
		return fmt.Errorf("did not halt within %d cycles", maxCycles)
	}

	fmt.Println(m)
	fmt.Println(m.Regs)
	fmt.Println(m.SRegs)

	return nil
}
