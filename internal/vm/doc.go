/*
Package vm implements the core of an emulator for SISA, a pedagogical 16-bit
word-addressed processor with paged virtual memory, vectored traps, and a
port-addressed I/O bus.

The package models the fetch-execute state machine, instruction decode and
semantics, TLB-based address translation, the exception/interrupt delivery
protocol, and the I/O port bus that interactive peripherals plug into. It
does not implement a host-side driver: no terminal UI, no raw-mode stdin
handling, no file loading, no VGA-to-stdout rendering, no breakpoint REPL.
Those are a host's job, built on the API this package exports.

# CPU

The machine is extraordinarily simple. It has:

  - a program counter and instruction register
  - eight general-purpose registers
  - eight system registers, the last of which is the live processor status
    word (mode and interrupt-enable bits)
  - two translation lookaside buffers, one for instruction fetch and one for
    data access
  - a 256-port I/O bus
  - a 64 KiB byte-addressed memory

# Sequencer

Unlike a conventional single Step() call, the CPU advances in discrete
micro-steps, one per call to [Machine.StepCycle]: FETCH, DEMW (decode,
execute, memory access, writeback), NOP (a one-step bubble inserted when an
instruction completes cleanly but a pending interrupt is about to be taken),
and SYSTEM (trap entry). This exists so that debuggers and tests can
single-step through trap entry as an independently observable transition,
rather than have it folded into instruction execution.

# Translation

Addresses are translated through one of two 8-entry, fully-associative TLBs
(instruction and data) unless translation is disabled, in which case the
virtual address passes through unchanged. A translation failure raises one
of several typed exceptions depending on which TLB was consulted and why
the lookup failed; see [TLB.Translate].

# Traps

All faults -- decode, alignment, arithmetic, translation, and supervisor
call -- and all enabled, pending interrupts are delivered through the same
path: the SYSTEM sequencer state, which saves the live PSW and PC, loads the
cause code, and jumps to the trap vector with interrupts disabled and system
privileges. See [Machine.StepCycle].
*/
package vm
