package vm

// vm.go assembles the CPU state into a single Machine and implements the
// Core API: construction, reset, the external stimulus entry points
// (keys/switches/keyboard), breakpoints, and binary loading. Its shape
// -- a struct of plain fields built by functional options, grounded on
// the teacher's OptionFn/WithX pattern in vm.go -- is kept; its contents
// are SISA's architectural state rather than LC-3's.

import (
	"fmt"

	"github.com/smoynes/elsie/internal/log"
)

// Reset PC: the first instruction fetched after power-on or a call to
// Reset (§6).
const ResetPC Word = 0xC000

// Timing constants (§4.4). The sequencer has no background goroutines or
// wall-clock timers; both the periodic timer interrupt and the
// millisecond counter are driven purely by the free-running cycle count.
const (
	CPUClockFreq   = 6_250_000
	TimerFreq      = 20
	CyclesPerTimer = CPUClockFreq / TimerFreq // 312,500
	CyclesPerMilli = CPUClockFreq / 1000      // 6,250
)

// Machine is the complete, self-contained CPU: registers, memory, TLBs, the
// I/O bus, and the sequencer's own state. A Machine holds no pointers back
// to anything that constructed it; every external event (a key press, a
// switch flip) is delivered by calling a method on the Machine itself.
type Machine struct {
	PC  Word
	IR  Instruction
	Seq SeqState

	PSW   PSW
	Regs  RegisterFile
	SRegs SystemRegisterFile

	ITLB *TLB
	DTLB *TLB

	Mem Memory
	IO  IOPorts

	Interrupts PendingInterrupts

	TLBEnabled bool
	Halted     bool
	Cycles     uint64

	// pendingFault carries the cause of a trap from the step that detected
	// it to the SYSTEM step that delivers it.
	pendingFault *Fault

	breakpoints map[Word]struct{}

	logger *log.Logger
}

// OptionFn configures a Machine at construction time.
type OptionFn func(*Machine)

// WithLogger attaches a logger the Machine uses for trap and I/O tracing.
func WithLogger(l *log.Logger) OptionFn {
	return func(m *Machine) { m.logger = l }
}

// WithTLBEnabled sets the initial state of address translation. Translation
// is enabled by default, matching reset (§6); this option exists for tests
// that want an untranslated, physically-addressed machine from the start.
func WithTLBEnabled(enabled bool) OptionFn {
	return func(m *Machine) { m.TLBEnabled = enabled }
}

// New builds a Machine in its post-reset state.
func New(opts ...OptionFn) *Machine {
	m := &Machine{
		logger: log.DefaultLogger(),
	}

	m.Reset()

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Reset restores architectural state to its power-on values (§6): PC at
// ResetPC, system/supervisor mode with interrupts disabled, the FETCH
// sequencer state, zeroed cycle count, both TLBs at their reset mappings,
// translation enabled, and the I/O bus at its reset values. Breakpoints are
// left untouched: they are a debugging aid external to the architecture.
func (m *Machine) Reset() {
	m.PC = ResetPC
	m.IR = 0
	m.Seq = StateFetch

	m.PSW = 0
	m.PSW.SetSystem(ModeSystem)
	m.PSW.SetInterruptsEnabled(false)
	m.Regs = RegisterFile{}
	m.SRegs = SystemRegisterFile{}

	m.ITLB = NewTLB(KindInstruction)
	m.DTLB = NewTLB(KindData)
	m.TLBEnabled = true

	m.Mem = Memory{}
	m.IO.Reset()

	m.Interrupts = 0
	m.Halted = false
	m.Cycles = 0
	m.pendingFault = nil

	if m.breakpoints == nil {
		m.breakpoints = make(map[Word]struct{})
	}
}

// SetPC overrides the program counter, for loading and resuming at an
// arbitrary entry point.
func (m *Machine) SetPC(pc Word) { m.PC = pc }

// TLBSetEnabled enables or disables address translation. With translation
// disabled, LOAD/STORE/fetch addresses pass through to physical memory
// unchanged and never fault (§4.2).
func (m *Machine) TLBSetEnabled(enabled bool) { m.TLBEnabled = enabled }

// CPUIsHalted reports whether the sequencer has executed HALT.
func (m *Machine) CPUIsHalted() bool { return m.Halted }

// LoadBinary copies a raw binary image into physical memory starting at
// addr.
func (m *Machine) LoadBinary(addr Word, data []byte) {
	m.Mem.LoadBinary(addr, data)
}

// AddBreakpoint arms a breakpoint at a physical/virtual instruction
// address. Breakpoints are tested only when the sequencer is about to fetch
// at that address (§4.6); they have no effect on translation or execution
// themselves.
func (m *Machine) AddBreakpoint(addr Word) {
	m.breakpoints[addr] = struct{}{}
}

// RemoveBreakpoint disarms a previously armed breakpoint, if any.
func (m *Machine) RemoveBreakpoint(addr Word) {
	delete(m.breakpoints, addr)
}

// BreakpointReached reports whether the sequencer is in its FETCH state
// with PC at an armed breakpoint. It is meaningless, and always false, in
// any other sequencer state.
func (m *Machine) BreakpointReached() bool {
	if m.Seq != StateFetch {
		return false
	}

	_, ok := m.breakpoints[m.PC]

	return ok
}

// Destroy releases the breakpoint set. The Go runtime's garbage collector
// makes this unnecessary for correctness; the method exists to keep the
// Core API's construct/destroy symmetry (§6) explicit at call sites.
func (m *Machine) Destroy() {
	m.breakpoints = nil
}

// KeysSet overwrites the KEYS port, raising INTERRUPT_KEY if the value
// changed.
func (m *Machine) KeysSet(value Word) {
	if m.IO.KeysSet(value) {
		m.Interrupts.Raise(InterruptKey)
	}
}

// KeyToggle flips bit n of the KEYS port and raises INTERRUPT_KEY.
func (m *Machine) KeyToggle(n uint8) {
	m.IO.KeyToggle(n)
	m.Interrupts.Raise(InterruptKey)
}

// SwitchesSet overwrites the SWITCHES port, raising INTERRUPT_SWITCH if the
// value changed.
func (m *Machine) SwitchesSet(value Word) {
	if m.IO.SwitchesSet(value) {
		m.Interrupts.Raise(InterruptSwitch)
	}
}

// SwitchToggle flips bit n of the SWITCHES port and raises
// INTERRUPT_SWITCH.
func (m *Machine) SwitchToggle(n uint8) {
	m.IO.SwitchToggle(n)
	m.Interrupts.Raise(InterruptSwitch)
}

// KeyboardPress delivers a keystroke to the keyboard port, raising
// INTERRUPT_KEYBOARD if it was placed directly into KB_READ_CHAR rather
// than buffered behind an unconsumed key.
func (m *Machine) KeyboardPress(key byte) {
	if m.IO.KeyboardPress(key) {
		m.Interrupts.Raise(InterruptKeyboard)
	}
}

func (m *Machine) String() string {
	return fmt.Sprintf("Machine(pc:%s seq:%s psw:%s cycles:%d halted:%t)",
		m.PC, m.Seq, m.PSW, m.Cycles, m.Halted)
}

// LogValue renders the Machine's architectural state for structured
// logging, grounded on the teacher's vm.LogValue group pattern.
func (m *Machine) LogValue() log.Value {
	return log.GroupValue(
		log.Any("pc", m.PC),
		log.String("seq", m.Seq.String()),
		log.String("psw", m.PSW.String()),
		log.Any("cycles", m.Cycles),
		log.Any("halted", m.Halted),
	)
}
