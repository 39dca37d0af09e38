package vm

import "testing"

// programMovImm assembles a MOVI/MOVHI pair that loads imm16 into rd, for tests
// that need a known register value without going through memory.
func programMovImm(rd GPR, imm16 Word) []Instruction {
	lo := Instruction(uint16(OcMov)<<12 | uint16(rd)<<9 | uint16(imm16&0xFF))
	hi := Instruction(uint16(OcMov)<<12 | uint16(rd)<<9 | uint16(FnMovHI)<<8 | uint16(imm16>>8&0xFF))

	return []Instruction{lo, hi}
}

func load(m *Machine, addr Word, instrs ...Instruction) {
	for i, ir := range instrs {
		m.Mem.WriteWord(addr+Word(i)*2, Word(ir))
	}
}

// runUntilFetch steps the machine until it returns to StateFetch, assuming
// it started at StateFetch; this runs exactly one instruction to
// completion (FETCH, DEMW, and, if a trap was taken, NOP/SYSTEM).
func runUntilFetch(t *testing.T, m *Machine) {
	t.Helper()

	m.StepCycle() // FETCH
	m.StepCycle() // DEMW

	for m.Seq != StateFetch && !m.Halted {
		m.StepCycle()
	}
}

func TestSequencerFetchDEMWRoundTrip(t *testing.T) {
	m := New(WithTLBEnabled(false))
	m.SetPC(0x2000)

	instrs := programMovImm(R0, 0x1234)
	load(m, 0x2000, instrs...)

	if m.Seq != StateFetch {
		t.Fatalf("initial state = %s, want FETCH", m.Seq)
	}

	runUntilFetch(t, m)

	if m.Regs[R0] != Register(0x0034) {
		t.Fatalf("after MOVI, R0 = %s, want 0x0034", m.Regs[R0])
	}

	if m.PC != 0x2002 {
		t.Fatalf("PC = %s, want 0x2002", m.PC)
	}

	runUntilFetch(t, m)

	if m.Regs[R0] != Register(0x1234) {
		t.Fatalf("after MOVHI, R0 = %s, want 0x1234", m.Regs[R0])
	}
}

func TestSequencerIllegalInstructionTraps(t *testing.T) {
	m := New(WithTLBEnabled(false))
	m.SetPC(0x2000)
	m.SRegs[STrapVector] = 0x0100

	// SPECIAL with an undefined 6-bit function code.
	load(m, 0x2000, Instruction(uint16(OcSpecial)<<12|0x3F))

	m.StepCycle() // FETCH
	m.StepCycle() // DEMW: decode fault -> SYSTEM next

	if m.Seq != StateSystem {
		t.Fatalf("seq = %s, want SYSTEM after an instruction fault", m.Seq)
	}

	if !m.ExcHappened() {
		t.Fatal("ExcHappened should be true while Seq is SYSTEM")
	}

	m.StepCycle() // SYSTEM: deliver trap

	if m.SRegs[SCause] != Register(ExcIllegalInstr) {
		t.Fatalf("S2 = %s, want ILLEGAL_INSTR", m.SRegs[SCause])
	}

	if m.PC != 0x0100 {
		t.Fatalf("PC = %s, want trap vector 0x0100", m.PC)
	}

	if !m.PSW.System() || m.PSW.InterruptsEnabled() {
		t.Fatal("trap entry should force system mode and disable interrupts")
	}
}

func TestSequencerRETIRestoresState(t *testing.T) {
	m := New(WithTLBEnabled(false))
	m.SetPC(0x0100)
	m.SRegs[SSavedPSW] = Register(PSW(0)) // user mode, interrupts disabled
	m.SRegs[SSavedPSW] |= Register(PSWInterruptEnable)
	m.SRegs[SSavedPC] = 0x2000

	load(m, 0x0100, Instruction(uint16(OcSpecial)<<12|uint16(FnRETI)))

	runUntilFetch(t, m)

	if m.PC != 0x2000 {
		t.Fatalf("PC after RETI = %s, want 0x2000", m.PC)
	}

	if m.PSW.System() {
		t.Fatal("RETI should restore the saved (user) mode")
	}

	if !m.PSW.InterruptsEnabled() {
		t.Fatal("RETI should restore the saved interrupt-enable bit")
	}
}

func TestSequencerHaltStopsStepping(t *testing.T) {
	m := New(WithTLBEnabled(false))
	m.SetPC(0x2000)

	load(m, 0x2000, Instruction(uint16(OcSpecial)<<12|uint16(FnHALT)))

	runUntilFetch(t, m)

	if !m.Halted {
		t.Fatal("HALT should set Halted")
	}

	cyclesBefore := m.Cycles
	m.StepCycle()

	if m.Cycles != cyclesBefore {
		t.Fatal("StepCycle on a halted machine should not advance the cycle count")
	}
}

func TestSequencerInterruptTakesNOPBubble(t *testing.T) {
	m := New(WithTLBEnabled(false))
	m.SetPC(0x2000)
	m.PSW.SetInterruptsEnabled(true)
	m.SRegs[STrapVector] = 0x0100

	// AND R0, R0, R0: a harmless instruction that completes without fault.
	load(m, 0x2000, Instruction(uint16(OcArithLogic)<<12))

	m.Interrupts.Raise(InterruptTimer)

	m.StepCycle() // FETCH
	m.StepCycle() // DEMW: completes, interrupt recognized -> NOP

	if m.Seq != StateNOP {
		t.Fatalf("seq = %s, want NOP bubble before trap delivery", m.Seq)
	}

	m.StepCycle() // NOP -> SYSTEM

	if m.Seq != StateSystem {
		t.Fatalf("seq = %s, want SYSTEM", m.Seq)
	}

	m.StepCycle() // SYSTEM: deliver

	if m.SRegs[SCause] != Register(ExcInterrupt) {
		t.Fatalf("S2 = %s, want INTERRUPT", m.SRegs[SCause])
	}
}

func TestLoadStoreFaultLeavesStateUnchanged(t *testing.T) {
	m := New() // translation enabled

	m.SetPC(0x2000)
	m.PSW.SetSystem(ModeUser)

	// LOAD R0, [R1 + 0]; R1 points at a page (0xC000) privileged and
	// inaccessible from user mode.
	m.Regs[R1] = Register(0xC000)
	m.Regs[R0] = 0xBEEF

	load(m, 0x2000, Instruction(uint16(OcLoad)<<12|uint16(R0)<<9|uint16(R1)<<6))

	m.StepCycle() // FETCH
	m.StepCycle() // DEMW: translation fault

	if m.Seq != StateSystem {
		t.Fatalf("seq = %s, want SYSTEM", m.Seq)
	}

	if m.Regs[R0] != 0xBEEF {
		t.Fatal("a faulting LOAD must not modify its destination register")
	}

	m.StepCycle() // SYSTEM: deliver trap

	if m.SRegs[SCause] != Register(ExcDTLBProtected) {
		t.Fatalf("cause = %s, want DTLB_PROTECTED", m.SRegs[SCause])
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	m := New(WithTLBEnabled(false))
	m.SetPC(0x2000)
	m.SRegs[STrapVector] = 0x0100

	m.Regs[R1] = 10
	m.Regs[R2] = 0

	// DIV R0, R1, R2.
	load(m, 0x2000, Instruction(uint16(OcMulDiv)<<12|uint16(R0)<<9|uint16(R1)<<6|uint16(FnDiv)<<3|uint16(R2)))

	runUntilFetch(t, m)

	if m.SRegs[SCause] != Register(ExcDivisionByZero) {
		t.Fatalf("cause = %s, want DIVISION_BY_ZERO", m.SRegs[SCause])
	}
}

func TestBreakpointReachedOnlyAtFetch(t *testing.T) {
	m := New(WithTLBEnabled(false))
	m.SetPC(0x2000)
	m.AddBreakpoint(0x2000)

	if !m.BreakpointReached() {
		t.Fatal("breakpoint should be reported at FETCH with matching PC")
	}

	load(m, 0x2000, Instruction(uint16(OcArithLogic)<<12))
	m.StepCycle() // FETCH -> DEMW

	if m.BreakpointReached() {
		t.Fatal("breakpoint should not be reported outside FETCH")
	}
}
