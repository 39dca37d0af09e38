package vm

// exec.go is the fetch-execute sequencer: a four-state micro-sequencer
// advanced one state per call to StepCycle, and the executor that carries
// out a decoded Op. Keeping FETCH, DEMW, the NOP bubble, and SYSTEM as
// four distinct, externally observable steps -- rather than folding trap
// delivery into the instruction that caused it -- is a deliberate design
// choice: callers stepping one micro-state at a time can see a trap being
// taken as its own step, just as they see an instruction being fetched as
// its own step.

import "fmt"

// SeqState is one state of the micro-sequencer.
type SeqState uint8

const (
	// StateFetch translates PC through the ITLB and loads IR.
	StateFetch SeqState = iota
	// StateDEMW decodes IR, executes it, advances PC, and checks for a
	// fault or a recognized interrupt.
	StateDEMW
	// StateNOP is a one-step bubble inserted between an instruction that
	// completed cleanly and a recognized external interrupt, so that trap
	// entry is never folded into the instruction that happened to be
	// running when the interrupt arrived.
	StateNOP
	// StateSystem delivers a trap: it latches the saved PSW/PC/cause and
	// redirects control to the trap vector.
	StateSystem
)

var seqStateNames = [...]string{"FETCH", "DEMW", "NOP", "SYSTEM"}

func (s SeqState) String() string {
	if int(s) < len(seqStateNames) {
		return seqStateNames[s]
	}

	return fmt.Sprintf("SEQ(%d)", uint8(s))
}

// ExcHappened reports whether the sequencer is currently delivering a trap.
// It is true only while Seq is StateSystem, matching the source's
// exc_happened flag, which is set for the duration of trap entry and
// cleared as soon as it completes.
func (m *Machine) ExcHappened() bool { return m.Seq == StateSystem }

// StepCycle advances the sequencer by exactly one micro-step and
// increments the cycle counter. A halted machine does nothing.
func (m *Machine) StepCycle() {
	if m.Halted {
		return
	}

	m.Cycles++
	m.IO.setCycles(m.Cycles)
	m.tickPeriodic()

	switch m.Seq {
	case StateFetch:
		m.stepFetch()
	case StateDEMW:
		m.stepDEMW()
	case StateNOP:
		m.Seq = StateSystem
	case StateSystem:
		m.stepSystem()
	}
}

// tickPeriodic applies the timer interrupt and millisecond-counter
// decrement, both driven solely by the free-running cycle count (§4.4): no
// goroutine or wall clock is involved.
func (m *Machine) tickPeriodic() {
	if m.Cycles%CyclesPerTimer == 0 {
		m.Interrupts.Raise(InterruptTimer)
	}

	if m.Cycles%CyclesPerMilli == 0 {
		m.IO.tickMillis()
	}
}

func (m *Machine) stepFetch() {
	userMode := !m.PSW.System()

	addr := m.PC
	if m.TLBEnabled {
		paddr, fault := m.ITLB.Translate(m.PC, true, false, userMode)
		if fault != nil {
			m.pendingFault = fault
			m.Seq = StateSystem

			return
		}

		addr = paddr
	}

	m.IR = Instruction(m.Mem.ReadWord(addr))
	m.Seq = StateDEMW
}

func (m *Machine) stepDEMW() {
	op, fault := Decode(m.IR)
	if fault == nil {
		fault = m.execute(op)
	}

	m.PC += 2

	switch {
	case fault != nil:
		m.pendingFault = fault
		m.Seq = StateSystem
	case m.Interrupts.Any() && m.PSW.InterruptsEnabled():
		m.pendingFault = &Fault{Kind: ExcInterrupt}
		m.Seq = StateNOP
	default:
		m.Seq = StateFetch
	}
}

// stepSystem performs trap entry (§7): the live PSW and the address of the
// next instruction are saved to S0/S1, the cause is latched in S2 (and the
// faulting address or CALLS argument in S3), the machine is forced to
// system mode with interrupts disabled, and control transfers to the trap
// vector held in S5.
func (m *Machine) stepSystem() {
	fault := m.pendingFault
	m.pendingFault = nil

	m.SRegs[SSavedPSW] = Register(m.PSW)
	m.SRegs[SSavedPC] = Register(m.PC)
	m.SRegs[SCause] = Register(fault.Kind)
	m.SRegs[SFaultAddr] = Register(fault.Addr)

	m.PSW.SetSystem(ModeSystem)
	m.PSW.SetInterruptsEnabled(false)

	m.PC = Word(m.SRegs[STrapVector])
	m.Seq = StateFetch

	if m.logger != nil {
		m.logger.Debug("trap", "cause", fault.Kind, "addr", fault.Addr, "vector", m.PC)
	}
}

// execute carries out a decoded operation. It returns the fault raised, if
// any; LOAD/STORE family operations check translation before touching any
// register or memory cell, so a faulting access leaves all state unchanged
// (§7).
func (m *Machine) execute(op Op) *Fault {
	switch op.Kind {
	case OpAnd:
		m.setReg(op.Rd, m.reg(op.Ra)&m.reg(op.Rb))
	case OpOr:
		m.setReg(op.Rd, m.reg(op.Ra)|m.reg(op.Rb))
	case OpXor:
		m.setReg(op.Rd, m.reg(op.Ra)^m.reg(op.Rb))
	case OpNot:
		m.setReg(op.Rd, ^m.reg(op.Ra))
	case OpAdd:
		m.setReg(op.Rd, m.reg(op.Ra)+m.reg(op.Rb))
	case OpSub:
		m.setReg(op.Rd, m.reg(op.Ra)-m.reg(op.Rb))
	case OpSha:
		m.setReg(op.Rd, arithShift(m.reg(op.Ra), m.reg(op.Rb)))
	case OpShl:
		m.setReg(op.Rd, logicalShift(m.reg(op.Ra), m.reg(op.Rb)))

	case OpCmpLT:
		m.setReg(op.Rd, boolWord(int16(m.reg(op.Ra)) < int16(m.reg(op.Rb))))
	case OpCmpLE:
		m.setReg(op.Rd, boolWord(int16(m.reg(op.Ra)) <= int16(m.reg(op.Rb))))
	case OpCmpEQ:
		m.setReg(op.Rd, boolWord(m.reg(op.Ra) == m.reg(op.Rb)))
	case OpCmpLTU:
		m.setReg(op.Rd, boolWord(m.reg(op.Ra) < m.reg(op.Rb)))
	case OpCmpLEU:
		m.setReg(op.Rd, boolWord(m.reg(op.Ra) <= m.reg(op.Rb)))

	case OpAddI:
		m.setReg(op.Rd, m.reg(op.Rd)+op.Imm)

	case OpLoadWord:
		return m.loadWord(op.Rd, op.Ra, op.Disp)
	case OpStoreWord:
		return m.storeWord(op.Rd, op.Ra, op.Disp)
	case OpLoadByte:
		return m.loadByte(op.Rd, op.Ra, op.Disp)
	case OpStoreByte:
		return m.storeByte(op.Rd, op.Ra, op.Disp)

	case OpMovI:
		m.setReg(op.Rd, op.Imm)
	case OpMovHI:
		m.setReg(op.Rd, m.reg(op.Rd)&0x00FF|op.Imm<<8)

	case OpBZ:
		if m.reg(op.Ra) == 0 {
			m.PC += op.Imm - 2
		}
	case OpBNZ:
		if m.reg(op.Ra) != 0 {
			m.PC += op.Imm - 2
		}

	case OpIn:
		m.setReg(op.Rd, m.IO.Load(m.reg(op.Ra)))
	case OpOut:
		src, raise := m.IO.Store(m.reg(op.Ra), m.reg(op.Rd))
		if raise {
			m.Interrupts.Raise(src)
		}

	case OpMul:
		m.setReg(op.Rd, m.reg(op.Ra)*m.reg(op.Rb))
	case OpMulH:
		m.setReg(op.Rd, Word((int32(int16(m.reg(op.Ra)))*int32(int16(m.reg(op.Rb))))>>16))
	case OpMulHU:
		m.setReg(op.Rd, Word((uint32(m.reg(op.Ra))*uint32(m.reg(op.Rb)))>>16))
	case OpDiv:
		if m.reg(op.Rb) == 0 {
			return &Fault{Kind: ExcDivisionByZero, Addr: Word(m.IR)}
		}

		m.setReg(op.Rd, Word(int16(m.reg(op.Ra))/int16(m.reg(op.Rb))))
	case OpDivU:
		if m.reg(op.Rb) == 0 {
			return &Fault{Kind: ExcDivisionByZero, Addr: Word(m.IR)}
		}

		m.setReg(op.Rd, m.reg(op.Ra)/m.reg(op.Rb))

	case OpJZ:
		if m.reg(op.Rd) == 0 {
			m.PC = m.reg(op.Ra) - 2
		}
	case OpJNZ:
		if m.reg(op.Rd) != 0 {
			m.PC = m.reg(op.Ra) - 2
		}
	case OpJmp:
		m.PC = m.reg(op.Ra) - 2
	case OpJal:
		target := m.reg(op.Ra)
		m.setReg(op.Rd, m.PC+2)
		m.PC = target - 2
	case OpCalls:
		return &Fault{Kind: ExcCalls, Addr: m.reg(op.Ra)}

	case OpEI:
		m.PSW.SetInterruptsEnabled(true)
	case OpDI:
		m.PSW.SetInterruptsEnabled(false)
	case OpRETI:
		m.PSW = PSW(m.SRegs[SSavedPSW])
		m.PC = Word(m.SRegs[SSavedPC]) - 2
	case OpGETIID:
		src, ok := m.Interrupts.TakeLowest()
		if !ok {
			m.setReg(op.Rd, 0)
		} else {
			m.setReg(op.Rd, Word(src))
		}
	case OpRDS:
		m.setReg(op.Rd, m.sreg(op.Sa))
	case OpWRS:
		m.setSreg(op.Sd, m.reg(op.Ra))
	case OpWRPI:
		m.ITLB.WriteProtection(uint8(m.reg(op.Rd)&0xF), m.reg(op.Ra))
	case OpWRVI:
		m.ITLB.WriteVPN(uint8(m.reg(op.Rd)&0xF), m.reg(op.Ra))
	case OpWRPD:
		m.DTLB.WriteProtection(uint8(m.reg(op.Rd)&0xF), m.reg(op.Ra))
	case OpWRVD:
		m.DTLB.WriteVPN(uint8(m.reg(op.Rd)&0xF), m.reg(op.Ra))
	case OpFLUSH:
		m.ITLB.Reset()
		m.DTLB.Reset()
	case OpHALT:
		m.Halted = true
	}

	return nil
}

func (m *Machine) reg(r GPR) Word      { return Word(m.Regs[r]) }
func (m *Machine) setReg(r GPR, v Word) { m.Regs[r] = Register(v) }

// sreg reads a system register, aliasing SPSW (S7) to the live PSW.
func (m *Machine) sreg(s SReg) Word {
	if s == SPSW {
		return Word(m.PSW)
	}

	return Word(m.SRegs[s])
}

// setSreg writes a system register, aliasing SPSW (S7) to the live PSW.
func (m *Machine) setSreg(s SReg, v Word) {
	if s == SPSW {
		m.PSW = PSW(v)

		return
	}

	m.SRegs[s] = Register(v)
}

func boolWord(b bool) Word {
	if b {
		return 1
	}

	return 0
}

// arithShift implements SHA: a positive shift amount shifts left, a
// negative one shifts right, arithmetically (sign-preserving). The shift
// amount is taken from the low 5 bits of b, interpreted as signed.
func arithShift(a, b Word) Word {
	amt := int16(b.Sext(5))

	switch {
	case amt >= 0:
		return a << uint16(amt)
	default:
		return Word(int16(a) >> uint16(-amt))
	}
}

// logicalShift implements SHL: a positive shift amount shifts left, a
// negative one shifts right, logically (zero-filling). The shift amount is
// taken from the low 5 bits of b, interpreted as signed.
func logicalShift(a, b Word) Word {
	amt := int16(b.Sext(5))

	switch {
	case amt >= 0:
		return a << uint16(amt)
	default:
		return a >> uint16(-amt)
	}
}

// loadWord, storeWord, loadByte, and storeByte translate through the DTLB
// before touching memory or a register, so a fault leaves both unchanged.

func (m *Machine) loadWord(rd, rb GPR, disp Word) *Fault {
	paddr, fault := m.translateData(m.reg(rb)+disp<<1, true, false)
	if fault != nil {
		return fault
	}

	m.setReg(rd, m.Mem.ReadWord(paddr))

	return nil
}

func (m *Machine) storeWord(rd, rb GPR, disp Word) *Fault {
	paddr, fault := m.translateData(m.reg(rb)+disp<<1, true, true)
	if fault != nil {
		return fault
	}

	m.Mem.WriteWord(paddr, m.reg(rd))

	return nil
}

func (m *Machine) loadByte(rd, rb GPR, disp Word) *Fault {
	paddr, fault := m.translateData(m.reg(rb)+disp, false, false)
	if fault != nil {
		return fault
	}

	m.setReg(rd, Word(m.Mem.ReadByte(paddr)))

	return nil
}

func (m *Machine) storeByte(rd, rb GPR, disp Word) *Fault {
	paddr, fault := m.translateData(m.reg(rb)+disp, false, true)
	if fault != nil {
		return fault
	}

	m.Mem.WriteByte(paddr, byte(m.reg(rd)))

	return nil
}

func (m *Machine) translateData(vaddr Word, wordAccess, write bool) (Word, *Fault) {
	if !m.TLBEnabled {
		return vaddr, nil
	}

	return m.DTLB.Translate(vaddr, wordAccess, write, !m.PSW.System())
}
