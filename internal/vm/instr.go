package vm

// instr.go decodes the bit fields out of a raw fetched Instruction. It knows
// nothing about execution; Op in decode.go turns these fields into a tagged
// operation the sequencer can run.

import "fmt"

// Instruction is a raw fetched word, not yet decoded.
type Instruction Word

func (i Instruction) String() string {
	return fmt.Sprintf("%s (op:%s)", Word(i), i.Opcode())
}

// Opcode is the instruction's top 4 bits, bits[15:12].
type Opcode uint8

// Opcodes (§4.3).
const (
	OcArithLogic Opcode = 0x0
	OcCompare    Opcode = 0x1
	OcAddImm     Opcode = 0x2
	OcLoad       Opcode = 0x3
	OcStore      Opcode = 0x4
	OcMov        Opcode = 0x5
	OcRelJump    Opcode = 0x6
	OcInOut      Opcode = 0x7
	OcMulDiv     Opcode = 0x8
	OcFloatOp    Opcode = 0x9
	OcAbsJump    Opcode = 0xA
	OcLoadFloat  Opcode = 0xB
	OcStoreFloat Opcode = 0xC
	OcLoadByte   Opcode = 0xD
	OcStoreByte  Opcode = 0xE
	OcSpecial    Opcode = 0xF
)

var opcodeNames = map[Opcode]string{
	OcArithLogic: "ARIT_LOGIC",
	OcCompare:    "COMPARE",
	OcAddImm:     "ADDI",
	OcLoad:       "LOAD",
	OcStore:      "STORE",
	OcMov:        "MOV",
	OcRelJump:    "REL_JMP",
	OcInOut:      "IN_OUT",
	OcMulDiv:     "MUL_DIV",
	OcFloatOp:    "FLOAT_OP",
	OcAbsJump:    "ABS_JMP",
	OcLoadFloat:  "LOAD_F",
	OcStoreFloat: "STORE_F",
	OcLoadByte:   "LOAD_BYTE",
	OcStoreByte:  "STORE_BYTE",
	OcSpecial:    "SPECIAL",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}

	return fmt.Sprintf("OP(%#x)", uint8(o))
}

// Opcode extracts bits[15:12].
func (i Instruction) Opcode() Opcode { return Opcode(i >> 12 & 0xF) }

// Rd extracts the destination register field at bits[11:9], used by
// ARIT_LOGIC, ADDI, LOAD, LOAD_BYTE, MOV, MUL_DIV.
func (i Instruction) Rd() GPR { return GPR(i >> 9 & 0x7) }

// Ra9 extracts the first source register field at bits[11:9], used by
// STORE, STORE_BYTE, REL_JMP, IN_OUT.
func (i Instruction) Ra9() GPR { return GPR(i >> 9 & 0x7) }

// Rb0 extracts the second source register field at bits[2:0], used by
// ARIT_LOGIC, COMPARE, MUL_DIV.
func (i Instruction) Rb0() GPR { return GPR(i & 0x7) }

// Rb9 extracts a register field at bits[11:9] used in the IN/OUT data
// register position; identical bit position to Ra9, named for readability
// at call sites.
func (i Instruction) Rb9() GPR { return GPR(i >> 9 & 0x7) }

// Sd extracts the field at bits[11:9] as a system register: the destination
// of WRS. RDS and WRPI/WRVI/WRPD/WRVD read the same bits as a GPR.
func (i Instruction) Sd() SReg { return SReg(i >> 9 & 0x7) }

// Sa extracts the field at bits[2:0] as a system register: the source of
// RDS. WRS and WRPI/WRVI/WRPD/WRVD read the same bits as a GPR.
func (i Instruction) Sa() SReg { return SReg(i & 0x7) }

// Ra6 extracts a register field at bits[8:6]: the first source operand of
// ARIT_LOGIC, COMPARE, and MUL_DIV, the base register of LOAD/STORE/LOAD_BYTE/STORE_BYTE, and the
// port-number register of IN_OUT.
func (i Instruction) Ra6() GPR { return GPR(i >> 6 & 0x7) }

// Imm8 extracts the signed 8-bit immediate at bits[7:0], used by ADDI, MOV,
// REL_JMP.
func (i Instruction) Imm8() Word { return Sext8(Word(i) & 0xFF) }

// Disp6 extracts the signed 6-bit displacement at bits[5:0], used by LOAD,
// STORE, LOAD_BYTE, STORE_BYTE as a base+displacement offset.
func (i Instruction) Disp6() Word { return Sext6(Word(i) & 0x3F) }

// FuncHigh3 extracts the 3-bit function code at bits[5:3], used by
// ARIT_LOGIC, COMPARE, MUL_DIV to select the operation within the opcode.
func (i Instruction) FuncHigh3() uint8 { return uint8(i >> 3 & 0x7) }

// FuncBit8 extracts the single function bit at bit[8], used by MOV,
// REL_JMP, IN_OUT to pick between a pair of operations.
func (i Instruction) FuncBit8() uint8 { return uint8(i >> 8 & 0x1) }

// FuncLow3 extracts the 3-bit function code at bits[2:0], used by ABS_JMP.
func (i Instruction) FuncLow3() uint8 { return uint8(i & 0x7) }

// FuncLow6 extracts the 6-bit function code at bits[5:0], used by SPECIAL.
func (i Instruction) FuncLow6() uint8 { return uint8(i & 0x3F) }

// ARIT_LOGIC function codes, bits[5:3]. Codes not listed here are undefined
// and decode to ILLEGAL_INSTR.
const (
	FnAnd ArithFn = iota
	FnOr
	FnXor
	FnNot
	FnAdd
	FnSub
	FnSha
	FnShl
)

// ArithFn is the ARIT_LOGIC sub-function code.
type ArithFn uint8

// COMPARE function codes, bits[5:3]. 2 and 6/7 are undefined.
const (
	FnCmpLT  CompareFn = 0
	FnCmpLE  CompareFn = 1
	FnCmpEQ  CompareFn = 3
	FnCmpLTU CompareFn = 4
	FnCmpLEU CompareFn = 5
)

// CompareFn is the COMPARE sub-function code.
type CompareFn uint8

// MUL_DIV function codes, bits[5:3]. 3, 6, and 7 are undefined.
const (
	FnMul   MulDivFn = 0
	FnMulH  MulDivFn = 1
	FnMulHU MulDivFn = 2
	FnDiv   MulDivFn = 4
	FnDivU  MulDivFn = 5
)

// MulDivFn is the MUL_DIV sub-function code.
type MulDivFn uint8

// MOV function bit, bit[8].
const (
	FnMovI  MovFn = 0
	FnMovHI MovFn = 1
)

// MovFn is the MOV sub-function bit.
type MovFn uint8

// REL_JMP function bit, bit[8].
const (
	FnBZ  RelJumpFn = 0
	FnBNZ RelJumpFn = 1
)

// RelJumpFn is the REL_JMP sub-function bit.
type RelJumpFn uint8

// IN_OUT function bit, bit[8].
const (
	FnIn  InOutFn = 0
	FnOut InOutFn = 1
)

// InOutFn is the IN_OUT sub-function bit.
type InOutFn uint8

// ABS_JMP function codes, bits[2:0]. 2, 5, and 6 are undefined.
const (
	FnJZ    AbsJumpFn = 0
	FnJNZ   AbsJumpFn = 1
	FnJmp   AbsJumpFn = 3
	FnJal   AbsJumpFn = 4
	FnCalls AbsJumpFn = 7
)

// AbsJumpFn is the ABS_JMP sub-function code.
type AbsJumpFn uint8

// SPECIAL function codes, bits[5:0]. Their ordering is not pinned down by
// name in the source; it is assigned here in the order the mnemonics are
// introduced and recorded as an implementer's choice in DESIGN.md.
const (
	FnEI     SpecialFn = 0
	FnDI     SpecialFn = 1
	FnRETI   SpecialFn = 2
	FnGETIID SpecialFn = 3
	FnRDS    SpecialFn = 4
	FnWRS    SpecialFn = 5
	FnWRPI   SpecialFn = 6
	FnWRVI   SpecialFn = 7
	FnWRPD   SpecialFn = 8
	FnWRVD   SpecialFn = 9
	FnFLUSH  SpecialFn = 10
	FnHALT   SpecialFn = 11
)

// SpecialFn is the SPECIAL sub-function code.
type SpecialFn uint8
