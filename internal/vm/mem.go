package vm

// mem.go is the machine's physical memory: a flat 64 KiB byte array with
// little-endian word access.

import "fmt"

// MemorySize is the number of addressable bytes of physical memory.
const MemorySize = 1 << 16

// Memory is a contiguous array of bytes addressed by 16-bit physical
// addresses. Word accesses are little-endian; no bounds check is needed
// since addresses are 16-bit and the array is exactly MemorySize bytes.
type Memory [MemorySize]byte

// ReadWord returns the little-endian word at physical address p.
func (m *Memory) ReadWord(p Word) Word {
	return Word(m[p]) | Word(m[p+1])<<8
}

// WriteWord stores v, little-endian, at physical address p.
func (m *Memory) WriteWord(p Word, v Word) {
	m[p] = byte(v)
	m[p+1] = byte(v >> 8)
}

// ReadByte returns the byte at physical address p.
func (m *Memory) ReadByte(p Word) byte {
	return m[p]
}

// WriteByte stores v at physical address p.
func (m *Memory) WriteByte(p Word, v byte) {
	m[p] = v
}

// LoadBinary copies data into memory starting at addr, wrapping around the
// top of the address space if data does not fit before it.
func (m *Memory) LoadBinary(addr Word, data []byte) {
	for i, b := range data {
		m[addr+Word(i)] = b
	}
}

func (m *Memory) String() string {
	return fmt.Sprintf("Memory(%d bytes)", len(m))
}
