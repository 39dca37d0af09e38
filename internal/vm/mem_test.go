package vm

import "testing"

func TestMemoryWordRoundTrip(t *testing.T) {
	var m Memory

	m.WriteWord(0x1000, 0xBEEF)

	if got := m.ReadWord(0x1000); got != 0xBEEF {
		t.Fatalf("ReadWord = %#x, want 0xBEEF", uint16(got))
	}

	if got := m.ReadByte(0x1000); got != 0xEF {
		t.Fatalf("low byte = %#x, want 0xef (little-endian)", got)
	}

	if got := m.ReadByte(0x1001); got != 0xBE {
		t.Fatalf("high byte = %#x, want 0xbe (little-endian)", got)
	}
}

func TestMemoryLoadBinary(t *testing.T) {
	var m Memory

	data := []byte{0x01, 0x02, 0x03, 0x04}
	m.LoadBinary(0xC000, data)

	for i, b := range data {
		if got := m.ReadByte(Word(0xC000 + i)); got != b {
			t.Fatalf("byte %d = %#x, want %#x", i, got, b)
		}
	}
}
