package vm

// tlb.go is the software-managed translation lookaside buffer: an 8-entry,
// fully-associative translation from a virtual page to a physical page, with
// protection bits. There are two: one guards instruction fetch, the other
// data access.
//
// Entries are represented as a struct of integer fields rather than a packed
// bitfield; WRPI/WRPD/WRVI/WRVD encode and decode against that struct
// explicitly instead of relying on any native memory layout.

import "fmt"

// PageShift is log2 of the page size; PageSize is 4 KiB.
const (
	PageShift = 12
	PageSize  = 1 << PageShift
)

// NumTLBEntries is the number of entries in each TLB.
const NumTLBEntries = 8

// TLBEntry is one translation: a virtual page number mapped to a physical
// page number, with read-only and privileged-only protection bits and a
// valid bit.
type TLBEntry struct {
	VPN uint8 // 4 bits: virtual page number.
	PFN uint8 // 4 bits: physical page number.
	R   bool  // Read-only: writes fault.
	V   bool  // Valid: clear means the entry is unused.
	P   bool  // Privileged: user-mode access faults.
}

func (e TLBEntry) String() string {
	return fmt.Sprintf("{vpn:%#x pfn:%#x r:%t v:%t p:%t}", e.VPN, e.PFN, e.R, e.V, e.P)
}

// Kind distinguishes the instruction TLB from the data TLB, since a
// translation failure raises a different exception for each.
type Kind uint8

const (
	KindInstruction Kind = iota
	KindData
)

func (k Kind) String() string {
	if k == KindInstruction {
		return "ITLB"
	}

	return "DTLB"
}

// TLB is an 8-entry, fully-associative translation lookaside buffer.
type TLB struct {
	Kind    Kind
	Entries [NumTLBEntries]TLBEntry
}

// resetEntries are the TLB's contents immediately after reset, identical for
// the instruction and data TLBs: three unprivileged, writable 1:1 mappings
// for low memory, and five privileged mappings covering the kernel/code
// space, the last four of which are read-only.
var resetEntries = [NumTLBEntries]TLBEntry{
	{VPN: 0x0, PFN: 0x0, R: false, V: true, P: false},
	{VPN: 0x1, PFN: 0x1, R: false, V: true, P: false},
	{VPN: 0x2, PFN: 0x2, R: false, V: true, P: false},
	{VPN: 0x8, PFN: 0x8, R: false, V: true, P: true},
	{VPN: 0xC, PFN: 0xC, R: true, V: true, P: true},
	{VPN: 0xD, PFN: 0xD, R: true, V: true, P: true},
	{VPN: 0xE, PFN: 0xE, R: true, V: true, P: true},
	{VPN: 0xF, PFN: 0xF, R: true, V: true, P: true},
}

// NewTLB creates a TLB of the given kind with the architectural reset
// contents.
func NewTLB(kind Kind) *TLB {
	return &TLB{Kind: kind, Entries: resetEntries}
}

// Reset restores the TLB's reset contents, without changing its Kind.
func (t *TLB) Reset() {
	t.Entries = resetEntries
}

// exceptionFor selects the I- or D-variant of a translation fault based on
// which TLB raised it.
func (t *TLB) exceptionFor(iKind, dKind ExceptionKind) ExceptionKind {
	if t.Kind == KindInstruction {
		return iKind
	}

	return dKind
}

// Translate looks up vaddr and returns the translated physical address. See
// §4.2: alignment is checked first, then the entries are scanned linearly
// for the first matching VPN, then validity, privilege, and (for writes to
// the data TLB) the read-only bit are checked in that priority order.
//
// Translate is deterministic and side-effect-free: it never mutates the TLB
// and returns only a physical address or a fault, never both.
func (t *TLB) Translate(vaddr Word, wordAccess, write bool, userMode bool) (Word, *Fault) {
	if wordAccess && vaddr&1 != 0 {
		return 0, &Fault{Kind: ExcUnalignedAccess, Addr: vaddr}
	}

	vpn := uint8(vaddr >> PageShift)

	for _, e := range t.Entries {
		if e.VPN != vpn {
			continue
		}

		switch {
		case !e.V:
			return 0, &Fault{Kind: t.exceptionFor(ExcITLBInvalid, ExcDTLBInvalid), Addr: vaddr}
		case e.P && userMode:
			return 0, &Fault{Kind: t.exceptionFor(ExcITLBProtected, ExcDTLBProtected), Addr: vaddr}
		case t.Kind == KindData && e.R && write:
			return 0, &Fault{Kind: ExcDTLBReadonly, Addr: vaddr}
		}

		paddr := Word(e.PFN)<<PageShift | (vaddr & (PageSize - 1))

		return paddr, nil
	}

	return 0, &Fault{Kind: t.exceptionFor(ExcITLBMiss, ExcDTLBMiss), Addr: vaddr}
}

// tlbFieldsFromPacked unpacks the pfn/r/v/p fields from the bit layout the
// WRPI/WRPD instructions use: pfn in bits[3:0], r in bit[4], v in bit[5], p
// in bit[6].
func tlbFieldsFromPacked(value Word) (pfn uint8, r, v, p bool) {
	pfn = uint8(value & 0xF)
	r = value&(1<<4) != 0
	v = value&(1<<5) != 0
	p = value&(1<<6) != 0

	return pfn, r, v, p
}

// tlbVPNFromPacked unpacks the vpn field from the bit layout the WRVI/WRVD
// instructions use: vpn in bits[3:0].
func tlbVPNFromPacked(value Word) uint8 {
	return uint8(value & 0xF)
}

// WriteProtection programs the pfn/r/v/p fields of the entry at index,
// leaving its vpn unchanged. Out-of-range indices are ignored: WRPI/WRPD
// supply the low 4 bits of a register as the index, so values 8 through 15
// reach here and leave the TLB unchanged.
func (t *TLB) WriteProtection(index uint8, value Word) {
	if int(index) >= len(t.Entries) {
		return
	}

	e := &t.Entries[index]
	e.PFN, e.R, e.V, e.P = tlbFieldsFromPacked(value)
}

// WriteVPN programs the vpn field of the entry at index, leaving the rest
// unchanged.
func (t *TLB) WriteVPN(index uint8, value Word) {
	if int(index) >= len(t.Entries) {
		return
	}

	t.Entries[index].VPN = tlbVPNFromPacked(value)
}
