package vm

import "testing"

func TestTLBResetMapsIdentity(t *testing.T) {
	tlb := NewTLB(KindData)

	for _, vpn := range []uint8{0x0, 0x1, 0x2, 0x8, 0xC, 0xD, 0xE, 0xF} {
		vaddr := Word(vpn) << PageShift

		paddr, fault := tlb.Translate(vaddr, true, false, false)
		if fault != nil {
			t.Fatalf("vpn %#x: unexpected fault %v", vpn, fault)
		}

		if paddr != vaddr {
			t.Fatalf("vpn %#x: paddr = %#x, want identity %#x", vpn, uint16(paddr), uint16(vaddr))
		}
	}
}

func TestTLBMissForUnmappedVPN(t *testing.T) {
	tlb := NewTLB(KindData)

	_, fault := tlb.Translate(Word(0x3)<<PageShift, true, false, false)
	if fault == nil || fault.Kind != ExcDTLBMiss {
		t.Fatalf("expected DTLB_MISS, got %v", fault)
	}
}

func TestTLBUnalignedWordAccess(t *testing.T) {
	tlb := NewTLB(KindData)

	_, fault := tlb.Translate(0x0001, true, false, false)
	if fault == nil || fault.Kind != ExcUnalignedAccess {
		t.Fatalf("expected UNALIGNED_ACCESS, got %v", fault)
	}
}

func TestTLBProtectedEntryFaultsInUserMode(t *testing.T) {
	tlb := NewTLB(KindData)

	vaddr := Word(0x8) << PageShift
	if _, fault := tlb.Translate(vaddr, true, false, false); fault != nil {
		t.Fatalf("system-mode access should succeed, got %v", fault)
	}

	_, fault := tlb.Translate(vaddr, true, false, true)
	if fault == nil || fault.Kind != ExcDTLBProtected {
		t.Fatalf("expected DTLB_PROTECTED for user access, got %v", fault)
	}
}

func TestTLBReadOnlyFaultsOnWrite(t *testing.T) {
	tlb := NewTLB(KindData)

	vaddr := Word(0xC) << PageShift

	if _, fault := tlb.Translate(vaddr, true, false, false); fault != nil {
		t.Fatalf("read should succeed, got %v", fault)
	}

	_, fault := tlb.Translate(vaddr, true, true, false)
	if fault == nil || fault.Kind != ExcDTLBReadonly {
		t.Fatalf("expected DTLB_READONLY on write, got %v", fault)
	}
}

func TestTLBInvalidEntryFaults(t *testing.T) {
	tlb := NewTLB(KindInstruction)
	tlb.Entries[0].V = false

	_, fault := tlb.Translate(0x0000, true, false, false)
	if fault == nil || fault.Kind != ExcITLBInvalid {
		t.Fatalf("expected ITLB_INVALID, got %v", fault)
	}
}

func TestTLBWriteProtectionAndVPN(t *testing.T) {
	tlb := NewTLB(KindData)

	// pfn=0x5, r=1, v=1, p=0 packed as bit[3:0]=pfn, bit4=r, bit5=v, bit6=p.
	tlb.WriteProtection(0, 0x5|1<<4|1<<5)
	tlb.WriteVPN(0, 0x3)

	e := tlb.Entries[0]
	if e.VPN != 0x3 || e.PFN != 0x5 || !e.R || !e.V || e.P {
		t.Fatalf("entry after WRPD/WRVD = %+v", e)
	}
}

func TestTLBTranslateIsSideEffectFree(t *testing.T) {
	tlb := NewTLB(KindData)
	before := tlb.Entries

	_, _ = tlb.Translate(Word(0x0)<<PageShift, true, false, false)

	if before != tlb.Entries {
		t.Fatal("Translate must not mutate TLB state")
	}
}
