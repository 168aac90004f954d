package debugger

import "testing"

func TestOpLen(t *testing.T) {
	cases := []struct {
		op   uint8
		want uint8
	}{
		{0x00, 1}, // NOP
		{0x01, 3}, // LXI B,d16
		{0x06, 2}, // MVI B,d8
		{0x76, 1}, // HLT
		{0x41, 1}, // MOV B,C
		{0x80, 1}, // ADD B
		{0xC3, 3}, // JMP
		{0xCD, 3}, // CALL
		{0xD3, 2}, // OUT
		{0xFE, 2}, // CPI
	}
	for _, c := range cases {
		if got := opLen[c.op]; got != c.want {
			t.Errorf("opLen[%#02x]: expected %d, got %d", c.op, c.want, got)
		}
	}
}

func TestMnemonic(t *testing.T) {
	cases := []struct {
		op, lo, hi uint8
		want       string
	}{
		{0x00, 0, 0, "NOP"},
		{0x76, 0, 0, "HLT"},
		{0x41, 0, 0, "MOV B,C"},
		{0x80, 0, 0, "ADD B"},
		{0x21, 0x34, 0x12, "LXI H,$1234"},
		{0x3E, 0x42, 0, "MVI A,$42"},
		{0xC3, 0x00, 0x80, "JMP $8000"},
		{0xCD, 0x00, 0x80, "CALL $8000"},
		{0xC9, 0, 0, "RET"},
		{0xD9, 0, 0, "RET"},
		{0xCB, 0x00, 0x80, "JMP $8000"},
		{0xF5, 0, 0, "PUSH PSW"},
		{0xC1, 0, 0, "POP B"},
		{0xC2, 0x00, 0x80, "JNZ $8000"},
		{0xC4, 0x00, 0x80, "CNZ $8000"},
		{0xC0, 0, 0, "RNZ"},
		{0xC7, 0, 0, "RST 0"},
		{0xFF, 0, 0, "RST 7"},
		{0xF3, 0, 0, "DI"},
		{0xFB, 0, 0, "EI"},
		{0xDB, 0x01, 0, "IN $01"},
		{0xD3, 0x0C, 0, "OUT $0C"},
	}
	for _, c := range cases {
		if got := mnemonic(c.op, c.lo, c.hi); got != c.want {
			t.Errorf("mnemonic(%#02x,%#02x,%#02x): expected %q, got %q", c.op, c.lo, c.hi, c.want, got)
		}
	}
}

func TestMnemonic_UndocumentedOpcodesFallBackToDocumentedEquivalents(t *testing.T) {
	for _, op := range []uint8{0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38} {
		if got := mnemonic(op, 0, 0); got != "NOP" {
			t.Errorf("mnemonic(%#02x): expected NOP, got %q", op, got)
		}
	}
	for _, op := range []uint8{0xDD, 0xED, 0xFD} {
		if got := mnemonic(op, 0x00, 0x80); got != "CALL $8000" {
			t.Errorf("mnemonic(%#02x): expected CALL $8000, got %q", op, got)
		}
	}
}
