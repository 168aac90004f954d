package debugger

import "fmt"

// opLen gives the byte length of every 8080 opcode (1-3 bytes), needed for
// both forward decode and the back-scan heuristic below.
var opLen = [256]uint8{
	0: 1, 1: 3, 2: 1, 3: 1, 4: 1, 5: 1, 6: 2, 7: 1,
	8: 1, 9: 1, 0x0A: 1, 0x0B: 1, 0x0C: 1, 0x0D: 1, 0x0E: 2, 0x0F: 1,
	0x10: 1, 0x11: 3, 0x12: 1, 0x13: 1, 0x14: 1, 0x15: 1, 0x16: 2, 0x17: 1,
	0x18: 1, 0x19: 1, 0x1A: 1, 0x1B: 1, 0x1C: 1, 0x1D: 1, 0x1E: 2, 0x1F: 1,
	0x20: 1, 0x21: 3, 0x22: 3, 0x23: 1, 0x24: 1, 0x25: 1, 0x26: 2, 0x27: 1,
	0x28: 1, 0x29: 1, 0x2A: 3, 0x2B: 1, 0x2C: 1, 0x2D: 1, 0x2E: 2, 0x2F: 1,
	0x30: 1, 0x31: 3, 0x32: 3, 0x33: 1, 0x34: 1, 0x35: 1, 0x36: 2, 0x37: 1,
	0x38: 1, 0x39: 1, 0x3A: 3, 0x3B: 1, 0x3C: 1, 0x3D: 1, 0x3E: 2, 0x3F: 1,
	0xC0: 1, 0xC1: 1, 0xC2: 3, 0xC3: 3, 0xC4: 3, 0xC5: 1, 0xC6: 2, 0xC7: 1,
	0xC8: 1, 0xC9: 1, 0xCA: 3, 0xCB: 3, 0xCC: 3, 0xCD: 3, 0xCE: 2, 0xCF: 1,
	0xD0: 1, 0xD1: 1, 0xD2: 3, 0xD3: 2, 0xD4: 3, 0xD5: 1, 0xD6: 2, 0xD7: 1,
	0xD8: 1, 0xD9: 1, 0xDA: 3, 0xDB: 2, 0xDC: 3, 0xDD: 3, 0xDE: 2, 0xDF: 1,
	0xE0: 1, 0xE1: 1, 0xE2: 3, 0xE3: 1, 0xE4: 3, 0xE5: 1, 0xE6: 2, 0xE7: 1,
	0xE8: 1, 0xE9: 1, 0xEA: 3, 0xEB: 1, 0xEC: 3, 0xED: 3, 0xEE: 2, 0xEF: 1,
	0xF0: 1, 0xF1: 1, 0xF2: 3, 0xF3: 1, 0xF4: 3, 0xF5: 1, 0xF6: 2, 0xF7: 1,
	0xF8: 1, 0xF9: 1, 0xFA: 3, 0xFB: 1, 0xFC: 3, 0xFD: 3, 0xFE: 2, 0xFF: 1,
}

func init() {
	// 0x40-0xBF is MOV/ALU/HLT space: every opcode there is 1 byte.
	for op := 0x40; op <= 0xBF; op++ {
		opLen[op] = 1
	}
}

var regName8 = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}
var rpName = [4]string{"B", "D", "H", "SP"}
var ccName = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

// mnemonic formats opcode (and its 1-2 following operand bytes, zero-padded
// if unavailable) into a plain-text 8080 mnemonic.
func mnemonic(opcode, lo, hi uint8) string {
	imm16 := func() string { return fmt.Sprintf("$%02X%02X", hi, lo) }
	imm8 := func() string { return fmt.Sprintf("$%02X", lo) }

	switch {
	case opcode == 0x76:
		return "HLT"
	case opcode&0xC0 == 0x40:
		d, s := (opcode>>3)&7, opcode&7
		return fmt.Sprintf("MOV %s,%s", regName8[d], regName8[s])
	case opcode&0xC0 == 0x80:
		s := opcode & 7
		names := [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
		return fmt.Sprintf("%s %s", names[(opcode>>3)&7], regName8[s])
	}

	switch opcode {
	case 0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38:
		return "NOP"
	case 0x01, 0x11, 0x21, 0x31:
		return fmt.Sprintf("LXI %s,%s", rpName[opcode>>4], imm16())
	case 0x02, 0x12:
		return fmt.Sprintf("STAX %s", rpName[opcode>>4])
	case 0x0A, 0x1A:
		return fmt.Sprintf("LDAX %s", rpName[opcode>>4])
	case 0x03, 0x13, 0x23, 0x33:
		return fmt.Sprintf("INX %s", rpName[opcode>>4])
	case 0x0B, 0x1B, 0x2B, 0x3B:
		return fmt.Sprintf("DCX %s", rpName[opcode>>4])
	case 0x09, 0x19, 0x29, 0x39:
		return fmt.Sprintf("DAD %s", rpName[opcode>>4])
	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x34, 0x3C:
		return fmt.Sprintf("INR %s", regName8[(opcode>>3)&7])
	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x35, 0x3D:
		return fmt.Sprintf("DCR %s", regName8[(opcode>>3)&7])
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E:
		return fmt.Sprintf("MVI %s,%s", regName8[(opcode>>3)&7], imm8())
	case 0x07:
		return "RLC"
	case 0x0F:
		return "RRC"
	case 0x17:
		return "RAL"
	case 0x1F:
		return "RAR"
	case 0x22:
		return fmt.Sprintf("SHLD %s", imm16())
	case 0x2A:
		return fmt.Sprintf("LHLD %s", imm16())
	case 0x32:
		return fmt.Sprintf("STA %s", imm16())
	case 0x3A:
		return fmt.Sprintf("LDA %s", imm16())
	case 0x27:
		return "DAA"
	case 0x2F:
		return "CMA"
	case 0x37:
		return "STC"
	case 0x3F:
		return "CMC"
	case 0xC6:
		return fmt.Sprintf("ADI %s", imm8())
	case 0xCE:
		return fmt.Sprintf("ACI %s", imm8())
	case 0xD6:
		return fmt.Sprintf("SUI %s", imm8())
	case 0xDE:
		return fmt.Sprintf("SBI %s", imm8())
	case 0xE6:
		return fmt.Sprintf("ANI %s", imm8())
	case 0xEE:
		return fmt.Sprintf("XRI %s", imm8())
	case 0xF6:
		return fmt.Sprintf("ORI %s", imm8())
	case 0xFE:
		return fmt.Sprintf("CPI %s", imm8())
	case 0xC1, 0xD1, 0xE1, 0xF1:
		return fmt.Sprintf("POP %s", pushPopRP(opcode))
	case 0xC5, 0xD5, 0xE5, 0xF5:
		return fmt.Sprintf("PUSH %s", pushPopRP(opcode))
	case 0xC3, 0xCB:
		return fmt.Sprintf("JMP %s", imm16())
	case 0xC9, 0xD9:
		return "RET"
	case 0xCD, 0xDD, 0xED, 0xFD:
		return fmt.Sprintf("CALL %s", imm16())
	case 0xE9:
		return "PCHL"
	case 0xF9:
		return "SPHL"
	case 0xE3:
		return "XTHL"
	case 0xEB:
		return "XCHG"
	case 0xF3:
		return "DI"
	case 0xFB:
		return "EI"
	case 0xD3:
		return fmt.Sprintf("OUT %s", imm8())
	case 0xDB:
		return fmt.Sprintf("IN %s", imm8())
	}
	if opcode&0xC7 == 0xC2 {
		return fmt.Sprintf("J%s %s", ccName[(opcode>>3)&7], imm16())
	}
	if opcode&0xC7 == 0xC4 {
		return fmt.Sprintf("C%s %s", ccName[(opcode>>3)&7], imm16())
	}
	if opcode&0xC7 == 0xC0 {
		return fmt.Sprintf("R%s", ccName[(opcode>>3)&7])
	}
	if opcode&0xC7 == 0xC7 {
		return fmt.Sprintf("RST %d", (opcode>>3)&7)
	}
	return fmt.Sprintf("DB $%02X", opcode)
}

func pushPopRP(opcode uint8) string {
	names := [4]string{"B", "D", "H", "PSW"}
	return names[(opcode>>4)&3]
}
