package core

// decode expands one fetched opcode into the machine-cycle steps needed to
// execute it. Every opcode's step list sums to its documented 8080
// instruction length in T-states.
func (c *CPU) decode(opcode uint8) []step {
	switch {
	case opcode == 0x76:
		return c.opHLT()
	case opcode&0xC0 == 0x40:
		return c.opMOV(opcode)
	case opcode&0xC0 == 0x80:
		return c.opALU(opcode)
	}

	switch opcode {
	case 0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38:
		return c.opNOP()
	case 0x01:
		return c.opLXI(func(v uint16) { c.setBC(v) })
	case 0x11:
		return c.opLXI(func(v uint16) { c.setDE(v) })
	case 0x21:
		return c.opLXI(func(v uint16) { c.setHL(v) })
	case 0x31:
		return c.opLXI(func(v uint16) { c.SP = Addr(v) })
	case 0x02:
		return c.opSTAX(func() uint16 { return c.bc() })
	case 0x12:
		return c.opSTAX(func() uint16 { return c.de() })
	case 0x0A:
		return c.opLDAX(func() uint16 { return c.bc() })
	case 0x1A:
		return c.opLDAX(func() uint16 { return c.de() })
	case 0x03:
		return c.opINXDCX(func(d int16) { c.setBC(uint16(int32(c.bc()) + int32(d))) })
	case 0x13:
		return c.opINXDCX(func(d int16) { c.setDE(uint16(int32(c.de()) + int32(d))) })
	case 0x23:
		return c.opINXDCX(func(d int16) { c.setHL(uint16(int32(c.hl()) + int32(d))) })
	case 0x33:
		return c.opINXDCX(func(d int16) { c.SP = Addr(int32(c.SP) + int32(d)) })
	case 0x0B:
		return c.opINXDCXNeg(func(d int16) { c.setBC(uint16(int32(c.bc()) + int32(d))) })
	case 0x1B:
		return c.opINXDCXNeg(func(d int16) { c.setDE(uint16(int32(c.de()) + int32(d))) })
	case 0x2B:
		return c.opINXDCXNeg(func(d int16) { c.setHL(uint16(int32(c.hl()) + int32(d))) })
	case 0x3B:
		return c.opINXDCXNeg(func(d int16) { c.SP = Addr(int32(c.SP) + int32(d)) })
	case 0x04:
		return c.opINRDCR(0, true)
	case 0x0C:
		return c.opINRDCR(1, true)
	case 0x14:
		return c.opINRDCR(2, true)
	case 0x1C:
		return c.opINRDCR(3, true)
	case 0x24:
		return c.opINRDCR(4, true)
	case 0x2C:
		return c.opINRDCR(5, true)
	case 0x34:
		return c.opINRDCR(6, true)
	case 0x3C:
		return c.opINRDCR(7, true)
	case 0x05:
		return c.opINRDCR(0, false)
	case 0x0D:
		return c.opINRDCR(1, false)
	case 0x15:
		return c.opINRDCR(2, false)
	case 0x1D:
		return c.opINRDCR(3, false)
	case 0x25:
		return c.opINRDCR(4, false)
	case 0x2D:
		return c.opINRDCR(5, false)
	case 0x35:
		return c.opINRDCR(6, false)
	case 0x3D:
		return c.opINRDCR(7, false)
	case 0x06:
		return c.opMVI(0)
	case 0x0E:
		return c.opMVI(1)
	case 0x16:
		return c.opMVI(2)
	case 0x1E:
		return c.opMVI(3)
	case 0x26:
		return c.opMVI(4)
	case 0x2E:
		return c.opMVI(5)
	case 0x36:
		return c.opMVI(6)
	case 0x3E:
		return c.opMVI(7)
	case 0x07:
		return c.opSimple(func(c *CPU) { c.rlc() })
	case 0x0F:
		return c.opSimple(func(c *CPU) { c.rrc() })
	case 0x17:
		return c.opSimple(func(c *CPU) { c.ral() })
	case 0x1F:
		return c.opSimple(func(c *CPU) { c.rar() })
	case 0x27:
		return c.opSimple(func(c *CPU) { c.daa() })
	case 0x2F:
		return c.opSimple(func(c *CPU) { c.A = ^c.A })
	case 0x37:
		return c.opSimple(func(c *CPU) { c.Flags.C = true })
	case 0x3F:
		return c.opSimple(func(c *CPU) { c.Flags.C = !c.Flags.C })
	case 0x09:
		return c.opDAD(func() uint16 { return c.bc() })
	case 0x19:
		return c.opDAD(func() uint16 { return c.de() })
	case 0x29:
		return c.opDAD(func() uint16 { return c.hl() })
	case 0x39:
		return c.opDAD(func() uint16 { return uint16(c.SP) })
	case 0x22:
		return c.opSHLD()
	case 0x2A:
		return c.opLHLD()
	case 0x32:
		return c.opSTA()
	case 0x3A:
		return c.opLDA()
	case 0xC6:
		return c.opALUImm(func(c *CPU, v uint8) { c.A = c.add8(c.A, v, false) })
	case 0xCE:
		return c.opALUImm(func(c *CPU, v uint8) { c.A = c.add8(c.A, v, c.Flags.C) })
	case 0xD6:
		return c.opALUImm(func(c *CPU, v uint8) { c.A = c.sub8(c.A, v, false) })
	case 0xDE:
		return c.opALUImm(func(c *CPU, v uint8) { c.A = c.sub8(c.A, v, c.Flags.C) })
	case 0xE6:
		return c.opALUImm(func(c *CPU, v uint8) { c.A = c.andFlags(c.A, v) })
	case 0xEE:
		return c.opALUImm(func(c *CPU, v uint8) { c.A = c.xorFlags(c.A, v) })
	case 0xF6:
		return c.opALUImm(func(c *CPU, v uint8) { c.A = c.orFlags(c.A, v) })
	case 0xFE:
		return c.opALUImm(func(c *CPU, v uint8) { c.cmpFlags(c.A, v) })
	case 0xC1:
		return c.opPOP(func(v uint16) { c.setBC(v) })
	case 0xD1:
		return c.opPOP(func(v uint16) { c.setDE(v) })
	case 0xE1:
		return c.opPOP(func(v uint16) { c.setHL(v) })
	case 0xF1:
		return c.opPOP(func(v uint16) { c.A = uint8(v >> 8); c.Flags.SetPSW(uint8(v)) })
	case 0xC5:
		return c.opPUSH(func() uint16 { return c.bc() })
	case 0xD5:
		return c.opPUSH(func() uint16 { return c.de() })
	case 0xE5:
		return c.opPUSH(func() uint16 { return c.hl() })
	case 0xF5:
		return c.opPUSH(func() uint16 { return uint16(c.A)<<8 | uint16(c.Flags.PSW()) })
	case 0xC3, 0xCB:
		return c.opJMP(func() bool { return true })
	case 0xC2:
		return c.opJMP(func() bool { return !c.Flags.Z })
	case 0xCA:
		return c.opJMP(func() bool { return c.Flags.Z })
	case 0xD2:
		return c.opJMP(func() bool { return !c.Flags.C })
	case 0xDA:
		return c.opJMP(func() bool { return c.Flags.C })
	case 0xE2:
		return c.opJMP(func() bool { return !c.Flags.P })
	case 0xEA:
		return c.opJMP(func() bool { return c.Flags.P })
	case 0xF2:
		return c.opJMP(func() bool { return !c.Flags.S })
	case 0xFA:
		return c.opJMP(func() bool { return c.Flags.S })
	case 0xCD, 0xDD, 0xED, 0xFD:
		return c.opCALL(func() bool { return true })
	case 0xC4:
		return c.opCALL(func() bool { return !c.Flags.Z })
	case 0xCC:
		return c.opCALL(func() bool { return c.Flags.Z })
	case 0xD4:
		return c.opCALL(func() bool { return !c.Flags.C })
	case 0xDC:
		return c.opCALL(func() bool { return c.Flags.C })
	case 0xE4:
		return c.opCALL(func() bool { return !c.Flags.P })
	case 0xEC:
		return c.opCALL(func() bool { return c.Flags.P })
	case 0xF4:
		return c.opCALL(func() bool { return !c.Flags.S })
	case 0xFC:
		return c.opCALL(func() bool { return c.Flags.S })
	case 0xC9, 0xD9:
		return c.opRETUncond()
	case 0xC0:
		return c.opRET(func() bool { return !c.Flags.Z })
	case 0xC8:
		return c.opRET(func() bool { return c.Flags.Z })
	case 0xD0:
		return c.opRET(func() bool { return !c.Flags.C })
	case 0xD8:
		return c.opRET(func() bool { return c.Flags.C })
	case 0xE0:
		return c.opRET(func() bool { return !c.Flags.P })
	case 0xE8:
		return c.opRET(func() bool { return c.Flags.P })
	case 0xF0:
		return c.opRET(func() bool { return !c.Flags.S })
	case 0xF8:
		return c.opRET(func() bool { return c.Flags.S })
	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF:
		return c.opRST(opcode)
	case 0xE3:
		return c.opXTHL()
	case 0xEB:
		return c.opXCHG()
	case 0xE9:
		return c.opFiveState(func(c *CPU) { c.PC = Addr(c.hl()) })
	case 0xF9:
		return c.opFiveState(func(c *CPU) { c.SP = Addr(c.hl()) })
	case 0xF3:
		return c.opSimple(func(c *CPU) { c.INTE = false; c.eiPending = false })
	case 0xFB:
		return c.opSimple(func(c *CPU) { c.eiPending = true })
	case 0xD3:
		return c.opOUT()
	case 0xDB:
		return c.opIN()
	}

	// Unreachable: the above covers all 256 opcodes.
	return c.opNOP()
}

func (c *CPU) opNOP() []step {
	return []step{{tstates: 4, run: func(c *CPU) {}}}
}

func (c *CPU) opSimple(f func(c *CPU)) []step {
	return []step{{tstates: 4, run: f}}
}

// opFiveState handles the two single-cycle opcodes (PCHL, SPHL) whose
// register-pair move into PC/SP costs one T-state more than opSimple's 4.
func (c *CPU) opFiveState(f func(c *CPU)) []step {
	return []step{{tstates: 5, run: f}}
}

func (c *CPU) opHLT() []step {
	return []step{{tstates: 7, run: func(c *CPU) { c.HLTA = true }}}
}

func (c *CPU) opMOV(opcode uint8) []step {
	dst := (opcode >> 3) & 0x07
	src := opcode & 0x07
	if dst == 6 || src == 6 {
		return []step{
			{tstates: 4, run: func(c *CPU) {}},
			{tstates: 3, run: func(c *CPU) { c.setReg8(dst, c.reg8(src)) }},
		}
	}
	return []step{{tstates: 5, run: func(c *CPU) { c.setReg8(dst, c.reg8(src)) }}}
}

func (c *CPU) opALU(opcode uint8) []step {
	op := (opcode >> 3) & 0x07
	src := opcode & 0x07
	apply := c.aluOp(op)
	if src == 6 {
		return []step{
			{tstates: 4, run: func(c *CPU) {}},
			{tstates: 3, run: func(c *CPU) { apply(c, c.reg8(6)) }},
		}
	}
	return []step{{tstates: 4, run: func(c *CPU) { apply(c, c.reg8(src)) }}}
}

func (c *CPU) aluOp(op uint8) func(c *CPU, v uint8) {
	switch op {
	case 0:
		return func(c *CPU, v uint8) { c.A = c.add8(c.A, v, false) }
	case 1:
		return func(c *CPU, v uint8) { c.A = c.add8(c.A, v, c.Flags.C) }
	case 2:
		return func(c *CPU, v uint8) { c.A = c.sub8(c.A, v, false) }
	case 3:
		return func(c *CPU, v uint8) { c.A = c.sub8(c.A, v, c.Flags.C) }
	case 4:
		return func(c *CPU, v uint8) { c.A = c.andFlags(c.A, v) }
	case 5:
		return func(c *CPU, v uint8) { c.A = c.xorFlags(c.A, v) }
	case 6:
		return func(c *CPU, v uint8) { c.A = c.orFlags(c.A, v) }
	default:
		return func(c *CPU, v uint8) { c.cmpFlags(c.A, v) }
	}
}

func (c *CPU) opALUImm(f func(c *CPU, v uint8)) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { f(c, c.fetchOperand()) }},
	}
}

func (c *CPU) opLXI(set func(v uint16)) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.fetchOperand(); set(uint16(c.latchW)<<8 | uint16(c.latchZ)) }},
	}
}

func (c *CPU) opMVI(reg uint8) []step {
	if reg == 6 {
		return []step{
			{tstates: 4, run: func(c *CPU) {}},
			{tstates: 3, run: func(c *CPU) { c.latchTMP = c.fetchOperand() }},
			{tstates: 3, run: func(c *CPU) { c.setReg8(6, c.latchTMP) }},
		}
	}
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.setReg8(reg, c.fetchOperand()) }},
	}
}

func (c *CPU) opINRDCR(reg uint8, isInc bool) []step {
	apply := func(c *CPU) {
		v := c.reg8(reg)
		if isInc {
			c.setReg8(reg, c.inc8(v))
		} else {
			c.setReg8(reg, c.dec8(v))
		}
	}
	if reg == 6 {
		return []step{
			{tstates: 4, run: func(c *CPU) {}},
			{tstates: 3, run: func(c *CPU) {}},
			{tstates: 3, run: apply},
		}
	}
	return []step{{tstates: 5, run: apply}}
}

func (c *CPU) opINXDCX(add func(d int16)) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 1, run: func(c *CPU) { add(1) }},
	}
}

func (c *CPU) opINXDCXNeg(add func(d int16)) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 1, run: func(c *CPU) { add(-1) }},
	}
}

func (c *CPU) opDAD(get func() uint16) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 6, run: func(c *CPU) { c.dad(get()) }},
	}
}

func (c *CPU) opSTAX(addr func() uint16) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.writeData(Addr(addr()), c.A) }},
	}
}

func (c *CPU) opLDAX(addr func() uint16) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.A = c.readData(Addr(addr())) }},
	}
}

func (c *CPU) opSTA() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.writeData(Addr(uint16(c.latchW)<<8|uint16(c.latchZ)), c.A) }},
	}
}

func (c *CPU) opLDA() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.A = c.readData(Addr(uint16(c.latchW)<<8 | uint16(c.latchZ))) }},
	}
}

func (c *CPU) opSHLD() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.writeData(Addr(uint16(c.latchW)<<8|uint16(c.latchZ)), c.L) }},
		{tstates: 3, run: func(c *CPU) {
			addr := (uint16(c.latchW)<<8 | uint16(c.latchZ)) + 1
			c.writeData(Addr(addr), c.H)
		}},
	}
}

func (c *CPU) opLHLD() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.L = c.readData(Addr(uint16(c.latchW)<<8 | uint16(c.latchZ))) }},
		{tstates: 3, run: func(c *CPU) {
			addr := (uint16(c.latchW)<<8 | uint16(c.latchZ)) + 1
			c.H = c.readData(Addr(addr))
		}},
	}
}

func (c *CPU) opPUSH(get func() uint16) []step {
	return []step{
		{tstates: 5, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.pushByte(uint8(get() >> 8)) }},
		{tstates: 3, run: func(c *CPU) { c.pushByte(uint8(get())) }},
	}
}

func (c *CPU) opPOP(set func(v uint16)) []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.popByte() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.popByte(); set(uint16(c.latchW)<<8 | uint16(c.latchZ)) }},
	}
}

func (c *CPU) opJMP(cond func() bool) []step {
	taken := cond()
	if !taken {
		return []step{
			{tstates: 4, run: func(c *CPU) {}},
			{tstates: 3, run: func(c *CPU) { c.fetchOperand() }},
			{tstates: 3, run: func(c *CPU) { c.fetchOperand() }},
		}
	}
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.fetchOperand(); c.PC = Addr(uint16(c.latchW)<<8 | uint16(c.latchZ)) }},
	}
}

func (c *CPU) opCALL(cond func() bool) []step {
	taken := cond()
	if !taken {
		return []step{
			{tstates: 4, run: func(c *CPU) {}},
			{tstates: 3, run: func(c *CPU) { c.fetchOperand() }},
			{tstates: 4, run: func(c *CPU) { c.fetchOperand() }},
		}
	}
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.fetchOperand() }},
		{tstates: 4, run: func(c *CPU) { c.latchW = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.pushByte(uint8(c.PC >> 8)) }},
		{tstates: 3, run: func(c *CPU) {
			c.pushByte(uint8(c.PC))
			c.PC = Addr(uint16(c.latchW)<<8 | uint16(c.latchZ))
		}},
	}
}

// opRETUncond implements the unconditional RET (0xC9, 0xD9), which skips the
// condition test an Rcc pays for and so costs one T-state less on its fetch.
func (c *CPU) opRETUncond() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.popByte() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.popByte(); c.PC = Addr(uint16(c.latchW)<<8 | uint16(c.latchZ)) }},
	}
}

func (c *CPU) opRET(cond func() bool) []step {
	if !cond() {
		return []step{{tstates: 5, run: func(c *CPU) {}}}
	}
	return []step{
		{tstates: 5, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.popByte() }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.popByte(); c.PC = Addr(uint16(c.latchW)<<8 | uint16(c.latchZ)) }},
	}
}

func (c *CPU) opRST(opcode uint8) []step {
	target := Addr(opcode & 0x38)
	return []step{
		{tstates: 5, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.pushByte(uint8(c.PC >> 8)) }},
		{tstates: 3, run: func(c *CPU) { c.pushByte(uint8(c.PC)); c.PC = target }},
	}
}

func (c *CPU) opXTHL() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchZ = c.readStack(c.SP) }},
		{tstates: 3, run: func(c *CPU) { c.latchW = c.readStack(c.SP + 1) }},
		{tstates: 3, run: func(c *CPU) { c.writeStack(c.SP, c.L) }},
		{tstates: 5, run: func(c *CPU) {
			c.writeStack(c.SP+1, c.H)
			c.L, c.H = c.latchZ, c.latchW
		}},
	}
}

func (c *CPU) opXCHG() []step {
	return []step{{tstates: 4, run: func(c *CPU) {
		c.H, c.L, c.D, c.E = c.D, c.E, c.H, c.L
	}}}
}

func (c *CPU) opOUT() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchTMP = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.io.Out(c.latchTMP, c.A) }},
	}
}

func (c *CPU) opIN() []step {
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.latchTMP = c.fetchOperand() }},
		{tstates: 3, run: func(c *CPU) { c.A = c.io.In(c.latchTMP) }},
	}
}
