package core

import (
	"bytes"
	"encoding/binary"
	"sync/atomic"
)

// Flags holds the 8080 condition flags. The three reserved bits of the real
// PSW byte (bit 1, always 1, and bits 3/5, always 0) are not stored — they
// are synthesized by PSW()/SetPSW().
type Flags struct {
	S  bool // sign
	Z  bool // zero
	AC bool // auxiliary (half) carry
	P  bool // parity (even)
	C  bool // carry
}

// PSW packs the flags into the conventional 8080 processor-status byte.
func (f Flags) PSW() uint8 {
	var b uint8
	if f.S {
		b |= 1 << 7
	}
	if f.Z {
		b |= 1 << 6
	}
	if f.AC {
		b |= 1 << 4
	}
	if f.P {
		b |= 1 << 2
	}
	b |= 1 << 1 // reserved, always 1
	if f.C {
		b |= 1 << 0
	}
	return b
}

// SetPSW unpacks a processor-status byte into Flags, ignoring the reserved
// bits.
func (f *Flags) SetPSW(b uint8) {
	f.S = b&(1<<7) != 0
	f.Z = b&(1<<6) != 0
	f.AC = b&(1<<4) != 0
	f.P = b&(1<<2) != 0
	f.C = b&(1<<0) != 0
}

// step is one machine cycle's worth of bus activity, generated when an
// instruction is decoded and consumed one per ExecuteMachineCycle call.
type step struct {
	tstates int
	run     func(c *CPU)
}

// HookSet holds the debugger's attachable callbacks. It is swapped
// atomically so hooks can be attached/detached from any goroutine without
// tearing (spec.md §4.3, Design Notes).
type HookSet struct {
	OnReadInstr func(ga GlobalAddr, opcode, dataH, dataL uint8, hl Addr)
	OnRead      func(ga GlobalAddr, val uint8)
	OnWrite     func(ga GlobalAddr, val uint8)
}

// CPU is an 8080-compatible machine-cycle state machine (spec.md §4.3). It
// is advanced one machine cycle at a time by ExecuteMachineCycle; a full
// instruction's bus activity is queued at the start of the instruction and
// drained one machine cycle per call.
type CPU struct {
	A, B, C, D, E, H, L uint8
	PC, SP              Addr

	Flags Flags

	// internal ALU/address latches
	latchW, latchZ, latchACT, latchTMP uint8

	IR  uint8
	CC  uint64
	MC  int
	IRQ bool // IFF, the display-asserted interrupt-pending latch

	INTE      bool
	HLTA      bool
	eiPending bool

	mem *Memory
	io  *IO

	hooks atomic.Pointer[HookSet]

	steps    []step
	stepIdx  int
	instrGlobal GlobalAddr

	// LastTStates is the t-state cost of the machine cycle most recently
	// executed, read by the hardware coordinator to advance the display
	// in lock-step.
	LastTStates int
}

// NewCPU constructs a CPU driving mem/io.
func NewCPU(mem *Memory, io *IO) *CPU {
	return &CPU{mem: mem, io: io}
}

// Reset puts the CPU in its post-RESET state: PC=0, SP unspecified (left at
// 0 for determinism), interrupts disabled, not halted.
func (c *CPU) Reset() {
	*c = CPU{mem: c.mem, io: c.io}
}

// AttachHooks installs (or clears, with nil) the debugger's hook set
// atomically.
func (c *CPU) AttachHooks(h *HookSet) { c.hooks.Store(h) }

func (c *CPU) hookReadInstr(ga GlobalAddr, opcode uint8) {
	if h := c.hooks.Load(); h != nil && h.OnReadInstr != nil {
		h.OnReadInstr(ga, opcode, c.H, c.L, Addr(c.hl()))
	}
}
func (c *CPU) hookRead(ga GlobalAddr, val uint8) {
	if h := c.hooks.Load(); h != nil && h.OnRead != nil {
		h.OnRead(ga, val)
	}
}
func (c *CPU) hookWrite(ga GlobalAddr, val uint8) {
	if h := c.hooks.Load(); h != nil && h.OnWrite != nil {
		h.OnWrite(ga, val)
	}
}

// IsInstructionExecuted reports whether the instruction boundary has just
// been reached (MC has wrapped to 0).
func (c *CPU) IsInstructionExecuted() bool { return len(c.steps) == 0 }

// ExecuteMachineCycle advances the CPU by exactly one machine cycle. irq
// reflects the display's current interrupt-pending latch; a true value
// latches IRQ until it is accepted (the CPU never clears it on its own from
// a false input — only acceptance does).
func (c *CPU) ExecuteMachineCycle(irq bool) {
	if irq {
		c.IRQ = true
	}

	if len(c.steps) == 0 {
		c.beginInstruction()
	}

	s := c.steps[c.stepIdx]
	s.run(c)
	c.CC += uint64(s.tstates)
	c.LastTStates = s.tstates
	c.MC++
	c.stepIdx++
	if c.stepIdx >= len(c.steps) {
		c.steps = nil
		c.stepIdx = 0
		c.MC = 0
	}
}

// beginInstruction samples the interrupt line and either injects RST 7 or
// decodes the next real opcode, then queues its machine-cycle steps.
func (c *CPU) beginInstruction() {
	c.mem.ResetJournal()

	if c.INTE && c.IRQ {
		c.INTE = false
		c.IRQ = false
		c.HLTA = false
		c.steps = c.acceptInterrupt()
		c.stepIdx = 0
		return
	}

	if c.eiPending {
		c.eiPending = false
		c.INTE = true
	}

	if c.HLTA {
		c.steps = []step{{tstates: 4, run: func(c *CPU) {}}}
		c.stepIdx = 0
		return
	}

	ga := c.mem.GlobalAddrOf(c.PC, Instruction)
	opcode := c.mem.ReadInstr(c.PC)
	c.instrGlobal = ga
	c.IR = opcode
	c.PC++
	c.hookReadInstr(ga, opcode)

	c.steps = c.decode(opcode)
	c.stepIdx = 0
}

// acceptInterrupt builds the machine-cycle sequence for RST 7 injected in
// place of a real fetch (spec.md §4.3): PC is not incremented by the
// synthetic fetch, and the return address pushed is the current PC.
func (c *CPU) acceptInterrupt() []step {
	retAddr := c.PC
	return []step{
		{tstates: 4, run: func(c *CPU) {}},
		{tstates: 3, run: func(c *CPU) { c.pushByte(uint8(retAddr >> 8)) }},
		{tstates: 3, run: func(c *CPU) { c.pushByte(uint8(retAddr)) }},
		{tstates: 1, run: func(c *CPU) { c.PC = 0x0038 }},
	}
}

// --- register-pair helpers ---

func (c *CPU) bc() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) de() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) hl() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU) setBC(v uint16) { c.B, c.C = uint8(v>>8), uint8(v) }
func (c *CPU) setDE(v uint16) { c.D, c.E = uint8(v>>8), uint8(v) }
func (c *CPU) setHL(v uint16) { c.H, c.L = uint8(v>>8), uint8(v) }

// --- bus helpers (journal + debug hooks flow through Memory already; the
// CPU only forwards the hook calls, since Memory has no hook registry of
// its own) ---

func (c *CPU) fetchOperand() uint8 {
	v := c.mem.ReadInstr(c.PC)
	c.PC++
	return v
}

func (c *CPU) readData(addr Addr) uint8 {
	ga := c.mem.GlobalAddrOf(addr, Data)
	v := c.mem.ReadData(addr, 0)
	c.hookRead(ga, v)
	return v
}

func (c *CPU) writeData(addr Addr, v uint8) {
	ga := c.mem.GlobalAddrOf(addr, Data)
	c.mem.Write(addr, v, Data)
	c.hookWrite(ga, v)
}

func (c *CPU) readStack(addr Addr) uint8 {
	ga := c.mem.GlobalAddrOf(addr, Stack)
	v := c.mem.ReadStack(addr)
	c.hookRead(ga, v)
	return v
}

func (c *CPU) writeStack(addr Addr, v uint8) {
	ga := c.mem.GlobalAddrOf(addr, Stack)
	c.mem.Write(addr, v, Stack)
	c.hookWrite(ga, v)
}

func (c *CPU) pushByte(v uint8) {
	c.SP--
	c.writeStack(c.SP, v)
}

func (c *CPU) popByte() uint8 {
	v := c.readStack(c.SP)
	c.SP++
	return v
}

// --- register file indexed by the 3-bit 8080 register code (SSS/DDD) ---
// 000=B 001=C 010=D 011=E 100=H 101=L 110=M(memory via HL) 111=A

func (c *CPU) reg8(code uint8) uint8 {
	switch code & 0x07 {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.readData(Addr(c.hl()))
	default:
		return c.A
	}
}

func (c *CPU) setReg8(code uint8, v uint8) {
	switch code & 0x07 {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.writeData(Addr(c.hl()), v)
	default:
		c.A = v
	}
}

// GetCC, GetPC, GetSP, GetPSW, GetBC, GetDE, GetHL and the flag/control
// getters below mirror the Devector CpuI8080 register-helper surface
// (_examples/original_source/Devector/Core/CpuI8080.h), used by the
// coordinator's GET_REGS request and by the debugger.

func (c *CPU) GetCC() uint64   { return c.CC }
func (c *CPU) GetPC() Addr     { return c.PC }
func (c *CPU) GetSP() Addr     { return c.SP }
func (c *CPU) GetPSW() uint16  { return uint16(c.A)<<8 | uint16(c.Flags.PSW()) }
func (c *CPU) GetBC() uint16   { return c.bc() }
func (c *CPU) GetDE() uint16   { return c.de() }
func (c *CPU) GetHL() uint16   { return c.hl() }
func (c *CPU) GetINTE() bool   { return c.INTE }
func (c *CPU) GetIFF() bool    { return c.IRQ }
func (c *CPU) GetHLTA() bool   { return c.HLTA }
func (c *CPU) GetMachineCycle() int { return c.MC }

// PCGlobal resolves the current PC to its GlobalAddr under Instruction
// space, used by the debugger to check breakpoints at the instruction
// boundary.
func (c *CPU) PCGlobal() GlobalAddr { return c.mem.GlobalAddrOf(c.PC, Instruction) }

// cpuState is a value-copyable snapshot of everything about the CPU that
// isn't a pointer to another subsystem, used by the recorder.
type cpuState struct {
	A, B, C, D, E, H, L uint8
	PC, SP              Addr
	Flags               Flags
	latchW, latchZ, latchACT, latchTMP uint8
	IR                  uint8
	CC                  uint64
	MC                  int
	IRQ, INTE, HLTA     bool
	eiPending           bool
}

func (c *CPU) snapshot() cpuState {
	return cpuState{
		A: c.A, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		PC: c.PC, SP: c.SP, Flags: c.Flags,
		latchW: c.latchW, latchZ: c.latchZ, latchACT: c.latchACT, latchTMP: c.latchTMP,
		IR: c.IR, CC: c.CC, MC: c.MC,
		IRQ: c.IRQ, INTE: c.INTE, HLTA: c.HLTA, eiPending: c.eiPending,
	}
}

func (c *CPU) restore(s cpuState) {
	c.A, c.B, c.C, c.D, c.E, c.H, c.L = s.A, s.B, s.C, s.D, s.E, s.H, s.L
	c.PC, c.SP, c.Flags = s.PC, s.SP, s.Flags
	c.latchW, c.latchZ, c.latchACT, c.latchTMP = s.latchW, s.latchZ, s.latchACT, s.latchTMP
	c.IR, c.CC, c.MC = s.IR, s.CC, s.MC
	c.IRQ, c.INTE, c.HLTA, c.eiPending = s.IRQ, s.INTE, s.HLTA, s.eiPending
	c.steps = nil
	c.stepIdx = 0
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// encode appends the snapshot's fixed-size binary form to buf.
func (s cpuState) encode(buf *bytes.Buffer) {
	buf.WriteByte(s.A)
	buf.WriteByte(s.B)
	buf.WriteByte(s.C)
	buf.WriteByte(s.D)
	buf.WriteByte(s.E)
	buf.WriteByte(s.H)
	buf.WriteByte(s.L)
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(s.PC))
	buf.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], uint16(s.SP))
	buf.Write(u16[:])
	buf.WriteByte(s.Flags.PSW())
	buf.WriteByte(s.latchW)
	buf.WriteByte(s.latchZ)
	buf.WriteByte(s.latchACT)
	buf.WriteByte(s.latchTMP)
	buf.WriteByte(s.IR)
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], s.CC)
	buf.Write(u64[:])
	binary.LittleEndian.PutUint16(u16[:], uint16(s.MC))
	buf.Write(u16[:])
	buf.WriteByte(boolByte(s.IRQ))
	buf.WriteByte(boolByte(s.INTE))
	buf.WriteByte(boolByte(s.HLTA))
	buf.WriteByte(boolByte(s.eiPending))
}

// decodeCPUState reads a cpuState written by encode from the front of data,
// returning the remaining, unconsumed slice.
func decodeCPUState(data []byte) (cpuState, []byte) {
	var s cpuState
	s.A, s.B, s.C, s.D, s.E, s.H, s.L = data[0], data[1], data[2], data[3], data[4], data[5], data[6]
	data = data[7:]
	s.PC = Addr(binary.LittleEndian.Uint16(data[0:2]))
	s.SP = Addr(binary.LittleEndian.Uint16(data[2:4]))
	data = data[4:]
	s.Flags.SetPSW(data[0])
	s.latchW, s.latchZ, s.latchACT, s.latchTMP = data[1], data[2], data[3], data[4]
	s.IR = data[5]
	data = data[6:]
	s.CC = binary.LittleEndian.Uint64(data[0:8])
	data = data[8:]
	s.MC = int(binary.LittleEndian.Uint16(data[0:2]))
	data = data[2:]
	s.IRQ, s.INTE, s.HLTA, s.eiPending = data[0] != 0, data[1] != 0, data[2] != 0, data[3] != 0
	data = data[4:]
	return s, data
}
