package core

// Addr is a 16-bit program-visible address.
type Addr uint16

// GlobalAddr is a 24-bit identifier of a physical byte across main RAM, the
// RAM-disk banks, and the ROM overlay. Two different mapping configurations
// resolving the same Addr may produce different GlobalAddrs.
type GlobalAddr uint32

// AccessSpace tags the kind of access a memory operation performs, which
// governs bank-switch resolution (spec.md §3).
type AccessSpace int

const (
	Instruction AccessSpace = iota
	Data
	Stack
)

func (s AccessSpace) String() string {
	switch s {
	case Instruction:
		return "instr"
	case Data:
		return "data"
	case Stack:
		return "stack"
	default:
		return "unknown"
	}
}

const (
	ramSize     = 0x10000
	pagesPerDisk = 4
	pageSize    = 0x10000

	ram8Lo = Addr(0x8000)
	ram8Hi = Addr(0xA000)
	ramALo = Addr(0xA000)
	ramAHi = Addr(0xE000)
	ramELo = Addr(0xE000)
	ramEHi = Addr(0x0000) // wraps: 0xE000..0x10000

	// DefaultRAMDisks is the typical Vector-06C configuration: 8 RAM-disks
	// of 4 pages each.
	DefaultRAMDisks = 8
)

// Mapping is a RAM-disk's bank-switch configuration (spec.md §3). The 2-bit
// page fields select one of the 4 pages the disk's 2-bit field can address;
// the mode bits independently enable mapping of the [0x8000,0xA000),
// [0xA000,0xE000), and [0xE000,0x10000) ranges (for data access) and of all
// stack-classified accesses (for stack access) into the disk.
type Mapping struct {
	PageRAM   uint8
	PageStack uint8
	ModeStack bool
	ModeRAM8  bool
	ModeRAMA  bool
	ModeRAME  bool
}

// Raw packs the mapping into the control byte layout documented in
// spec.md §3: {pageRam:2, pageStack:2, modeStack:1, modeRam8:1, modeRamA:1,
// modeRamE:1}.
func (m Mapping) Raw() uint8 {
	var b uint8
	b |= m.PageRAM & 0x03
	b |= (m.PageStack & 0x03) << 2
	if m.ModeStack {
		b |= 1 << 4
	}
	if m.ModeRAM8 {
		b |= 1 << 5
	}
	if m.ModeRAMA {
		b |= 1 << 6
	}
	if m.ModeRAME {
		b |= 1 << 7
	}
	return b
}

// mappingFromRaw unpacks a control byte into a Mapping.
func mappingFromRaw(b uint8) Mapping {
	return Mapping{
		PageRAM:   b & 0x03,
		PageStack: (b >> 2) & 0x03,
		ModeStack: b&(1<<4) != 0,
		ModeRAM8:  b&(1<<5) != 0,
		ModeRAMA:  b&(1<<6) != 0,
		ModeRAME:  b&(1<<7) != 0,
	}
}

// dataRangeEnabled reports whether addr falls into one of this mapping's
// enabled data ranges.
func (m Mapping) dataRangeEnabled(addr Addr) bool {
	switch {
	case m.ModeRAM8 && addr >= ram8Lo && addr < ram8Hi:
		return true
	case m.ModeRAMA && addr >= ramALo && addr < ramAHi:
		return true
	case m.ModeRAME && addr >= ramELo:
		return true
	}
	return false
}

// ramDisk is one bank-switchable 4-page, 64KiB-per-page RAM expansion.
type ramDisk struct {
	pages   [pagesPerDisk][pageSize]byte
	mapping Mapping
}

// AccessRecord describes one memory operation captured in the
// per-instruction journal.
type AccessRecord struct {
	Global GlobalAddr
	Value  uint8
	Pre    uint8 // pre-image, only meaningful for writes
}

// journal accumulates the reads/writes performed while executing a single
// instruction. It is cleared at the start of every instruction.
type journal struct {
	instrBytes   [3]AccessRecord
	instrCount   int
	operandReads [2]AccessRecord
	operandCount int
	writes       [2]AccessRecord
	writeCount   int
}

func (j *journal) reset() {
	j.instrCount = 0
	j.operandCount = 0
	j.writeCount = 0
}

func (j *journal) recordInstrByte(ga GlobalAddr, v uint8) {
	if j.instrCount < len(j.instrBytes) {
		j.instrBytes[j.instrCount] = AccessRecord{Global: ga, Value: v}
		j.instrCount++
	}
}

func (j *journal) recordOperandRead(ga GlobalAddr, v uint8) {
	if j.operandCount < len(j.operandReads) {
		j.operandReads[j.operandCount] = AccessRecord{Global: ga, Value: v}
		j.operandCount++
	}
}

func (j *journal) recordWrite(ga GlobalAddr, v, pre uint8) {
	if j.writeCount < len(j.writes) {
		j.writes[j.writeCount] = AccessRecord{Global: ga, Value: v, Pre: pre}
		j.writeCount++
	}
}

// Memory implements the Vector-06C address-space decoding: 64 KiB main RAM,
// N RAM-disks each of pagesPerDisk pages, and a ROM overlay active over the
// low addresses while ROM-enable is set.
type Memory struct {
	ram      [ramSize]byte
	ramDisks []ramDisk
	rom      []byte
	romEnable bool

	journal journal

	// onWrite, when set, is invoked after every committed write (used by
	// the recorder to append pre/post images to the current frame's
	// journal).
	onWrite func(ga GlobalAddr, value, pre uint8)
}

// NewMemory constructs a Memory with numDisks RAM-disks (0 disables
// bank-switching entirely) and the given ROM image, which overlays the low
// addresses [0, len(rom)) while ROM-enable is set.
func NewMemory(numDisks int, rom []byte) (*Memory, error) {
	if numDisks < 0 {
		return nil, &ConfigError{Reason: "negative RAM-disk count"}
	}
	if len(rom) > ramSize {
		return nil, &ConfigError{Reason: "ROM image larger than the 64KiB overlay window"}
	}
	m := &Memory{
		ramDisks: make([]ramDisk, numDisks),
		rom:      append([]byte(nil), rom...),
	}
	return m, nil
}

// SetROMEnable toggles whether the ROM overlay participates in read
// resolution.
func (m *Memory) SetROMEnable(on bool) { m.romEnable = on }

// ROMEnabled reports the current ROM-enable state.
func (m *Memory) ROMEnabled() bool { return m.romEnable }

// SetRAMDiskMode configures a RAM-disk's bank-switch mapping from its raw
// control byte (spec.md §4.1 `set_ram_disk_mode`).
func (m *Memory) SetRAMDiskMode(disk int, raw uint8) error {
	if disk < 0 || disk >= len(m.ramDisks) {
		return &ConfigError{Reason: "ram-disk index out of range"}
	}
	next := mappingFromRaw(raw)
	if next.ModeRAM8 || next.ModeRAMA || next.ModeRAME {
		for i := range m.ramDisks {
			if i == disk {
				continue
			}
			other := m.ramDisks[i].mapping
			if !(other.ModeRAM8 || other.ModeRAMA || other.ModeRAME) {
				continue
			}
			if mappingsOverlap(next, other) {
				return MappingConflict(disk, i)
			}
		}
	}
	m.ramDisks[disk].mapping = next
	return nil
}

// Mapping returns the current mapping of the given RAM-disk.
func (m *Memory) Mapping(disk int) Mapping {
	if disk < 0 || disk >= len(m.ramDisks) {
		return Mapping{}
	}
	return m.ramDisks[disk].mapping
}

// MappingRaw returns the packed control byte of the given RAM-disk.
func (m *Memory) MappingRaw(disk int) uint8 { return m.Mapping(disk).Raw() }

func mappingsOverlap(a, b Mapping) bool {
	ranges := func(mp Mapping) (lo, hi [3]Addr, n int) {
		if mp.ModeRAM8 {
			lo[n], hi[n] = ram8Lo, ram8Hi
			n++
		}
		if mp.ModeRAMA {
			lo[n], hi[n] = ramALo, ramAHi
			n++
		}
		if mp.ModeRAME {
			lo[n], hi[n] = ramELo, Addr(0x10000)
			n++
		}
		return
	}
	aLo, aHi, aN := ranges(a)
	bLo, bHi, bN := ranges(b)
	for i := 0; i < aN; i++ {
		for j := 0; j < bN; j++ {
			if aLo[i] < bHi[j] && bLo[j] < aHi[i] {
				return true
			}
		}
	}
	return false
}

// resolveData finds, if any, the RAM-disk that claims addr for data access.
// Lowest-indexed disk wins on an (otherwise-undefined) overlap.
func (m *Memory) resolveData(addr Addr) (disk int, ok bool) {
	for i := range m.ramDisks {
		if m.ramDisks[i].mapping.dataRangeEnabled(addr) {
			return i, true
		}
	}
	return 0, false
}

// resolveStack finds, if any, the RAM-disk with stack mapping enabled.
// Lowest-indexed disk wins if more than one enables it.
func (m *Memory) resolveStack() (disk int, ok bool) {
	for i := range m.ramDisks {
		if m.ramDisks[i].mapping.ModeStack {
			return i, true
		}
	}
	return 0, false
}

// ActiveDataDisk reports which RAM-disk, if any, currently claims data
// accesses at addr — used by the debugger to evaluate a breakpoint's
// mapping mask against the live bank-switch configuration.
func (m *Memory) ActiveDataDisk(addr Addr) (disk int, ok bool) { return m.resolveData(addr) }

// ramDiskBase is the GlobalAddr base of disk's page 0.
func ramDiskBase(disk int) GlobalAddr {
	return GlobalAddr(ramSize) + GlobalAddr(disk)*pagesPerDisk*pageSize
}

// romBase is the GlobalAddr base of the ROM image, located after every
// configured RAM-disk.
func (m *Memory) romBase() GlobalAddr {
	return ramDiskBase(len(m.ramDisks))
}

// GlobalAddrOf resolves addr under the given access space to its GlobalAddr,
// following the precedence in spec.md §4.1. It does not touch the journal.
func (m *Memory) GlobalAddrOf(addr Addr, space AccessSpace) GlobalAddr {
	if space == Stack {
		if disk, ok := m.resolveStack(); ok {
			page := m.ramDisks[disk].mapping.PageStack
			return ramDiskBase(disk) + GlobalAddr(page)*pageSize + GlobalAddr(addr)
		}
	}
	if disk, ok := m.resolveData(addr); ok {
		page := m.ramDisks[disk].mapping.PageRAM
		return ramDiskBase(disk) + GlobalAddr(page)*pageSize + GlobalAddr(addr)
	}
	if m.romEnable && int(addr) < len(m.rom) {
		return m.romBase() + GlobalAddr(addr)
	}
	return GlobalAddr(addr)
}

// GetByteGlobal reads a single byte addressed directly by GlobalAddr,
// bypassing mapping resolution. Used by the debugger and the recorder.
func (m *Memory) GetByteGlobal(ga GlobalAddr) uint8 {
	if ga < ramSize {
		return m.ram[ga]
	}
	romBase := m.romBase()
	if ga >= romBase {
		off := int(ga - romBase)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	}
	rel := ga - ramSize
	disk := int(rel / (pagesPerDisk * pageSize))
	if disk >= len(m.ramDisks) {
		return 0xFF
	}
	within := rel % (pagesPerDisk * pageSize)
	page := int(within / pageSize)
	off := int(within % pageSize)
	return m.ramDisks[disk].pages[page][off]
}

// SetByteGlobal writes a single byte addressed directly by GlobalAddr. ROM
// regions are not writable through this path either.
func (m *Memory) SetByteGlobal(ga GlobalAddr, v uint8) {
	if ga < ramSize {
		m.ram[ga] = v
		return
	}
	romBase := m.romBase()
	if ga >= romBase {
		return
	}
	rel := ga - ramSize
	disk := int(rel / (pagesPerDisk * pageSize))
	if disk >= len(m.ramDisks) {
		return
	}
	within := rel % (pagesPerDisk * pageSize)
	page := int(within / pageSize)
	off := int(within % pageSize)
	m.ramDisks[disk].pages[page][off] = v
}

// GlobalLen is the total addressable span across RAM, all RAM-disks, and
// ROM. Used to size the debugger's heat-map arrays.
func (m *Memory) GlobalLen() int {
	return int(m.romBase()) + len(m.rom)
}

// ReadInstr reads an opcode byte at addr, recording it in the per-instruction
// journal as an Instruction-space access.
func (m *Memory) ReadInstr(addr Addr) uint8 {
	ga := m.GlobalAddrOf(addr, Instruction)
	v := m.read(ga, addr)
	m.journal.recordInstrByte(ga, v)
	return v
}

// ReadData reads an operand/data byte at addr. byteIndex (0 or 1) is not
// used: operand reads fill the journal's slots in call order.
func (m *Memory) ReadData(addr Addr, byteIndex int) uint8 {
	ga := m.GlobalAddrOf(addr, Data)
	v := m.read(ga, addr)
	m.journal.recordOperandRead(ga, v)
	return v
}

// ReadStack reads a byte at addr under stack-space resolution.
func (m *Memory) ReadStack(addr Addr) uint8 {
	ga := m.GlobalAddrOf(addr, Stack)
	v := m.read(ga, addr)
	m.journal.recordOperandRead(ga, v)
	return v
}

func (m *Memory) read(ga GlobalAddr, addr Addr) uint8 {
	romBase := m.romBase()
	if ga >= romBase {
		off := int(ga - romBase)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	}
	return m.GetByteGlobal(ga)
}

// Write commits a byte to addr under the given access space, journals the
// pre-image, and never resolves to ROM.
func (m *Memory) Write(addr Addr, value uint8, space AccessSpace) {
	ga := m.GlobalAddrOf(addr, space)
	romBase := m.romBase()
	if ga >= romBase {
		// Writes never resolve to ROM; fall through to underlying RAM at addr.
		ga = GlobalAddr(addr)
	}
	pre := m.GetByteGlobal(ga)
	m.SetByteGlobal(ga, value)
	m.journal.recordWrite(ga, value, pre)
	if m.onWrite != nil {
		m.onWrite(ga, value, pre)
	}
}

// ReadRAMDirect reads a byte straight out of main RAM, bypassing RAM-disk
// mapping and ROM overlay. The display uses this for video memory fetches:
// video data always lives in main RAM regardless of the current bank-switch
// configuration.
func (m *Memory) ReadRAMDirect(addr Addr) uint8 { return m.ram[addr] }

// ResetJournal clears the per-instruction access journal. Called by the CPU
// at the start of every instruction.
func (m *Memory) ResetJournal() { m.journal.reset() }

// Journal returns the current per-instruction journal.
func (m *Memory) Journal() (instr, operand, writes []AccessRecord) {
	return m.journal.instrBytes[:m.journal.instrCount],
		m.journal.operandReads[:m.journal.operandCount],
		m.journal.writes[:m.journal.writeCount]
}

// SetOnWrite installs a callback invoked after every committed write, with
// the GlobalAddr, the value just written, and its pre-image. Passing nil
// detaches it.
func (m *Memory) SetOnWrite(fn func(ga GlobalAddr, value, pre uint8)) { m.onWrite = fn }

// RAMDiskCount reports how many RAM-disks are configured.
func (m *Memory) RAMDiskCount() int { return len(m.ramDisks) }

// ROMSize reports the size of the loaded ROM image.
func (m *Memory) ROMSize() int { return len(m.rom) }
