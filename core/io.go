package core

import "bytes"

// ColorPollutionPixels is the number of raster pixels between an OUT to a
// palette/border/mode/scroll port and the moment its effect is visible to
// the raster (spec.md §4.4, glossary "Color pollution").
const ColorPollutionPixels = 4

// Port assignments. Real Vector-06C hardware decodes ports more loosely (by
// high bits); In and Out here switch on the exact port number (plus the
// keyboard-row and RAM-disk-mode ranges) in the style of the teacher's SMSIO
// (emu/io.go), which is simpler to read and to extend.
const (
	PortKeyboardRowBase = 0x00 // 0x00-0x0F: keyboard matrix rows (in)
	PortJoystick        = 0x01 // joystick state (in)
	PortTapeIn          = 0x02 // tape input bit, bit0 (in)
	PortRAMDiskStatus   = 0x08 // RAM-disk status latch (in)
	PortBorderColor     = 0x0C // border color, low 3 bits (out)
	PortVScroll         = 0x0D // vertical scroll index (out)
	PortMode            = 0x0E // bit0: 1 = 256-pixel mode, 0 = 512-pixel mode (out)
	PortPaletteIndex    = 0x0F // latches the palette entry to write next (out)
	PortPaletteData     = 0x10 // writes the latched palette entry (out)
	PortRAMDiskModeBase = 0xC0 // 0xC0-0xC7: raw mapping byte for RAM-disk (port-PortRAMDiskModeBase) (out)
)

// pendingWrite is a port write queued until the color-pollution window
// elapses.
type pendingWrite struct {
	port        uint8
	value       uint8
	applyPixel  uint64
	valid       bool
}

// IO implements the 256-port input/output dispatch (spec.md §4.2). Writes
// that affect the raster (palette, border, scroll, mode) are queued and
// committed by the Display as it crosses the target pixel, reproducing the
// color-pollution artifact.
type IO struct {
	memory  *Memory
	display *Display

	keyboard  [16]uint8
	joystick  uint8
	tapeIn    bool
	diskStatus uint8

	palette      [256]Color
	paletteIndex uint8
	borderColor  uint8
	vScroll      uint8
	mode256      bool

	pending [8]pendingWrite
	head    int
	count   int
}

// Color is an RGB triple as produced by the palette.
type Color struct {
	R, G, B uint8
}

// NewIO constructs an IO bank bound to memory (for RAM-disk mode ports).
// Display is attached later via AttachDisplay, since Display itself depends
// on IO at construction.
func NewIO(memory *Memory) *IO {
	io := &IO{memory: memory}
	for i := range io.keyboard {
		io.keyboard[i] = 0xFF // unpressed rows read all-high
	}
	io.joystick = 0xFF
	return io
}

// AttachDisplay completes the IO <-> Display wiring.
func (io *IO) AttachDisplay(d *Display) { io.display = d }

// In reads from an input port.
func (io *IO) In(port uint8) uint8 {
	switch {
	case port >= PortKeyboardRowBase && port < PortKeyboardRowBase+16:
		return io.keyboard[port-PortKeyboardRowBase]
	case port == PortJoystick:
		return io.joystick
	case port == PortTapeIn:
		if io.tapeIn {
			return 1
		}
		return 0
	case port == PortRAMDiskStatus:
		return io.diskStatus
	}
	return 0xFF
}

// Out writes to an output port. Raster-visible ports are queued for
// color-pollution-delayed commit; everything else (RAM-disk mode) applies
// immediately since it governs CPU-visible address decoding, not pixels.
func (io *IO) Out(port uint8, value uint8) {
	switch {
	case port == PortBorderColor, port == PortVScroll, port == PortMode,
		port == PortPaletteIndex, port == PortPaletteData:
		io.enqueue(port, value)
	case port >= PortRAMDiskModeBase && int(port)-int(PortRAMDiskModeBase) < len(io.memory.ramDisks):
		disk := int(port - PortRAMDiskModeBase)
		_ = io.memory.SetRAMDiskMode(disk, value) // malformed config surfaces via SET_MEM request path, not here
	}
}

func (io *IO) enqueue(port, value uint8) {
	if io.display == nil {
		io.applyPortWrite(port, value)
		return
	}
	deadline := io.display.pixelClock + ColorPollutionPixels
	if io.count < len(io.pending) {
		idx := (io.head + io.count) % len(io.pending)
		io.pending[idx] = pendingWrite{port: port, value: value, applyPixel: deadline, valid: true}
		io.count++
	}
}

// commitDue applies any queued writes whose deadline has passed, called by
// Display once per pixel.
func (io *IO) commitDue(pixelClock uint64) {
	for io.count > 0 && io.pending[io.head].valid && io.pending[io.head].applyPixel <= pixelClock {
		w := io.pending[io.head]
		io.applyPortWrite(w.port, w.value)
		io.pending[io.head].valid = false
		io.head = (io.head + 1) % len(io.pending)
		io.count--
	}
}

func (io *IO) applyPortWrite(port, value uint8) {
	switch port {
	case PortBorderColor:
		io.borderColor = value & 0x07
	case PortVScroll:
		io.vScroll = value
	case PortMode:
		io.mode256 = value&0x01 != 0
	case PortPaletteIndex:
		io.paletteIndex = value
	case PortPaletteData:
		io.palette[io.paletteIndex] = decodeVectorColor(value)
	}
}

// decodeVectorColor expands the Vector-06C 8-bit palette code (bits
// arranged RGBRGBrg-ish on real hardware; we use a plain 3-3-2 split, which
// is close enough for an emulation core with no physical display to match
// against) into RGB.
func decodeVectorColor(v uint8) Color {
	r := (v >> 5) & 0x07
	g := (v >> 2) & 0x07
	b := v & 0x03
	return Color{
		R: uint8(r) * 255 / 7,
		G: uint8(g) * 255 / 7,
		B: uint8(b) * 255 / 3,
	}
}

// SetKeyLatch sets the keyboard matrix row value (active-low, as read by the
// CPU). Scan-code-to-matrix mapping is out of scope; callers pass the row
// value directly.
func (io *IO) SetKeyLatch(row int, value uint8) {
	if row >= 0 && row < len(io.keyboard) {
		io.keyboard[row] = value
	}
}

// SetJoystickLatch sets the joystick port's raw value.
func (io *IO) SetJoystickLatch(value uint8) { io.joystick = value }

// SetTapeBit sets the tape-input bit sampled by PortTapeIn.
func (io *IO) SetTapeBit(bit bool) { io.tapeIn = bit }

// SetDiskStatus sets the RAM-disk status latch surfaced on PortRAMDiskStatus.
func (io *IO) SetDiskStatus(v uint8) { io.diskStatus = v }

// BorderColor, VScroll, Mode256, and Palette expose the committed (not
// pending) raster-visible state for the Display to consume.
func (io *IO) BorderColor() uint8  { return io.borderColor }
func (io *IO) VScroll() uint8      { return io.vScroll }
func (io *IO) Mode256() bool       { return io.mode256 }
func (io *IO) PaletteEntry(i uint8) Color { return io.palette[i] }

// ioState is a value-copyable snapshot of IO's latched state, used by the
// recorder. Raster-visible writes still pending a color-pollution commit
// are intentionally not carried across a snapshot boundary: a reverse-step
// lands exactly on a frame edge, after which no write from the previous
// frame can still be pending.
type ioState struct {
	keyboard     [16]uint8
	joystick     uint8
	tapeIn       bool
	diskStatus   uint8
	palette      [256]Color
	paletteIndex uint8
	borderColor  uint8
	vScroll      uint8
	mode256      bool
}

func (io *IO) snapshot() ioState {
	return ioState{
		keyboard: io.keyboard, joystick: io.joystick, tapeIn: io.tapeIn, diskStatus: io.diskStatus,
		palette: io.palette, paletteIndex: io.paletteIndex, borderColor: io.borderColor,
		vScroll: io.vScroll, mode256: io.mode256,
	}
}

func (io *IO) restore(s ioState) {
	io.keyboard, io.joystick, io.tapeIn, io.diskStatus = s.keyboard, s.joystick, s.tapeIn, s.diskStatus
	io.palette, io.paletteIndex, io.borderColor = s.palette, s.paletteIndex, s.borderColor
	io.vScroll, io.mode256 = s.vScroll, s.mode256
	io.head, io.count = 0, 0
}

// encode appends the snapshot's fixed-size binary form to buf.
func (s ioState) encode(buf *bytes.Buffer) {
	buf.Write(s.keyboard[:])
	buf.WriteByte(s.joystick)
	buf.WriteByte(boolByte(s.tapeIn))
	buf.WriteByte(s.diskStatus)
	for _, c := range s.palette {
		buf.WriteByte(c.R)
		buf.WriteByte(c.G)
		buf.WriteByte(c.B)
	}
	buf.WriteByte(s.paletteIndex)
	buf.WriteByte(s.borderColor)
	buf.WriteByte(s.vScroll)
	buf.WriteByte(boolByte(s.mode256))
}

// decodeIOState reads an ioState written by encode from the front of data,
// returning the remaining, unconsumed slice.
func decodeIOState(data []byte) (ioState, []byte) {
	var s ioState
	copy(s.keyboard[:], data[:16])
	data = data[16:]
	s.joystick, s.tapeIn, s.diskStatus = data[0], data[1] != 0, data[2]
	data = data[3:]
	for i := range s.palette {
		s.palette[i] = Color{R: data[0], G: data[1], B: data[2]}
		data = data[3:]
	}
	s.paletteIndex, s.borderColor, s.vScroll, s.mode256 = data[0], data[1], data[2], data[3] != 0
	data = data[4:]
	return s, data
}
