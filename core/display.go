package core

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// Frame geometry (spec.md §3, §4.4). The physical raster is always 768
// columns wide regardless of 256/512-pixel mode: 256-pixel mode decodes half
// as many distinct pixels per line and duplicates each one horizontally, so
// the border/active split stays fixed.
const (
	TotalScanlines = 312
	ColumnsPerLine = 768

	VSyncLines    = 22
	TopBlankLines = 18
	ActiveLines   = 256
	BotBlankLines = 16

	activeLineStart = VSyncLines + TopBlankLines           // 40
	activeLineEnd   = activeLineStart + ActiveLines        // 296

	BorderWidth  = 128
	ActiveWidth  = 512 // physical columns, both modes
	rightBorderX = BorderWidth + ActiveWidth               // 640

	// PixelsPerCPUCycle is fixed by the 3MHz pixel clock : 12MHz dot clock
	// ratio (spec.md §4.4: "one scanline = 192 CPU cycles", 768/192 = 4).
	PixelsPerCPUCycle = 4

	// DefaultIRQColumn is the nominal raster column, within the first
	// post-vsync active line, at which the display asserts IFF.
	DefaultIRQColumn = 72

	planeStride = 0x4000 // 16KiB/plane: 512 active columns * 256 rows / 8 bits
	rowBytes    = ActiveWidth / 8
)

// videoPlaneBase is the main-RAM base address of color plane p (0-3).
func videoPlaneBase(p int) Addr { return Addr(p * planeStride) }

// Display implements the raster-timed renderer (spec.md §4.4): it advances
// a (line, column) cursor four pixels per CPU cycle, renders into a back
// buffer, and swaps front/back/hand-off buffers on wrap to (0,0).
type Display struct {
	mem *Memory
	io  *IO

	line int
	col  int // physical column within the current line, 0..ColumnsPerLine-1

	pixelClock uint64 // monotonic pixel counter, never resets; IO's color-pollution deadlines are expressed against it

	frame uint64

	irqColumn int

	back, front, handoff [TotalScanlines][ColumnsPerLine]Color

	frameMu    sync.Mutex // short-held, guards the front/handoff swap only
	frameReady bool

	onFrameEnd func()
}

// SetOnFrameEnd installs a callback invoked whenever the raster cursor
// wraps to (0,0), after the frame counter and framebuffers are updated.
// Used by the recorder to finalize a frame's entry. Passing nil detaches
// it.
func (d *Display) SetOnFrameEnd(fn func()) { d.onFrameEnd = fn }

// NewDisplay constructs a Display bound to mem/io, asserting IFF at the
// default raster column.
func NewDisplay(mem *Memory, io *IO) *Display {
	d := &Display{mem: mem, io: io, irqColumn: DefaultIRQColumn}
	io.AttachDisplay(d)
	return d
}

// SetIRQColumn overrides the raster column (within the first post-vsync
// active line) at which IFF is asserted.
func (d *Display) SetIRQColumn(col int) { d.irqColumn = col }

// Advance moves the raster cursor by tstates*PixelsPerCPUCycle pixels,
// rendering as it goes, and reports whether the IRQ column was just
// crossed.
func (d *Display) Advance(tstates int) (irqAsserted bool) {
	pixels := tstates * PixelsPerCPUCycle
	for i := 0; i < pixels; i++ {
		if d.line == activeLineStart && d.col == d.irqColumn {
			irqAsserted = true
		}
		d.io.commitDue(d.pixelClock)
		d.renderPixel()
		d.pixelClock++
		d.col++
		if d.col >= ColumnsPerLine {
			d.col = 0
			d.line++
			if d.line >= TotalScanlines {
				d.line = 0
				d.endFrame()
			}
		}
	}
	return irqAsserted
}

func (d *Display) renderPixel() {
	if d.line < activeLineStart || d.line >= activeLineEnd {
		d.back[d.line][d.col] = d.io.PaletteEntry(borderPaletteIndex(d.io.BorderColor()))
		return
	}
	if d.col < BorderWidth || d.col >= rightBorderX {
		d.back[d.line][d.col] = d.io.PaletteEntry(borderPaletteIndex(d.io.BorderColor()))
		return
	}

	apx := d.col - BorderWidth // 0..511, physical active-area column
	row := (d.line - activeLineStart + int(d.io.VScroll())) % ActiveLines

	var colorIndex uint8
	if d.io.Mode256() {
		logical := apx / 2 // each logical pixel spans 2 physical columns
		colorIndex = decode2Plane(d.mem, row, logical)
	} else {
		colorIndex = decode4Plane(d.mem, row, apx)
	}
	d.back[d.line][d.col] = d.io.PaletteEntry(colorIndex)
}

// borderPaletteIndex maps the 3-bit border-color latch onto the low 8
// palette entries, which the teacher's style of "keep raw control values
// small and let the palette own the final color" (emu/vdp.go's CRAM index)
// generalizes cleanly to 256 entries.
func borderPaletteIndex(v uint8) uint8 { return v & 0x07 }

// decode4Plane reads one bit from each of the 4 video planes at (row, col)
// and packs them into a 4-bit palette index, used in 512-pixel mode.
func decode4Plane(mem *Memory, row, col int) uint8 {
	var idx uint8
	byteOff := row*rowBytes + col/8
	bit := uint(7 - col%8)
	for p := 0; p < 4; p++ {
		b := mem.ReadRAMDirect(videoPlaneBase(p) + Addr(byteOff))
		if b&(1<<bit) != 0 {
			idx |= 1 << uint(p)
		}
	}
	return idx
}

// decode2Plane reads one bit from each of 2 video planes at (row, col) and
// packs them into a 2-bit palette index, used in 256-pixel mode.
func decode2Plane(mem *Memory, row, col int) uint8 {
	var idx uint8
	byteOff := row*rowBytes + col/8
	bit := uint(7 - col%8)
	for p := 0; p < 2; p++ {
		b := mem.ReadRAMDirect(videoPlaneBase(p) + Addr(byteOff))
		if b&(1<<bit) != 0 {
			idx |= 1 << uint(p)
		}
	}
	return idx
}

// endFrame swaps back into front under the hand-off lock and bumps the
// frame counter. Called when the cursor wraps to (0,0).
func (d *Display) endFrame() {
	d.frame++
	d.frameMu.Lock()
	d.front = d.back
	d.frameReady = true
	d.frameMu.Unlock()
	if d.onFrameEnd != nil {
		d.onFrameEnd()
	}
}

// GetFrame is the sole cross-thread pixel read path (spec.md §4.4). With
// vsync=true it returns a copy of the most recently completed frame,
// synchronized under the hand-off lock; with vsync=false it returns the
// current back buffer as-is, which may be mid-render.
func (d *Display) GetFrame(vsync bool) [TotalScanlines][ColumnsPerLine]Color {
	if !vsync {
		return d.back
	}
	d.frameMu.Lock()
	defer d.frameMu.Unlock()
	d.handoff = d.front
	return d.handoff
}

// FrameCount reports the number of frames completed so far.
func (d *Display) FrameCount() uint64 { return d.frame }

// displayState is a value-copyable snapshot of the raster cursor and frame
// counter, used by the recorder. Framebuffer contents are not part of the
// snapshot: they are fully determined by replaying memory + IO state, and
// copying them per frame would be by far the most expensive part of a
// recorder entry.
type displayState struct {
	line, col  int
	pixelClock uint64
	frame      uint64
}

func (d *Display) snapshot() displayState {
	return displayState{line: d.line, col: d.col, pixelClock: d.pixelClock, frame: d.frame}
}

func (d *Display) restore(s displayState) {
	d.line, d.col, d.pixelClock, d.frame = s.line, s.col, s.pixelClock, s.frame
}

// encode appends the snapshot's fixed-size binary form to buf.
func (s displayState) encode(buf *bytes.Buffer) {
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(s.line))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], uint64(s.col))
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], s.pixelClock)
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], s.frame)
	buf.Write(u64[:])
}

// decodeDisplayState reads a displayState written by encode from the front
// of data, returning the remaining, unconsumed slice.
func decodeDisplayState(data []byte) (displayState, []byte) {
	var s displayState
	s.line = int(binary.LittleEndian.Uint64(data[0:8]))
	s.col = int(binary.LittleEndian.Uint64(data[8:16]))
	s.pixelClock = binary.LittleEndian.Uint64(data[16:24])
	s.frame = binary.LittleEndian.Uint64(data[24:32])
	return s, data[32:]
}

// Line and Column expose the current raster cursor, used by the debugger
// and by tests asserting geometry invariants.
func (d *Display) Line() int   { return d.line }
func (d *Display) Column() int { return d.col }
func (d *Display) PixelClock() uint64 { return d.pixelClock }
