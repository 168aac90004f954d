package core

import "testing"

func newTestDisplay(t *testing.T) (*Display, *Memory, *IO) {
	t.Helper()
	mem, err := NewMemory(0, nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	io := NewIO(mem)
	d := NewDisplay(mem, io)
	return d, mem, io
}

func TestDisplay_AdvanceMovesColumnByFourPerCycle(t *testing.T) {
	d, _, _ := newTestDisplay(t)
	d.Advance(1)
	if d.Column() != PixelsPerCPUCycle {
		t.Errorf("expected column %d after 1 cycle, got %d", PixelsPerCPUCycle, d.Column())
	}
}

func TestDisplay_AdvanceWrapsLineAtColumnsPerLine(t *testing.T) {
	d, _, _ := newTestDisplay(t)
	cyclesPerLine := ColumnsPerLine / PixelsPerCPUCycle
	d.Advance(cyclesPerLine)
	if d.Column() != 0 || d.Line() != 1 {
		t.Errorf("expected wrap to line 1 col 0, got line=%d col=%d", d.Line(), d.Column())
	}
}

func TestDisplay_FrameCountIncrementsOnFullRasterWrap(t *testing.T) {
	d, _, _ := newTestDisplay(t)
	cyclesPerFrame := (TotalScanlines * ColumnsPerLine) / PixelsPerCPUCycle
	d.Advance(cyclesPerFrame)
	if d.FrameCount() != 1 {
		t.Errorf("expected frame count 1 after a full raster sweep, got %d", d.FrameCount())
	}
	if d.Line() != 0 || d.Column() != 0 {
		t.Errorf("expected cursor to wrap to (0,0), got line=%d col=%d", d.Line(), d.Column())
	}
}

func TestDisplay_OnFrameEndCallback(t *testing.T) {
	d, _, _ := newTestDisplay(t)
	called := 0
	d.SetOnFrameEnd(func() { called++ })
	cyclesPerFrame := (TotalScanlines * ColumnsPerLine) / PixelsPerCPUCycle
	d.Advance(cyclesPerFrame)
	if called != 1 {
		t.Errorf("expected the frame-end callback to fire once, got %d", called)
	}
	d.SetOnFrameEnd(nil)
	d.Advance(cyclesPerFrame)
	if called != 1 {
		t.Errorf("expected detaching the callback to stop further calls, got %d", called)
	}
}

func TestDisplay_IRQAssertedAtDefaultColumn(t *testing.T) {
	d, _, _ := newTestDisplay(t)
	// Advance to just before the first active line.
	linesToActiveStart := activeLineStart
	d.Advance(linesToActiveStart * ColumnsPerLine / PixelsPerCPUCycle)

	var irqSeen bool
	for i := 0; i < DefaultIRQColumn/PixelsPerCPUCycle+1; i++ {
		if d.Advance(1) {
			irqSeen = true
			break
		}
	}
	if !irqSeen {
		t.Error("expected IRQ to be asserted at the default column within the first active line")
	}
}

func TestDisplay_SetIRQColumnOverridesDefault(t *testing.T) {
	d, _, _ := newTestDisplay(t)
	d.SetIRQColumn(200)
	linesToActiveStart := activeLineStart
	d.Advance(linesToActiveStart * ColumnsPerLine / PixelsPerCPUCycle)

	var irqCol int = -1
	for i := 0; i < ColumnsPerLine/PixelsPerCPUCycle; i++ {
		if d.Advance(1) {
			irqCol = d.Column() - PixelsPerCPUCycle
			break
		}
	}
	if irqCol != 200 {
		t.Errorf("expected IRQ at column 200, got %d", irqCol)
	}
}

func TestDisplay_GetFrameVSyncReturnsLastCompletedFrame(t *testing.T) {
	d, _, _ := newTestDisplay(t)
	cyclesPerFrame := (TotalScanlines * ColumnsPerLine) / PixelsPerCPUCycle
	d.Advance(cyclesPerFrame)
	frame := d.GetFrame(true)
	if len(frame) != TotalScanlines {
		t.Errorf("expected %d scanlines, got %d", TotalScanlines, len(frame))
	}
}

func TestDisplay_BorderPaletteIndexMasksTo3Bits(t *testing.T) {
	if got := borderPaletteIndex(0xFF); got != 0x07 {
		t.Errorf("expected 0x07, got %#02x", got)
	}
}

// TestDisplay_FrameIsExactly59904CPUCycles checks the raster/frame alignment
// invariant: one full frame (TotalScanlines*ColumnsPerLine pixels) is exactly
// 59,904 CPU cycles at PixelsPerCPUCycle pixels per cycle, advancing one
// cycle at a time so the frame boundary can't be skipped past.
func TestDisplay_FrameIsExactly59904CPUCycles(t *testing.T) {
	d, _, _ := newTestDisplay(t)

	const wantCyclesPerFrame = TotalScanlines * ColumnsPerLine / PixelsPerCPUCycle
	if wantCyclesPerFrame != 59904 {
		t.Fatalf("sanity check failed: raster geometry gives %d cycles/frame, want 59904", wantCyclesPerFrame)
	}

	startFrame := d.FrameCount()
	var cycles uint64
	for d.FrameCount() == startFrame {
		d.Advance(1)
		cycles++
	}
	if cycles != wantCyclesPerFrame {
		t.Errorf("expected %d CPU cycles per frame, got %d", wantCyclesPerFrame, cycles)
	}
}
