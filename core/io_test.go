package core

import "testing"

func newTestIO(t *testing.T) (*IO, *Memory) {
	t.Helper()
	mem, err := NewMemory(1, nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return NewIO(mem), mem
}

func TestIO_KeyboardRowsDefaultUnpressed(t *testing.T) {
	io, _ := newTestIO(t)
	for row := 0; row < 16; row++ {
		if got := io.In(uint8(row)); got != 0xFF {
			t.Errorf("row %d: expected 0xFF, got %#02x", row, got)
		}
	}
}

func TestIO_SetKeyLatch(t *testing.T) {
	io, _ := newTestIO(t)
	io.SetKeyLatch(3, 0xF7)
	if got := io.In(3); got != 0xF7 {
		t.Errorf("expected 0xF7, got %#02x", got)
	}
}

func TestIO_Joystick(t *testing.T) {
	io, _ := newTestIO(t)
	if got := io.In(PortJoystick); got != 0xFF {
		t.Errorf("expected default 0xFF, got %#02x", got)
	}
	io.SetJoystickLatch(0x01)
	if got := io.In(PortJoystick); got != 0x01 {
		t.Errorf("expected 0x01, got %#02x", got)
	}
}

func TestIO_TapeBit(t *testing.T) {
	io, _ := newTestIO(t)
	if got := io.In(PortTapeIn); got != 0 {
		t.Errorf("expected 0 by default, got %#02x", got)
	}
	io.SetTapeBit(true)
	if got := io.In(PortTapeIn); got != 1 {
		t.Errorf("expected 1, got %#02x", got)
	}
}

func TestIO_DiskStatus(t *testing.T) {
	io, _ := newTestIO(t)
	io.SetDiskStatus(0x42)
	if got := io.In(PortRAMDiskStatus); got != 0x42 {
		t.Errorf("expected 0x42, got %#02x", got)
	}
}

func TestIO_UnmappedPortReadsFF(t *testing.T) {
	io, _ := newTestIO(t)
	if got := io.In(0x7F); got != 0xFF {
		t.Errorf("expected 0xFF for an unmapped port, got %#02x", got)
	}
}

func TestIO_RasterPortsApplyImmediatelyWithNoDisplayAttached(t *testing.T) {
	io, _ := newTestIO(t)
	io.Out(PortBorderColor, 0x05)
	if got := io.BorderColor(); got != 0x05 {
		t.Errorf("expected border color 0x05, got %#02x", got)
	}
	io.Out(PortVScroll, 0x10)
	if got := io.VScroll(); got != 0x10 {
		t.Errorf("expected vscroll 0x10, got %#02x", got)
	}
	io.Out(PortMode, 0x01)
	if !io.Mode256() {
		t.Error("expected mode256 true")
	}
}

func TestIO_PaletteWriteLatchesIndexThenData(t *testing.T) {
	io, _ := newTestIO(t)
	io.Out(PortPaletteIndex, 5)
	io.Out(PortPaletteData, 0xFF)
	got := io.PaletteEntry(5)
	want := decodeVectorColor(0xFF)
	if got != want {
		t.Errorf("expected palette entry %+v, got %+v", want, got)
	}
}

func TestIO_BorderColorMasksToLow3Bits(t *testing.T) {
	io, _ := newTestIO(t)
	io.Out(PortBorderColor, 0xFF)
	if got := io.BorderColor(); got != 0x07 {
		t.Errorf("expected border color masked to 0x07, got %#02x", got)
	}
}

func TestIO_RasterWriteIsQueuedWhenDisplayAttached(t *testing.T) {
	io, mem := newTestIO(t)
	d := NewDisplay(mem, io)
	io.Out(PortBorderColor, 0x03)
	if got := io.BorderColor(); got == 0x03 {
		t.Error("expected the write to be queued, not applied immediately, once a Display is attached")
	}
	d.Advance(ColorPollutionPixels/PixelsPerCPUCycle + 1)
	if got := io.BorderColor(); got != 0x03 {
		t.Errorf("expected the queued write to have committed after the color-pollution window, got %#02x", got)
	}
}

func TestIO_RAMDiskModePortAppliesImmediately(t *testing.T) {
	io, mem := newTestIO(t)
	io.Out(PortRAMDiskModeBase, 0x01) // page bits only; no mapping mode bit set
	if mem.ramDisks[0].mapping.Raw() != 0x01 {
		t.Errorf("expected RAM-disk 0 mapping raw byte 0x01, got %#02x", mem.ramDisks[0].mapping.Raw())
	}
}

func TestIO_RAMDiskModePortOutOfRangeIsIgnored(t *testing.T) {
	io, _ := newTestIO(t)
	// Only 1 RAM disk configured; port for disk 5 should be silently ignored.
	io.Out(PortRAMDiskModeBase+5, 0x01)
}
