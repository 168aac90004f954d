package debugger

import (
	"testing"

	"github.com/parallelno/devector/core"
)

// fakeMem is a minimal memReader backed by a flat byte slice, for disasm
// tests that don't need a real core.Memory.
type fakeMem []uint8

func (m fakeMem) ReadInstr(addr core.Addr) uint8 {
	if int(addr) >= len(m) {
		return 0x00
	}
	return m[addr]
}

func TestDecodeAt(t *testing.T) {
	mem := fakeMem{0x21, 0x34, 0x12, 0x76} // LXI H,$1234 ; HLT
	n, text := decodeAt(mem, 0)
	if n != 3 || text != "LXI H,$1234" {
		t.Errorf("expected (3, LXI H,$1234), got (%d, %q)", n, text)
	}
	n, text = decodeAt(mem, 3)
	if n != 1 || text != "HLT" {
		t.Errorf("expected (1, HLT), got (%d, %q)", n, text)
	}
}

func TestBackScanStart_FindsAlignedInstructionStart(t *testing.T) {
	// NOP; LXI H,$1234; HLT -- target is the HLT at offset 4.
	mem := fakeMem{0x00, 0x21, 0x34, 0x12, 0x76}
	start := backScanStart(mem, 4)
	if start != 1 {
		t.Errorf("expected back-scan to land on the LXI at 1, got %d", start)
	}
}

func TestBackScanStart_FallsBackToTargetWhenNoAlignmentFound(t *testing.T) {
	// A run of 3-byte LXI instructions can never land exactly on offset 1.
	mem := fakeMem{0x21, 0x00, 0x00, 0x21, 0x00, 0x00}
	start := backScanStart(mem, 1)
	if start != 1 {
		t.Errorf("expected fallback to the target itself, got %d", start)
	}
}

func TestDisasm_CentersOnRequestedAddress(t *testing.T) {
	mem := fakeMem{
		0x00,             // 0: NOP
		0x00,             // 1: NOP
		0x21, 0x34, 0x12, // 2: LXI H,$1234
		0x76, // 5: HLT
	}
	lines := Disasm(mem, nil, nil, 0, 2, 3, 1)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1].Addr != 2 || lines[1].Text != "LXI H,$1234" {
		t.Errorf("expected center line to be the LXI at 2, got %+v", lines[1])
	}
}

func TestDisasm_InterleavesLabelsAndComments(t *testing.T) {
	mem := fakeMem{0x00, 0x76} // NOP; HLT
	labels := newLabelStore()
	labels.AddLabel(0, "start")
	labels.SetComment(0, "entry point")

	lines := Disasm(mem, labels, nil, 0, 0, 3, 0)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (label, comment, code), got %d", len(lines))
	}
	if lines[0].Type != LineLabel || lines[0].Text != "start" {
		t.Errorf("expected label line first, got %+v", lines[0])
	}
	if lines[1].Type != LineComment || lines[1].Text != "entry point" {
		t.Errorf("expected comment line second, got %+v", lines[1])
	}
	if lines[2].Type != LineCode || lines[2].Text != "NOP" {
		t.Errorf("expected code line third, got %+v", lines[2])
	}
}

func TestDisasm_AttachesHeatmapStats(t *testing.T) {
	mem := fakeMem{0x00}
	heat := newHeatmap(0x10)
	heat.onRun(0, 100)

	lines := Disasm(mem, nil, heat, 100, 0, 1, 0)
	if lines[0].Stats.Runs != 1 {
		t.Errorf("expected run count 1 on the code line, got %+v", lines[0].Stats)
	}
}

func TestDisasmCache_CachesAndInvalidates(t *testing.T) {
	mem := fakeMem{0x00, 0x76}
	c := newDisasmCache(8)

	first := c.GetOrDisasm(mem, nil, nil, 0, 0, 2, 0)
	second := c.GetOrDisasm(mem, nil, nil, 0, 0, 2, 0)
	if len(first) != len(second) {
		t.Fatalf("expected cached result to match, got %d vs %d", len(first), len(second))
	}

	c.Invalidate()
	if c.cache.Len() != 0 {
		t.Errorf("expected Invalidate to purge the cache, got %d entries", c.cache.Len())
	}
}
