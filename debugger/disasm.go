package debugger

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/parallelno/devector/core"
)

// LineType distinguishes a disassembled instruction line from the label and
// comment lines interleaved above it (spec.md §4.6).
type LineType int

const (
	LineCode LineType = iota
	LineLabel
	LineComment
)

// Line is one row of a disassembly view.
type Line struct {
	Type   LineType
	Addr   core.Addr
	Text   string
	Consts []string
	Stats  Stats
}

// memReader is the minimal read surface disasm needs; satisfied by
// *core.Memory's instruction-space reads.
type memReader interface {
	ReadInstr(addr core.Addr) uint8
}

// maxBackScanBytes bounds how far upstream a candidate start offset is
// tried, since the longest 8080 instruction is 3 bytes and false-positive
// candidates beyond a handful of instructions back are not worth the cost.
const maxBackScanBytes = 3 * 16

// disasmKey identifies one cached disassembly window.
type disasmKey struct {
	center              core.Addr
	linesBefore, linesAfter int
}

// disasmCache bounds the back-scan cache so repeated requests over the same
// window (as a UI repaints every frame) don't re-decode (spec.md §6
// DOMAIN STACK: hashicorp/golang-lru).
type disasmCache struct {
	cache *lru.Cache[disasmKey, []Line]
}

func newDisasmCache(size int) *disasmCache {
	c, _ := lru.New[disasmKey, []Line](size)
	return &disasmCache{cache: c}
}

// decodeAt reads and decodes a single instruction starting at addr,
// returning its length and mnemonic text.
func decodeAt(mem memReader, addr core.Addr) (length int, text string) {
	op := mem.ReadInstr(addr)
	n := int(opLen[op])
	var lo, hi uint8
	if n >= 2 {
		lo = mem.ReadInstr(addr + 1)
	}
	if n >= 3 {
		hi = mem.ReadInstr(addr + 2)
	}
	return n, mnemonic(op, lo, hi)
}

// backScanStart finds a plausible instruction-start address at or before
// target by trying the maxBackScanBytes candidate offsets upstream, farthest
// first, and picking the first one whose decoded-length walk lands exactly
// on target (spec.md §4.6 "heuristic... pick the one whose decoded length
// sequence terminates cleanly at the target"). It returns the start of the
// walk's last instruction, the one that ends at target. Falls back to target
// itself (treating it as already aligned) if no candidate works.
func backScanStart(mem memReader, target core.Addr) core.Addr {
	for back := maxBackScanBytes; back >= 1; back-- {
		start := target - core.Addr(back)
		addr := start
		for addr < target {
			n, _ := decodeAt(mem, addr)
			next := addr + core.Addr(n)
			if next == target {
				return addr
			}
			if next > target {
				break
			}
			addr = next
		}
	}
	return target
}

// Disasm produces `lines` Line entries centered so the center address
// appears as the `linesBefore`-th Code line from the top, per spec.md §4.6
// and the T8 testable property.
func Disasm(mem memReader, labels *labelStore, heat *heatmap, now uint64, center core.Addr, lines, linesBefore int) []Line {
	start := center
	for i := 0; i < linesBefore; i++ {
		start = backScanStart(mem, start)
	}

	out := make([]Line, 0, lines)
	addr := start
	for len(out) < lines {
		if labels != nil {
			for _, l := range labels.Labels(addr) {
				out = append(out, Line{Type: LineLabel, Addr: addr, Text: l})
				if len(out) >= lines {
					break
				}
			}
			if len(out) >= lines {
				break
			}
			if c, ok := labels.Comment(addr); ok {
				out = append(out, Line{Type: LineComment, Addr: addr, Text: c})
				if len(out) >= lines {
					break
				}
			}
		}

		n, text := decodeAt(mem, addr)
		var stats Stats
		if heat != nil {
			stats = heat.Get(core.GlobalAddr(addr), now)
		}
		var consts []string
		if labels != nil {
			consts = labels.Consts(addr)
		}
		out = append(out, Line{Type: LineCode, Addr: addr, Text: text, Consts: consts, Stats: stats})
		addr += core.Addr(n)
	}
	return out
}

// GetOrDisasm serves a window from the cache if present, otherwise computes
// and stores it.
func (c *disasmCache) GetOrDisasm(mem memReader, labels *labelStore, heat *heatmap, now uint64, center core.Addr, lines, linesBefore int) []Line {
	key := disasmKey{center: center, linesBefore: linesBefore, linesAfter: lines - linesBefore}
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	out := Disasm(mem, labels, heat, now, center, lines, linesBefore)
	c.cache.Add(key, out)
	return out
}

// Invalidate drops every cached window; called whenever memory is written,
// since a write can change instruction boundaries upstream of any address.
func (c *disasmCache) Invalidate() { c.cache.Purge() }
