package debugger

import (
	"math"

	"github.com/parallelno/devector/core"
)

// recencyHalfLife is the number of CPU cycles after which a byte's recency
// score has decayed to half, giving the memory-display coloring a "heat"
// that fades over time rather than a binary touched/untouched flag (spec.md
// §4.6 "a decaying recency value").
const recencyHalfLife = 50_000

// heatmap holds per-byte access counters and the cycle count each byte was
// last touched at, sized to the full global address space. Recency is
// computed lazily from elapsed cycles rather than decayed eagerly on every
// access, since eagerly decaying millions of bytes per instruction would
// make every access O(memory size). Lazily allocated on Attach and freed on
// Detach (spec.md §5's resource policy for the ~megabyte-sized debug
// counters).
type heatmap struct {
	runs, reads, writes []uint64
	lastTouch           []uint64
}

func newHeatmap(globalLen int) *heatmap {
	return &heatmap{
		runs:      make([]uint64, globalLen),
		reads:     make([]uint64, globalLen),
		writes:    make([]uint64, globalLen),
		lastTouch: make([]uint64, globalLen),
	}
}

func (h *heatmap) onRun(ga core.GlobalAddr, cc uint64) {
	if int(ga) < len(h.runs) {
		h.runs[ga]++
		h.lastTouch[ga] = cc
	}
}

func (h *heatmap) onRead(ga core.GlobalAddr, cc uint64) {
	if int(ga) < len(h.reads) {
		h.reads[ga]++
		h.lastTouch[ga] = cc
	}
}

func (h *heatmap) onWrite(ga core.GlobalAddr, cc uint64) {
	if int(ga) < len(h.writes) {
		h.writes[ga]++
		h.lastTouch[ga] = cc
	}
}

// Stats is the read-only per-byte counter set returned to a caller.
type Stats struct {
	Runs, Reads, Writes uint64
	Recency             float64
}

// Get reports ga's counters and its recency relative to now (typically the
// CPU's current cycle counter).
func (h *heatmap) Get(ga core.GlobalAddr, now uint64) Stats {
	if int(ga) >= len(h.runs) {
		return Stats{}
	}
	elapsed := now - h.lastTouch[ga]
	recency := math.Pow(0.5, float64(elapsed)/recencyHalfLife)
	return Stats{Runs: h.runs[ga], Reads: h.reads[ga], Writes: h.writes[ga], Recency: recency}
}
