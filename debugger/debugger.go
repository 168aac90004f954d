// Package debugger implements the Vector-06C emulator's debug surface:
// disassembly, breakpoints, watchpoints, a trace log, a memory access
// heat-map, and address labels/comments. It attaches to a *core.Hardware
// without core importing it back, by implementing core.BreakChecker and by
// installing a core.HookSet on the CPU.
package debugger

import "github.com/parallelno/devector/core"

// disasmCacheSize bounds how many distinct (center, window) disassembly
// results are retained; a UI typically repaints the same handful of windows
// every frame.
const disasmCacheSize = 64

// Debugger implements core.BreakChecker and owns the debug-only state that
// spec.md §5 says is lazily allocated on attach and freed on detach: the
// heat-map arrays, sized to the global address space, and the fixed-size
// trace ring (TraceLogSize entries).
type Debugger struct {
	hw *core.Hardware

	breaks  *breakpoints
	watches *watchpoints
	labels  *labelStore

	trace *traceLog
	heat  *heatmap
	disasmCache *disasmCache

	runToCursor core.GlobalAddr
	hasRunTo    bool
}

// New constructs a Debugger with its always-present, cheap state
// (breakpoints/watchpoints/labels) populated. Attach allocates the
// memory-sized heat-map and trace ring.
func New() *Debugger {
	return &Debugger{
		breaks:      newBreakpoints(),
		watches:     newWatchpoints(),
		labels:      newLabelStore(),
		disasmCache: newDisasmCache(disasmCacheSize),
	}
}

// Attach wires the debugger to a running Hardware: it installs this
// Debugger as the coordinator's BreakChecker and installs a HookSet on the
// CPU for trace/heat-map/watchpoint evaluation, then allocates the
// heat-map sized to hw's global memory length and the TraceLogSize-entry
// trace ring.
func (d *Debugger) Attach(hw *core.Hardware) {
	d.hw = hw
	d.trace = newTraceLog()
	d.heat = newHeatmap(hw.Memory().GlobalLen())

	hw.AttachCPUHooks(&core.HookSet{
		OnReadInstr: d.onReadInstr,
		OnRead:      d.onRead,
		OnWrite:     d.onWrite,
	})
	hw.AttachDebugger(d)
}

// Detach removes the debugger from hw and frees the heat-map/trace ring.
func (d *Debugger) Detach() {
	if d.hw != nil {
		d.hw.AttachCPUHooks(nil)
		d.hw.AttachDebugger(nil)
	}
	d.trace = nil
	d.heat = nil
	d.hw = nil
}

func (d *Debugger) onReadInstr(ga core.GlobalAddr, opcode, dataH, dataL uint8, hl core.Addr) {
	d.trace.append(TraceEntry{GlobalAddr: ga, Opcode: opcode, DataLow: dataL, DataHigh: dataH})
	if d.heat != nil {
		d.heat.onRun(ga, d.currentCC())
	}
}

func (d *Debugger) onRead(ga core.GlobalAddr, val uint8) {
	if d.heat != nil {
		d.heat.onRead(ga, d.currentCC())
	}
	d.watches.onAccess(WatchRead, ga, val)
}

func (d *Debugger) onWrite(ga core.GlobalAddr, val uint8) {
	if d.heat != nil {
		d.heat.onWrite(ga, d.currentCC())
	}
	d.watches.onAccess(WatchWrite, ga, val)
	d.disasmCache.Invalidate()
}

func (d *Debugger) currentCC() uint64 {
	if d.hw == nil {
		return 0
	}
	return d.hw.CPU().GetCC()
}

// CheckBreak implements core.BreakChecker: it reports whether an active
// breakpoint or a just-tripped watchpoint should stop the coordinator.
func (d *Debugger) CheckBreak(ga core.GlobalAddr) bool {
	if d.watches.takeTrip() {
		return true
	}
	if d.hasRunTo && ga == d.runToCursor {
		d.hasRunTo = false
		return true
	}
	var mappingBit uint32
	if disk, ok := d.hw.Memory().ActiveDataDisk(core.Addr(ga)); ok {
		mappingBit = 1 << uint(disk)
	}
	return d.breaks.check(ga, mappingBit)
}

// OnInstructionBoundary implements core.BreakChecker. The debugger's own
// state is updated incrementally through the CPU hooks above; this hook
// exists for future per-instruction bookkeeping that needs direct CPU/
// Memory access (e.g. a step-over count), and is intentionally a no-op
// until such a feature is added.
func (d *Debugger) OnInstructionBoundary(cpu *core.CPU, mem *core.Memory) {}

// SetBreakpoint, RemoveBreakpoint, and Breakpoints expose breakpoint
// management.
func (d *Debugger) SetBreakpoint(b Breakpoint)            { d.breaks.Set(b) }
func (d *Debugger) RemoveBreakpoint(ga core.GlobalAddr)   { d.breaks.Remove(ga) }
func (d *Debugger) Breakpoints() []Breakpoint             { return d.breaks.List() }

// RunToCursor arms a one-shot breakpoint at ga, auto-clearing itself once
// hit (spec.md §4.6 "used for run-to-cursor").
func (d *Debugger) RunToCursor(ga core.GlobalAddr) {
	d.runToCursor = ga
	d.hasRunTo = true
}

// SetWatchpoint, ClearWatchpoints, and Watchpoints expose watchpoint
// management.
func (d *Debugger) SetWatchpoint(w Watchpoint)   { d.watches.Set(w) }
func (d *Debugger) ClearWatchpoints()            { d.watches.Clear() }
func (d *Debugger) Watchpoints() []Watchpoint    { return d.watches.List() }

// AddLabel, AddConst, SetComment, and their Remove/Clear counterparts expose
// label-store management.
func (d *Debugger) AddLabel(addr core.Addr, name string)  { d.labels.AddLabel(addr, name) }
func (d *Debugger) AddConst(addr core.Addr, name string)  { d.labels.AddConst(addr, name) }
func (d *Debugger) SetComment(addr core.Addr, text string) { d.labels.SetComment(addr, text) }
func (d *Debugger) RemoveLabel(addr core.Addr, name string) { d.labels.RemoveLabel(addr, name) }
func (d *Debugger) RemoveConst(addr core.Addr, name string) { d.labels.RemoveConst(addr, name) }
func (d *Debugger) ClearComment(addr core.Addr)             { d.labels.ClearComment(addr) }

// Disasm produces a disassembly window centered on addr, served from cache
// when the window and underlying memory haven't changed since the last
// call.
func (d *Debugger) Disasm(addr core.Addr, lines, linesBefore int) []Line {
	return d.disasmCache.GetOrDisasm(d.hw.Memory(), d.labels, d.heat, d.currentCC(), addr, lines, linesBefore)
}

// Trace exposes the trace log for forward/backward filtered scans.
func (d *Debugger) Trace() *traceLog { return d.trace }

// HeatStats reports a byte's run/read/write counters and recency.
func (d *Debugger) HeatStats(ga core.GlobalAddr) Stats {
	if d.heat == nil {
		return Stats{}
	}
	return d.heat.Get(ga, d.currentCC())
}
