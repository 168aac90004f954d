package debugger

import "github.com/parallelno/devector/core"

// BreakpointStatus is a breakpoint's lifecycle state (spec.md §4.6).
type BreakpointStatus int

const (
	BreakpointActive BreakpointStatus = iota
	BreakpointDisabled
	BreakpointDeleted
)

// Breakpoint stops the coordinator when the CPU's next instruction fetch
// lands on GlobalAddr, as long as Status is Active and MappingMask permits
// the address's current bank-switch configuration.
type Breakpoint struct {
	GlobalAddr      core.GlobalAddr
	Status          BreakpointStatus
	MappingMask     uint32 // bit i set: breakpoint applies when RAM-disk i is the active data mapping; 0 = applies regardless of mapping
	AutoDeleteOnHit bool   // used for "run to cursor": removed after it fires once
}

func (b *Breakpoint) matches(mappingBit uint32) bool {
	if b.Status != BreakpointActive {
		return false
	}
	if b.MappingMask == 0 {
		return true
	}
	return b.MappingMask&mappingBit != 0
}

// breakpoints is keyed by GlobalAddr, one entry per address (spec.md §4.6
// "keyed by globalAddr").
type breakpoints struct {
	byAddr map[core.GlobalAddr]*Breakpoint
}

func newBreakpoints() *breakpoints {
	return &breakpoints{byAddr: make(map[core.GlobalAddr]*Breakpoint)}
}

// Set installs or updates the breakpoint at ga; a Deleted status removes it.
func (bp *breakpoints) Set(b Breakpoint) {
	if b.Status == BreakpointDeleted {
		delete(bp.byAddr, b.GlobalAddr)
		return
	}
	cp := b
	bp.byAddr[b.GlobalAddr] = &cp
}

// Remove deletes the breakpoint at ga, if any.
func (bp *breakpoints) Remove(ga core.GlobalAddr) {
	delete(bp.byAddr, ga)
}

// List returns every registered breakpoint (Deleted entries are never kept
// in the map, so every returned entry is Active or Disabled).
func (bp *breakpoints) List() []Breakpoint {
	out := make([]Breakpoint, 0, len(bp.byAddr))
	for _, b := range bp.byAddr {
		out = append(out, *b)
	}
	return out
}

// check reports whether an active, mapping-eligible breakpoint matches ga.
// Auto-delete breakpoints are removed immediately after they fire.
func (bp *breakpoints) check(ga core.GlobalAddr, mappingBit uint32) bool {
	b, ok := bp.byAddr[ga]
	if !ok || !b.matches(mappingBit) {
		return false
	}
	if b.AutoDeleteOnHit {
		delete(bp.byAddr, ga)
	}
	return true
}
