package debugger

import "github.com/parallelno/devector/core"

// WatchAccess selects which kind of access a watchpoint reacts to.
type WatchAccess int

const (
	WatchRead WatchAccess = iota
	WatchWrite
	WatchReadWrite
)

// WatchCond is the comparison applied between the access value and Value.
type WatchCond int

const (
	CondAny WatchCond = iota
	CondEQ
	CondLT
	CondGT
	CondLE
	CondGE
	CondNE
)

// Watchpoint latches a break request when a matching access occurs (spec.md
// §4.6). A 2-byte watchpoint requires both halves to satisfy Cond before it
// latches.
type Watchpoint struct {
	GlobalAddr core.GlobalAddr
	Access     WatchAccess
	Cond       WatchCond
	Value      uint16
	Width      int // 1 or 2
	Active     bool
}

func evalCond(cond WatchCond, got, want uint8) bool {
	switch cond {
	case CondAny:
		return true
	case CondEQ:
		return got == want
	case CondLT:
		return got < want
	case CondGT:
		return got > want
	case CondLE:
		return got <= want
	case CondGE:
		return got >= want
	case CondNE:
		return got != want
	}
	return false
}

// watchpoints tracks the registered set and the hi/lo halves seen so far for
// any in-progress 2-byte match.
type watchpoints struct {
	list    []*Watchpoint
	loSeen  map[core.GlobalAddr]bool
	tripped bool
}

func newWatchpoints() *watchpoints {
	return &watchpoints{loSeen: make(map[core.GlobalAddr]bool)}
}

func (w *watchpoints) Set(wp Watchpoint) { w.list = append(w.list, &wp) }

func (w *watchpoints) List() []Watchpoint {
	out := make([]Watchpoint, len(w.list))
	for i, p := range w.list {
		out[i] = *p
	}
	return out
}

func (w *watchpoints) Clear() { w.list = nil }

// onAccess evaluates every registered watchpoint against one read or write
// access at ga carrying val, latching tripped if one matches. Width-2
// watchpoints match on the low byte (ga == GlobalAddr) and then the high
// byte (ga+1): loSeen records having seen the low half satisfy cond, and a
// later high-half access that also satisfies cond trips the watchpoint.
// loSeen is cleared by that trip or by a low-half access that fails cond;
// it is not cleared at instruction boundaries.
func (w *watchpoints) onAccess(access WatchAccess, ga core.GlobalAddr, val uint8) {
	for _, wp := range w.list {
		if !wp.Active {
			continue
		}
		if wp.Access != WatchReadWrite && wp.Access != access {
			continue
		}
		if wp.Width == 2 {
			w.evalWide(wp, ga, val)
			continue
		}
		if ga != wp.GlobalAddr {
			continue
		}
		if evalCond(wp.Cond, val, uint8(wp.Value)) {
			w.tripped = true
		}
	}
}

func (w *watchpoints) evalWide(wp *Watchpoint, ga core.GlobalAddr, val uint8) {
	lo, hi := wp.GlobalAddr, wp.GlobalAddr+1
	switch ga {
	case lo:
		if evalCond(wp.Cond, val, uint8(wp.Value)) {
			w.loSeen[lo] = true
		} else {
			delete(w.loSeen, lo)
		}
	case hi:
		if w.loSeen[lo] && evalCond(wp.Cond, val, uint8(wp.Value>>8)) {
			w.tripped = true
			delete(w.loSeen, lo)
		}
	}
}

// takeTrip reports whether a watchpoint has latched a break since the last
// call, clearing the latch.
func (w *watchpoints) takeTrip() bool {
	t := w.tripped
	w.tripped = false
	return t
}
