package debugger

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/parallelno/devector/core"
)

// Save writes the debugger's labels, consts, comments, breakpoints, and
// watchpoints to path as a line-oriented text file (spec.md §6 "debug-data
// file"; shape supplemented from Devector's debug_data.h, see DESIGN.md).
func (d *Debugger) Save(fs afero.Fs, path string) error {
	f, err := fs.Create(path)
	if err != nil {
		return &core.IoError{Path: path, Op: "create", Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for addr, names := range d.labels.labels {
		for _, n := range names {
			fmt.Fprintf(w, "label %d %s\n", addr, n)
		}
	}
	for addr, names := range d.labels.consts {
		for _, n := range names {
			fmt.Fprintf(w, "const %d %s\n", addr, n)
		}
	}
	for addr, text := range d.labels.comments {
		fmt.Fprintf(w, "comment %d %s\n", addr, text)
	}
	for _, b := range d.breaks.List() {
		status := "active"
		if b.Status == BreakpointDisabled {
			status = "disabled"
		}
		fmt.Fprintf(w, "break %d %s\n", b.GlobalAddr, status)
	}
	for _, wp := range d.watches.List() {
		fmt.Fprintf(w, "watch %d %s %s %d %d\n",
			wp.GlobalAddr, watchAccessName(wp.Access), watchCondName(wp.Cond), wp.Value, wp.Width)
	}
	return w.Flush()
}

// Load parses a file written by Save, replacing the debugger's current
// labels/consts/comments/breakpoints/watchpoints.
func (d *Debugger) Load(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return &core.IoError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	d.labels = newLabelStore()
	d.breaks = newBreakpoints()
	d.watches = newWatchpoints()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			continue
		}
		if err := d.loadLine(fields); err != nil {
			return &core.DebuggerError{Reason: fmt.Sprintf("persist: %q: %v", line, err)}
		}
	}
	return sc.Err()
}

func (d *Debugger) loadLine(fields []string) error {
	switch fields[0] {
	case "label", "const":
		if len(fields) < 3 {
			return fmt.Errorf("missing name")
		}
		addr, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		if fields[0] == "label" {
			d.labels.AddLabel(core.Addr(addr), fields[2])
		} else {
			d.labels.AddConst(core.Addr(addr), fields[2])
		}
	case "comment":
		if len(fields) < 3 {
			return fmt.Errorf("missing text")
		}
		addr, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		d.labels.SetComment(core.Addr(addr), fields[2])
	case "break":
		return d.loadBreak(fields)
	case "watch":
		return d.loadWatch(fields)
	}
	return nil
}

func (d *Debugger) loadBreak(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("missing status")
	}
	rest := strings.Fields(fields[2])
	if len(rest) < 1 {
		return fmt.Errorf("missing status")
	}
	ga, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	status := BreakpointActive
	if rest[0] == "disabled" {
		status = BreakpointDisabled
	}
	d.breaks.Set(Breakpoint{GlobalAddr: core.GlobalAddr(ga), Status: status})
	return nil
}

func (d *Debugger) loadWatch(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("missing watch fields")
	}
	rest := strings.Fields(fields[2])
	if len(rest) < 4 {
		return fmt.Errorf("want access cond value width")
	}
	ga, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	access, err := parseWatchAccess(rest[0])
	if err != nil {
		return err
	}
	cond, err := parseWatchCond(rest[1])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(rest[2])
	if err != nil {
		return err
	}
	width, err := strconv.Atoi(rest[3])
	if err != nil {
		return err
	}
	d.watches.Set(Watchpoint{
		GlobalAddr: core.GlobalAddr(ga), Access: access, Cond: cond,
		Value: uint16(value), Width: width, Active: true,
	})
	return nil
}

func watchAccessName(a WatchAccess) string {
	switch a {
	case WatchRead:
		return "r"
	case WatchWrite:
		return "w"
	default:
		return "rw"
	}
}

func parseWatchAccess(s string) (WatchAccess, error) {
	switch s {
	case "r":
		return WatchRead, nil
	case "w":
		return WatchWrite, nil
	case "rw":
		return WatchReadWrite, nil
	}
	return 0, fmt.Errorf("bad access %q", s)
}

var condNames = map[WatchCond]string{
	CondAny: "any", CondEQ: "==", CondLT: "<", CondGT: ">",
	CondLE: "<=", CondGE: ">=", CondNE: "!=",
}

func watchCondName(c WatchCond) string {
	if s, ok := condNames[c]; ok {
		return s
	}
	return "any"
}

func parseWatchCond(s string) (WatchCond, error) {
	for c, name := range condNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("bad cond %q", s)
}
