package debugger

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/parallelno/devector/core"
)

func TestSaveLoad_Roundtrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	d := New()
	d.AddLabel(0x1000, "start")
	d.AddLabel(0x1000, "entry")
	d.AddConst(0x2000, "BUFSIZE")
	d.SetComment(0x3000, "clears the screen")
	d.SetBreakpoint(Breakpoint{GlobalAddr: 0x4000, Status: BreakpointActive})
	d.SetBreakpoint(Breakpoint{GlobalAddr: 0x4010, Status: BreakpointDisabled})
	d.SetWatchpoint(Watchpoint{GlobalAddr: 0x5000, Access: WatchWrite, Cond: CondEQ, Value: 0xBEEF, Width: 2, Active: true})

	if err := d.Save(fs, "/debug.txt"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := New()
	if err := got.Load(fs, "/debug.txt"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if labels := got.labels.Labels(0x1000); len(labels) != 2 || labels[0] != "start" || labels[1] != "entry" {
		t.Errorf("labels: expected [start entry], got %v", labels)
	}
	if consts := got.labels.Consts(0x2000); len(consts) != 1 || consts[0] != "BUFSIZE" {
		t.Errorf("consts: expected [BUFSIZE], got %v", consts)
	}
	if text, ok := got.labels.Comment(0x3000); !ok || text != "clears the screen" {
		t.Errorf("comment: expected %q, got %q ok=%v", "clears the screen", text, ok)
	}

	breaks := got.Breakpoints()
	if len(breaks) != 2 {
		t.Fatalf("expected 2 breakpoints, got %d", len(breaks))
	}
	byAddr := map[core.GlobalAddr]BreakpointStatus{}
	for _, b := range breaks {
		byAddr[b.GlobalAddr] = b.Status
	}
	if byAddr[0x4000] != BreakpointActive {
		t.Errorf("expected breakpoint at 0x4000 to be active, got %v", byAddr[0x4000])
	}
	if byAddr[0x4010] != BreakpointDisabled {
		t.Errorf("expected breakpoint at 0x4010 to be disabled, got %v", byAddr[0x4010])
	}

	watches := got.Watchpoints()
	if len(watches) != 1 {
		t.Fatalf("expected 1 watchpoint, got %d", len(watches))
	}
	w := watches[0]
	if w.GlobalAddr != 0x5000 || w.Access != WatchWrite || w.Cond != CondEQ || w.Value != 0xBEEF || w.Width != 2 {
		t.Errorf("unexpected watchpoint roundtrip: %+v", w)
	}
}

func TestLoad_MissingFileReturnsIoError(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := New()
	err := d.Load(fs, "/does-not-exist.txt")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var ioErr *core.IoError
	if !asIoError(err, &ioErr) {
		t.Errorf("expected a *core.IoError, got %T: %v", err, err)
	}
}

func TestLoad_MalformedLineReturnsDebuggerError(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/bad.txt", []byte("label notanumber\n"), 0o644)

	d := New()
	err := d.Load(fs, "/bad.txt")
	if err == nil {
		t.Fatal("expected an error for a malformed line")
	}
}

func TestLoad_SkipsBlankLinesAndComments(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/ok.txt", []byte("\n# a comment line\nlabel 10 foo\n"), 0o644)

	d := New()
	if err := d.Load(fs, "/ok.txt"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if labels := d.labels.Labels(10); len(labels) != 1 || labels[0] != "foo" {
		t.Errorf("expected [foo], got %v", labels)
	}
}

func asIoError(err error, target **core.IoError) bool {
	ioErr, ok := err.(*core.IoError)
	if ok {
		*target = ioErr
	}
	return ok
}
