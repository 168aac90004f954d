package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/parallelno/devector/fdd"
)

// Status is the coordinator's run state (spec.md §4.5/§5).
type Status int32

const (
	StatusStop Status = iota
	StatusRun
	StatusExit
)

// Req names one of the operations the request channel accepts (spec.md §6).
type Req int

const (
	ReqRun Req = iota
	ReqStop
	ReqExit
	ReqReset
	ReqRestart
	ReqIsRunning
	ReqExecuteInstr
	ReqExecuteFrame
	ReqSetMem
	ReqGetRegs
	ReqGetByteRAM
	ReqGetWordStack
	ReqGetDisplayData
	ReqGetMemoryModes
	ReqLoadFDD
	ReqGetFDDImage
	ReqGetFDDInfo
	ReqDebugAttach
	ReqDebugDetach
	ReqDebugReset
	ReqDebugRecorderReverse
	ReqDebugRecorderForward
	ReqKeyHandling
)

// Request is one message posted to the coordinator's request channel.
// Only the fields relevant to Op are meaningful; this mirrors the flat
// JSON-shaped payloads of spec.md §6's request table.
type Request struct {
	Op Req

	Addr     Addr
	Data     []byte
	Count    int
	DriveIdx int
	Path     string
	Key      int
	Action   string
	Frames   int

	reply chan Reply
}

// RegSnapshot is the GET_REGS reply payload.
type RegSnapshot struct {
	A, B, C, D, E, H, L uint8
	PC, SP              Addr
	CC                  uint64
	Flags               Flags
	INTE, IFF, HLTA     bool
}

// DisplayData is the GET_DISPLAY_DATA reply payload.
type DisplayData struct {
	Line, Column int
	Frame        uint64
	VScroll      uint8
}

// MemoryModes is the GET_MEMORY_MODES reply payload.
type MemoryModes struct {
	Mappings  []uint8
	ROMEnable bool
}

// FDDInfo is the GET_FDD_INFO reply payload.
type FDDInfo struct {
	Present bool
	Updated bool
	Path    string
}

// Reply is the coordinator's typed response to a Request.
type Reply struct {
	Err error

	IsRunning   bool
	Byte        uint8
	Word        uint16
	Regs        RegSnapshot
	DisplayData DisplayData
	MemoryModes MemoryModes
	FDDInfo     FDDInfo
	Image       []byte
}

// BreakChecker is implemented by the debugger; the coordinator calls it at
// every instruction boundary while running. Kept as an interface so core
// has no import-time dependency on the debugger package.
type BreakChecker interface {
	CheckBreak(ga GlobalAddr) bool
	OnInstructionBoundary(cpu *CPU, mem *Memory)
}

// Hardware is the single-worker coordinator described in spec.md §4.5/§5:
// it owns the CPU, Memory, IO, Display and a set of FDD drives, and is the
// sole mutator of their state. All other goroutines interact with it only
// through Submit and GetFrame.
type Hardware struct {
	cpu     *CPU
	mem     *Memory
	io      *IO
	display *Display
	drives  []*fdd.Drive

	bootData                 []byte
	ramDiskData               []byte
	ramDiskClearAfterRestart bool

	status atomic.Int32

	requests chan *Request
	sem      *semaphore.Weighted

	debugger atomic.Pointer[BreakChecker]

	recorder *Recorder

	pendingIRQ bool
}

// Config configures a new Hardware at construction (spec.md §6 CLI/launch
// surface: the core accepts boot-data, ram-disk-data, and a
// ram-disk-clear-after-restart flag).
type Config struct {
	NumRAMDisks              int
	NumFDDDrives              int
	BootData                 []byte
	RAMDiskData               []byte
	RAMDiskClearAfterRestart bool
	IRQColumn                int
}

// NewHardware constructs a Hardware wired per cfg. The boot ROM is loaded
// immediately (spec.md §5 "the ROM image is loaded once at construction").
func NewHardware(cfg Config) (*Hardware, error) {
	mem, err := NewMemory(cfg.NumRAMDisks, cfg.BootData)
	if err != nil {
		return nil, err
	}
	mem.SetROMEnable(true)

	io := NewIO(mem)
	display := NewDisplay(mem, io)
	if cfg.IRQColumn != 0 {
		display.SetIRQColumn(cfg.IRQColumn)
	}
	cpu := NewCPU(mem, io)

	drives := make([]*fdd.Drive, cfg.NumFDDDrives)
	for i := range drives {
		drives[i] = fdd.New()
	}

	hw := &Hardware{
		cpu:                      cpu,
		mem:                      mem,
		io:                       io,
		display:                  display,
		drives:                   drives,
		bootData:                 cfg.BootData,
		ramDiskData:              cfg.RAMDiskData,
		ramDiskClearAfterRestart: cfg.RAMDiskClearAfterRestart,
		requests:                 make(chan *Request, 64),
		sem:                      semaphore.NewWeighted(64),
	}
	hw.status.Store(int32(StatusStop))

	if len(cfg.RAMDiskData) > 0 && cfg.NumRAMDisks > 0 {
		hw.loadRAMDisk0(cfg.RAMDiskData)
	}

	return hw, nil
}

func (hw *Hardware) loadRAMDisk0(data []byte) {
	for i := 0; i < len(data) && i < ramSize; i++ {
		hw.mem.SetByteGlobal(ramDiskBase(0)+GlobalAddr(i), data[i])
	}
}

// AttachDebugger installs (or clears, with nil) the debugger's break
// checker, swapped atomically so it can be attached from any goroutine.
func (hw *Hardware) AttachDebugger(b BreakChecker) {
	if b == nil {
		hw.debugger.Store(nil)
		return
	}
	hw.debugger.Store(&b)
}

// AttachCPUHooks installs (or clears, with nil) the debugger's opcode-fetch
// and data-read/data-write callbacks on the CPU, used for trace-log capture,
// heat-map counting, and watchpoint evaluation.
func (hw *Hardware) AttachCPUHooks(h *HookSet) { hw.cpu.AttachHooks(h) }

// CPU and Memory expose the underlying subsystems to the debugger package
// for read-only inspection (disassembly, label/comment lookups). Callers
// other than the coordinator's own goroutine must only read, never mutate,
// through these — all mutation goes through Submit.
func (hw *Hardware) CPU() *CPU       { return hw.cpu }
func (hw *Hardware) Memory() *Memory { return hw.mem }

func (hw *Hardware) currentStatus() Status { return Status(hw.status.Load()) }

// Run drives the coordinator's loop until a STATUS_EXIT request is
// processed or ctx is canceled. It is meant to run as the sole goroutine
// touching CPU/Memory/IO/Display state (spec.md §5).
func (hw *Hardware) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		st := hw.currentStatus()
		if st == StatusExit {
			return
		}
		if st == StatusRun {
			hw.stepOnce()
			hw.drainRequests(false)
		} else {
			hw.drainRequests(true)
		}
	}
}

// stepOnce advances every subsystem by exactly one CPU machine cycle,
// mirroring the pseudocode in spec.md §4.5.
func (hw *Hardware) stepOnce() {
	hw.cpu.ExecuteMachineCycle(hw.pendingIRQ)
	hw.pendingIRQ = false

	t := hw.cpu.LastTStates
	if hw.display.Advance(t) {
		hw.pendingIRQ = true
	}

	if hw.cpu.IsInstructionExecuted() {
		if bc := hw.debugger.Load(); bc != nil {
			(*bc).OnInstructionBoundary(hw.cpu, hw.mem)
			if (*bc).CheckBreak(hw.cpu.PCGlobal()) {
				hw.status.Store(int32(StatusStop))
			}
		}
	}
}

// drainRequests services at most all currently queued requests; if
// blocking is true it waits for at least one.
func (hw *Hardware) drainRequests(blocking bool) {
	if blocking {
		req := <-hw.requests
		hw.handle(req)
		return
	}
	for {
		select {
		case req := <-hw.requests:
			hw.handle(req)
		default:
			return
		}
	}
}

// Submit posts req to the coordinator and blocks for its reply. Bounded by
// a weighted semaphore sized to the request channel's capacity, per
// spec.md §5's "bounded MPSC queue, submitter blocks on reply".
func (hw *Hardware) Submit(ctx context.Context, req Request) Reply {
	if err := hw.sem.Acquire(ctx, 1); err != nil {
		return Reply{Err: err}
	}
	defer hw.sem.Release(1)

	req.reply = make(chan Reply, 1)
	hw.requests <- &req
	select {
	case rep := <-req.reply:
		return rep
	case <-ctx.Done():
		return Reply{Err: ctx.Err()}
	}
}

func (hw *Hardware) handle(req *Request) {
	rep := hw.dispatch(req)
	req.reply <- rep
}

func (hw *Hardware) dispatch(req *Request) Reply {
	switch req.Op {
	case ReqRun:
		hw.status.Store(int32(StatusRun))
		return Reply{}
	case ReqStop:
		hw.status.Store(int32(StatusStop))
		return Reply{}
	case ReqExit:
		hw.status.Store(int32(StatusExit))
		return Reply{}
	case ReqReset:
		hw.cpu.Reset()
		return Reply{}
	case ReqRestart:
		hw.cpu.Reset()
		if hw.ramDiskClearAfterRestart {
			hw.clearRAMDisks()
		}
		return Reply{}
	case ReqIsRunning:
		return Reply{IsRunning: hw.currentStatus() == StatusRun}
	case ReqExecuteInstr:
		return hw.executeInstr(req.Count)
	case ReqExecuteFrame:
		return hw.executeFrame()
	case ReqSetMem:
		return hw.setMem(req.Addr, req.Data)
	case ReqGetRegs:
		return Reply{Regs: hw.regSnapshot()}
	case ReqGetByteRAM:
		return Reply{Byte: hw.mem.GetByteGlobal(GlobalAddr(req.Addr))}
	case ReqGetWordStack:
		lo := hw.mem.ReadStack(req.Addr)
		hi := hw.mem.ReadStack(req.Addr + 1)
		return Reply{Word: uint16(hi)<<8 | uint16(lo)}
	case ReqGetDisplayData:
		return Reply{DisplayData: DisplayData{
			Line: hw.display.Line(), Column: hw.display.Column(),
			Frame: hw.display.FrameCount(), VScroll: hw.io.VScroll(),
		}}
	case ReqGetMemoryModes:
		modes := make([]uint8, hw.mem.RAMDiskCount())
		for i := range modes {
			modes[i] = hw.mem.MappingRaw(i)
		}
		return Reply{MemoryModes: MemoryModes{Mappings: modes, ROMEnable: hw.mem.ROMEnabled()}}
	case ReqLoadFDD:
		return hw.loadFDD(req.DriveIdx, req.Data)
	case ReqGetFDDImage:
		return hw.getFDDImage(req.DriveIdx)
	case ReqGetFDDInfo:
		return hw.getFDDInfo(req.DriveIdx)
	case ReqKeyHandling:
		hw.io.SetKeyLatch(req.Key>>4, uint8(req.Key&0x0F))
		return Reply{}
	case ReqDebugAttach:
		hw.recorder = &Recorder{}
		hw.recorder.Attach(hw.cpu, hw.mem, hw.io, hw.display)
		return Reply{}
	case ReqDebugDetach:
		if hw.recorder != nil {
			hw.recorder.Detach()
			hw.recorder = nil
		}
		hw.debugger.Store(nil)
		hw.cpu.AttachHooks(nil)
		return Reply{}
	case ReqDebugReset:
		if hw.recorder != nil {
			hw.recorder.Detach()
			hw.recorder = &Recorder{}
			hw.recorder.Attach(hw.cpu, hw.mem, hw.io, hw.display)
		}
		return Reply{}
	case ReqDebugRecorderReverse:
		return hw.recorderStep(false)
	case ReqDebugRecorderForward:
		return hw.recorderStep(true)
	}
	return Reply{Err: &RequestError{Request: fmt.Sprintf("%d", req.Op), Reason: "unknown operation"}}
}

// executeInstr steps exactly count instructions (default 1), requiring the
// coordinator be stopped first (spec.md §6 "ok when count instructions
// executed under STOP").
func (hw *Hardware) executeInstr(count int) Reply {
	if count <= 0 {
		count = 1
	}
	if hw.currentStatus() == StatusRun {
		return Reply{Err: &RequestError{Request: "EXECUTE_INSTR", Reason: "coordinator is running"}}
	}
	for i := 0; i < count; i++ {
		for {
			hw.stepOnce()
			if hw.cpu.IsInstructionExecuted() {
				break
			}
		}
	}
	return Reply{}
}

// executeFrame steps until one display frame elapses.
func (hw *Hardware) executeFrame() Reply {
	start := hw.display.FrameCount()
	for hw.display.FrameCount() == start {
		hw.stepOnce()
	}
	return Reply{}
}

func (hw *Hardware) setMem(addr Addr, data []byte) Reply {
	if hw.currentStatus() == StatusRun {
		return Reply{Err: &RequestError{Request: "SET_MEM", Reason: "coordinator is running"}}
	}
	for i, b := range data {
		hw.mem.Write(addr+Addr(i), b, Data)
	}
	return Reply{}
}

func (hw *Hardware) regSnapshot() RegSnapshot {
	return RegSnapshot{
		A: hw.cpu.A, B: hw.cpu.B, C: hw.cpu.C, D: hw.cpu.D, E: hw.cpu.E, H: hw.cpu.H, L: hw.cpu.L,
		PC: hw.cpu.PC, SP: hw.cpu.SP, CC: hw.cpu.CC, Flags: hw.cpu.Flags,
		INTE: hw.cpu.INTE, IFF: hw.cpu.IRQ, HLTA: hw.cpu.HLTA,
	}
}

// recorderStep steps the reverse-time recorder one frame, forward if fwd is
// true, backward otherwise. DebuggerError surfaces past the edge of the
// ring rather than panicking (spec.md §7's "reported, not fatal" policy).
func (hw *Hardware) recorderStep(fwd bool) Reply {
	if hw.recorder == nil {
		return Reply{Err: &DebuggerError{Reason: "recorder not attached"}}
	}
	var err error
	if fwd {
		err = hw.recorder.ForwardFrame()
	} else {
		err = hw.recorder.ReverseFrame()
	}
	if err != nil {
		return Reply{Err: &DebuggerError{Reason: err.Error()}}
	}
	return Reply{}
}

func (hw *Hardware) clearRAMDisks() {
	for i := 0; i < hw.mem.RAMDiskCount(); i++ {
		base := ramDiskBase(i)
		for off := GlobalAddr(0); off < pagesPerDisk*pageSize; off++ {
			hw.mem.SetByteGlobal(base+off, 0)
		}
	}
}

func (hw *Hardware) loadFDD(idx int, data []byte) Reply {
	if idx < 0 || idx >= len(hw.drives) {
		return Reply{Err: &RequestError{Request: "LOAD_FDD", Reason: "drive index out of range"}}
	}
	if err := hw.drives[idx].LoadBytes(data); err != nil {
		return Reply{Err: &IoError{Path: "", Op: "load", Err: err}}
	}
	return Reply{}
}

func (hw *Hardware) getFDDImage(idx int) Reply {
	if idx < 0 || idx >= len(hw.drives) {
		return Reply{Err: &RequestError{Request: "GET_FDD_IMAGE", Reason: "drive index out of range"}}
	}
	return Reply{Image: hw.drives[idx].Image()}
}

func (hw *Hardware) getFDDInfo(idx int) Reply {
	if idx < 0 || idx >= len(hw.drives) {
		return Reply{Err: &RequestError{Request: "GET_FDD_INFO", Reason: "drive index out of range"}}
	}
	d := hw.drives[idx]
	return Reply{FDDInfo: FDDInfo{Present: d.Present(), Updated: d.Dirty(), Path: d.Path}}
}

// GetFrame is the cross-thread pixel hand-off (spec.md §4.4/§6).
func (hw *Hardware) GetFrame(vsync bool) [TotalScanlines][ColumnsPerLine]Color {
	return hw.display.GetFrame(vsync)
}
