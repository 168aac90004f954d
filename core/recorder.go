package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/pierrec/lz4/v4"
)

// StatesLen is the recorder's fixed ring size (spec.md §3 "e.g. 60
// entries").
const StatesLen = 60

// writeRec is one memory write captured during a frame: the physical byte
// it touched, the value written, and the value it held immediately before
// — enough to replay the write in either direction.
type writeRec struct {
	Global GlobalAddr
	Value  uint8
	Pre    uint8
}

// frameEntry is one ring slot: the CPU/IO/display state as it was right
// before the frame began, plus every memory write that happened during it.
type frameEntry struct {
	valid    bool
	cpu      cpuState
	io       ioState
	display  displayState
	journal  []writeRec
}

// Recorder implements spec.md §4.7: a ring of per-frame snapshots that
// supports LIFO reverse playback (undoing a frame) and forward playback
// (redoing one previously reversed).
type Recorder struct {
	cpu     *CPU
	mem     *Memory
	io      *IO
	display *Display

	ring  [StatesLen]frameEntry
	head  int // index the NEXT finalized frame will be written to
	count int // number of valid entries currently in the ring
	back  int // how many entries have been reverse-played from the live edge (0 = at the live edge)

	pending    cpuState
	pendingIO  ioState
	pendingDsp displayState
	journal    []writeRec
}

// Attach wires the recorder to a running Hardware's subsystems, installing
// hooks on Memory's write path and Display's frame-end event. Only one
// recorder may be attached to a given set of subsystems at a time.
func (r *Recorder) Attach(cpu *CPU, mem *Memory, io *IO, display *Display) {
	r.cpu, r.mem, r.io, r.display = cpu, mem, io, display
	r.pending = cpu.snapshot()
	r.pendingIO = io.snapshot()
	r.pendingDsp = display.snapshot()
	mem.SetOnWrite(r.onWrite)
	display.SetOnFrameEnd(r.onFrameEnd)
}

// Detach removes the recorder's hooks, per the Design Notes guidance that
// debug-only resources are freed when not in use.
func (r *Recorder) Detach() {
	if r.mem != nil {
		r.mem.SetOnWrite(nil)
	}
	if r.display != nil {
		r.display.SetOnFrameEnd(nil)
	}
	*r = Recorder{}
}

func (r *Recorder) onWrite(ga GlobalAddr, value, pre uint8) {
	r.journal = append(r.journal, writeRec{Global: ga, Value: value, Pre: pre})
}

func (r *Recorder) onFrameEnd() {
	r.ring[r.head] = frameEntry{
		valid: true, cpu: r.pending, io: r.pendingIO, display: r.pendingDsp, journal: r.journal,
	}
	r.head = (r.head + 1) % StatesLen
	if r.count < StatesLen {
		r.count++
	}
	r.back = 0

	r.journal = nil
	r.pending = r.cpu.snapshot()
	r.pendingIO = r.io.snapshot()
	r.pendingDsp = r.display.snapshot()
}

// slotAt returns the ring index `stepsBack` entries behind the live edge
// (1 = the most recently finalized frame).
func (r *Recorder) slotAt(stepsBack int) int {
	idx := r.head - stepsBack
	for idx < 0 {
		idx += StatesLen
	}
	return idx % StatesLen
}

// ReverseFrame undoes the most recently finalized (and not yet reversed)
// frame: it restores the CPU/IO/display state captured at that frame's
// start, then replays the frame's write journal in reverse, writing every
// pre-image back to its GlobalAddr.
func (r *Recorder) ReverseFrame() error {
	if r.back >= r.count {
		return errors.New("recorder: no earlier frame to reverse into")
	}
	r.back++
	e := &r.ring[r.slotAt(r.back)]
	for i := len(e.journal) - 1; i >= 0; i-- {
		w := e.journal[i]
		r.mem.SetByteGlobal(w.Global, w.Pre)
	}
	r.cpu.restore(e.cpu)
	r.io.restore(e.io)
	r.display.restore(e.display)
	return nil
}

// ForwardFrame redoes one previously reversed frame: it replays the
// frame's write journal forward (writing each entry's post-image), then
// restores the CPU/IO/display state the frame produced — the snapshot
// recorded at the start of the NEXT entry, or the live values if there is
// nothing further to redo.
func (r *Recorder) ForwardFrame() error {
	if r.back <= 0 {
		return errors.New("recorder: no reversed frame to forward into")
	}
	e := &r.ring[r.slotAt(r.back)]
	for _, w := range e.journal {
		r.mem.SetByteGlobal(w.Global, w.Value)
	}
	r.back--
	if r.back == 0 {
		r.cpu.restore(r.pending)
		r.io.restore(r.pendingIO)
		r.display.restore(r.pendingDsp)
		return nil
	}
	next := &r.ring[r.slotAt(r.back)]
	r.cpu.restore(next.cpu)
	r.io.restore(next.io)
	r.display.restore(next.display)
	return nil
}

// ReverseFrames and ForwardFrames repeat the single-frame step n times.
func (r *Recorder) ReverseFrames(n int) error {
	for i := 0; i < n; i++ {
		if err := r.ReverseFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) ForwardFrames(n int) error {
	for i := 0; i < n; i++ {
		if err := r.ForwardFrame(); err != nil {
			return err
		}
	}
	return nil
}

// CanReverse and CanForward report whether the corresponding step is
// currently legal, for a UI to gray out the control.
func (r *Recorder) CanReverse() bool { return r.back < r.count }
func (r *Recorder) CanForward() bool { return r.back > 0 }

const (
	recorderMagic       = "DVectorRecorder"
	recorderVersion     = uint16(1)
	recorderHeaderSize  = len(recorderMagic) + 2 + 4 // magic + version + dataCRC
)

// encode appends the entry's binary form to buf: a valid flag, the three
// fixed-size state snapshots, then the variable-length write journal
// prefixed with its entry count.
func (e *frameEntry) encode(buf *bytes.Buffer) {
	buf.WriteByte(boolByte(e.valid))
	e.cpu.encode(buf)
	e.io.encode(buf)
	e.display.encode(buf)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(e.journal)))
	buf.Write(u32[:])
	for _, w := range e.journal {
		binary.LittleEndian.PutUint32(u32[:], uint32(w.Global))
		buf.Write(u32[:])
		buf.WriteByte(w.Value)
		buf.WriteByte(w.Pre)
	}
}

// decodeFrameEntry reads a frameEntry written by encode from the front of
// data, returning the remaining, unconsumed slice.
func decodeFrameEntry(data []byte) (frameEntry, []byte, error) {
	var e frameEntry
	if len(data) < 1 {
		return e, nil, errors.New("recorder: truncated entry")
	}
	e.valid = data[0] != 0
	data = data[1:]
	e.cpu, data = decodeCPUState(data)
	e.io, data = decodeIOState(data)
	e.display, data = decodeDisplayState(data)
	if len(data) < 4 {
		return e, nil, errors.New("recorder: truncated journal length")
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	data = data[4:]
	e.journal = make([]writeRec, n)
	for i := 0; i < n; i++ {
		if len(data) < 6 {
			return e, nil, errors.New("recorder: truncated journal entry")
		}
		e.journal[i] = writeRec{
			Global: GlobalAddr(binary.LittleEndian.Uint32(data[0:4])),
			Value:  data[4],
			Pre:    data[5],
		}
		data = data[6:]
	}
	return e, data, nil
}

// Export serializes the ring (hand-rolled binary encoding, then lz4-framed)
// behind a magic+version+CRC32 header, in the style of the teacher's
// save-state framing (emu/emulator.go Serialize/Deserialize/VerifyState).
func (r *Recorder) Export() ([]byte, error) {
	var raw bytes.Buffer
	for i := range r.ring {
		r.ring[i].encode(&raw)
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, recorderHeaderSize+compressed.Len())
	copy(out, recorderMagic)
	binary.LittleEndian.PutUint16(out[len(recorderMagic):], recorderVersion)
	copy(out[recorderHeaderSize:], compressed.Bytes())
	dataCRC := crc32.ChecksumIEEE(out[recorderHeaderSize:])
	binary.LittleEndian.PutUint32(out[len(recorderMagic)+2:], dataCRC)
	return out, nil
}

// Import restores the ring from data produced by Export, verifying the
// magic, version, and CRC32 before touching any state.
func (r *Recorder) Import(data []byte) error {
	if len(data) < recorderHeaderSize {
		return errors.New("recorder: export too short")
	}
	if string(data[:len(recorderMagic)]) != recorderMagic {
		return errors.New("recorder: invalid magic")
	}
	version := binary.LittleEndian.Uint16(data[len(recorderMagic):])
	if version > recorderVersion {
		return errors.New("recorder: unsupported export version")
	}
	wantCRC := binary.LittleEndian.Uint32(data[len(recorderMagic)+2:])
	gotCRC := crc32.ChecksumIEEE(data[recorderHeaderSize:])
	if wantCRC != gotCRC {
		return errors.New("recorder: export data is corrupted")
	}

	zr := lz4.NewReader(bytes.NewReader(data[recorderHeaderSize:]))
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(zr); err != nil {
		return err
	}

	rest := raw.Bytes()
	var decoded [StatesLen]frameEntry
	for i := range decoded {
		var err error
		decoded[i], rest, err = decodeFrameEntry(rest)
		if err != nil {
			return err
		}
	}

	r.ring = decoded
	r.count = StatesLen
	r.head = 0
	r.back = 0
	return nil
}
