package debugger

import (
	"bytes"
	"encoding/binary"

	"github.com/andybalholm/brotli"

	"github.com/parallelno/devector/core"
)

// TraceLogSize is the fixed ring size (spec.md §4.6 "ring of TRACE_LOG_SIZE
// entries").
const TraceLogSize = 100_000

// TraceEntry is one opcode fetch (spec.md §4.6): the global address it was
// fetched from, the opcode byte, and HL at the time of fetch (dataLow/
// dataHigh), mirroring the CPU's OnReadInstr hook signature.
type TraceEntry struct {
	GlobalAddr core.GlobalAddr
	Opcode     uint8
	DataLow    uint8
	DataHigh   uint8
}

// traceLog is a fixed-capacity ring, lazily allocated on Attach (spec.md
// §5's resource policy for debug-only ring buffers) and nil otherwise.
type traceLog struct {
	entries []TraceEntry
	head    int
	count   int
}

func newTraceLog() *traceLog {
	return &traceLog{entries: make([]TraceEntry, TraceLogSize)}
}

func (t *traceLog) append(e TraceEntry) {
	t.entries[t.head] = e
	t.head = (t.head + 1) % TraceLogSize
	if t.count < TraceLogSize {
		t.count++
	}
}

// Len reports how many entries are currently populated.
func (t *traceLog) Len() int { return t.count }

// At returns the entry `stepsBack` steps behind the most recent append (0 =
// most recent).
func (t *traceLog) At(stepsBack int) TraceEntry {
	idx := t.head - 1 - stepsBack
	for idx < 0 {
		idx += TraceLogSize
	}
	return t.entries[idx%TraceLogSize]
}

// Scan walks the log from most recent to oldest, calling match for each
// entry; it returns every entry for which match returns true, oldest-first
// among the matches, stopping once limit matches are found (limit <= 0 means
// unbounded). This supports filters like "only CALL opcodes" (spec.md §4.6).
func (t *traceLog) Scan(limit int, match func(TraceEntry) bool) []TraceEntry {
	var out []TraceEntry
	for i := 0; i < t.count; i++ {
		e := t.At(i)
		if match(e) {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Export serializes the populated portion of the ring, oldest-first, and
// compresses it with brotli — trace dumps are mostly repeated small byte
// patterns (instruction streams revisit the same addresses), which brotli's
// dictionary handles well for a one-shot export.
func (t *traceLog) Export() ([]byte, error) {
	var raw bytes.Buffer
	var buf [7]byte
	for i := t.count - 1; i >= 0; i-- {
		e := t.At(i)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(e.GlobalAddr))
		buf[4], buf[5], buf[6] = e.Opcode, e.DataLow, e.DataHigh
		raw.Write(buf[:])
	}

	var out bytes.Buffer
	w := brotli.NewWriter(&out)
	if _, err := w.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ImportTrace decompresses a trace dump produced by Export into a plain
// slice, oldest-first.
func ImportTrace(data []byte) ([]TraceEntry, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(r); err != nil {
		return nil, err
	}
	b := raw.Bytes()
	out := make([]TraceEntry, 0, len(b)/7)
	for len(b) >= 7 {
		out = append(out, TraceEntry{
			GlobalAddr: core.GlobalAddr(binary.LittleEndian.Uint32(b[0:4])),
			Opcode:     b[4],
			DataLow:    b[5],
			DataHigh:   b[6],
		})
		b = b[7:]
	}
	return out, nil
}
