package debugger

import "github.com/parallelno/devector/core"

// labelStore holds user-attached names and comments keyed by address,
// interleaved above disassembly lines for the matching Code line (spec.md
// §4.6).
type labelStore struct {
	labels   map[core.Addr][]string
	consts   map[core.Addr][]string
	comments map[core.Addr]string
}

func newLabelStore() *labelStore {
	return &labelStore{
		labels:   make(map[core.Addr][]string),
		consts:   make(map[core.Addr][]string),
		comments: make(map[core.Addr]string),
	}
}

func (l *labelStore) AddLabel(addr core.Addr, name string) {
	l.labels[addr] = append(l.labels[addr], name)
}

func (l *labelStore) AddConst(addr core.Addr, name string) {
	l.consts[addr] = append(l.consts[addr], name)
}

func (l *labelStore) SetComment(addr core.Addr, text string) { l.comments[addr] = text }

func (l *labelStore) Labels(addr core.Addr) []string { return l.labels[addr] }
func (l *labelStore) Consts(addr core.Addr) []string { return l.consts[addr] }
func (l *labelStore) Comment(addr core.Addr) (string, bool) {
	s, ok := l.comments[addr]
	return s, ok
}

func (l *labelStore) RemoveLabel(addr core.Addr, name string) {
	l.labels[addr] = removeString(l.labels[addr], name)
}

func (l *labelStore) RemoveConst(addr core.Addr, name string) {
	l.consts[addr] = removeString(l.consts[addr], name)
}

func (l *labelStore) ClearComment(addr core.Addr) { delete(l.comments, addr) }

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
