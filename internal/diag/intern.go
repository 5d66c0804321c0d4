package diag

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// internKey canonically encodes a breadcrumb's identity (section, format,
// coordinates — Ref/Next are deliberately excluded, since those vary per
// call site even for an otherwise identical coordinate) for deduplication.
func internKey(section string, format Format, coords []Coord) []byte {
	buf := make([]byte, 0, len(section)+1+len(coords)*9)
	buf = append(buf, section...)
	buf = append(buf, byte(format))
	for _, c := range coords {
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], c.Value)
		buf = append(buf, v[:]...)
	}
	return buf
}

// Interned allocates a Where the same way New+WithCoord would, but returns
// an existing ID if an identical (section, format, coords) breadcrumb was
// already allocated in this Arena. Many thousands of findings in a large
// binary share exactly the same CU/DIE coordinate, so interning keeps the
// arena from growing quadratically with the number of diagnostics per DIE.
func (a *Arena) Interned(section string, format Format, coords []Coord) ID {
	if a.index == nil {
		a.index = make(map[uint64][]ID)
	}
	key := internKey(section, format, coords)
	h := xxh3.Hash(key)
	for _, id := range a.index[h] {
		n := a.node(id)
		if n.section == section && n.format == format && coordsEqual(n.coords, coords) {
			return id
		}
	}
	id := a.New(section, format)
	n := a.node(id)
	n.coords = append([]Coord(nil), coords...)
	a.index[h] = append(a.index[h], id)
	return id
}

func coordsEqual(a, b []Coord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
