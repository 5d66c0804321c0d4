// Package addrset implements C2: the sorted, deduplicated address set used
// to record DIE starting offsets within a CU, and the insertion-ordered
// reference list used to record forward-declared references resolved
// after a CU or section has been fully scanned.
package addrset // import "github.com/dwarflint/dwarflint/internal/addrset"

import (
	"sort"

	"github.com/dwarflint/dwarflint/internal/diag"
)

// Set is a sorted, deduplicated set of uint64 offsets (spec.md's "address
// record"). It is built incrementally while walking a CU's DIE chain and
// later binary-searched to resolve references.
type Set struct {
	sorted []uint64
}

// Add inserts addr if not already present, keeping Set sorted. It reports
// whether addr was newly added (false means it was a duplicate).
func (s *Set) Add(addr uint64) bool {
	i := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] >= addr })
	if i < len(s.sorted) && s.sorted[i] == addr {
		return false
	}
	s.sorted = append(s.sorted, 0)
	copy(s.sorted[i+1:], s.sorted[i:])
	s.sorted[i] = addr
	return true
}

// Contains reports whether addr is a member of the set.
func (s *Set) Contains(addr uint64) bool {
	i := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] >= addr })
	return i < len(s.sorted) && s.sorted[i] == addr
}

// Len returns the number of distinct offsets recorded.
func (s *Set) Len() int { return len(s.sorted) }

// All returns the offsets in ascending order. The returned slice aliases
// Set's storage and must not be mutated by the caller.
func (s *Set) All() []uint64 { return s.sorted }

// Reference is one entry of a Reference record: the referenced address,
// and a breadcrumb pinning where the reference itself was encountered
// (the "originator location" in spec.md's data model).
type Reference struct {
	Addr   uint64
	Origin diag.ID
}

// RefList is an insertion-ordered list of References, used for
// forward-declared references (DIE cross-refs, loc/range/line pointers)
// that are only resolved after a CU or whole section has been scanned.
type RefList struct {
	items []Reference
}

// Add appends a reference in encounter order.
func (r *RefList) Add(addr uint64, origin diag.ID) {
	r.items = append(r.items, Reference{Addr: addr, Origin: origin})
}

// Items returns the references in insertion order. The returned slice
// aliases RefList's storage and must not be mutated by the caller.
func (r *RefList) Items() []Reference { return r.items }

// Len returns the number of references recorded.
func (r *RefList) Len() int { return len(r.items) }

// SortedByOffset returns a copy of the references sorted by Addr, with
// exact-offset duplicates collapsed to their first occurrence — the
// pre-pass spec.md §4.5 requires before walking .debug_loc/.debug_ranges,
// so the relocation cursor for that section can stay monotonic.
func (r *RefList) SortedByOffset() []Reference {
	out := append([]Reference(nil), r.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	deduped := out[:0]
	var last uint64
	haveLast := false
	for _, ref := range out {
		if haveLast && ref.Addr == last {
			continue
		}
		deduped = append(deduped, ref)
		last = ref.Addr
		haveLast = true
	}
	return deduped
}
