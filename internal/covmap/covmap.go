// Package covmap implements C10: an ELF-section-indexed coverage map,
// used to cross-check CU-derived address ranges (DW_AT_low_pc/high_pc,
// .debug_aranges entries) against the sections the object actually
// allocates, the way elfutils' dwarflint walks its own section table
// alongside the DWARF one.
//
// Grounded on libpf/pfelf/file.go's ordered Sections slice: this package
// builds the same "which section owns this address" index, but keyed by
// load address instead of by file offset, and adds the straddle/overlap
// bookkeeping spec.md §4.8 asks for.
package covmap // import "github.com/dwarflint/dwarflint/internal/covmap"

import (
	"sort"
	"strings"

	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/coverage"
	"github.com/dwarflint/dwarflint/internal/diag"
)

// entry is one participating section: its address-space extent, its own
// coverage accumulator, and the flags FindHoles needs to decide whether a
// gap in it is worth reporting.
type entry struct {
	name     string
	addr     uint64
	size     uint64
	data     []byte
	alloc    bool
	exec     bool
	warnOnly bool // included for straddle detection but not SHF_ALLOC
	cov      *coverage.Set
}

// Map is the section-address-ordered coverage map of one object file.
// Required sections are those carrying SHF_ALLOC — the "real" program
// image dwarflint's address ranges are supposed to land in. Sections
// without SHF_ALLOC but with a non-zero address (rare — TLS template
// sections before relocation, mostly) are kept as warn-only entries: they
// still absorb straddle/overlap bookkeeping, but a range falling only in
// one of them is not itself an error, per the "normal (required_mask)
// vs. warn-only (warn_mask)" split in spec.md §4.8. container.Section
// only surfaces the two flags validation actually needs (Alloc, Exec),
// so the required/warn split here is reduced to just that axis instead of
// spec.md's arbitrary section-flag masks.
type Map struct {
	entries []entry
	arena   *diag.Arena
	report  func(diag.Message)
	align   uint64
}

// New builds a Map from every section sections exposes that has a non-zero
// load address, ordered by that address. align is the alignment unit a
// short per-section hole is tolerated as ordinary padding for.
func New(sections []container.Section, align uint64, arena *diag.Arena, report func(diag.Message)) *Map {
	entries := make([]entry, 0, len(sections))
	for _, s := range sections {
		if s.Addr == 0 {
			continue
		}
		entries = append(entries, entry{
			name:     s.Name,
			addr:     s.Addr,
			size:     s.Size,
			data:     s.Data,
			alloc:    s.Alloc,
			exec:     s.Exec,
			warnOnly: !s.Alloc,
			cov:      &coverage.Set{},
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].addr < entries[j].addr })
	return &Map{entries: entries, arena: arena, report: report, align: align}
}

// Add records [address, address+length) as covered by whatever it
// represents (a CU's low_pc/high_pc span, an aranges tuple, ...),
// reporting a straddle if the range crosses more than one section, a
// per-section overlap if allowOverlap is false and some sub-range was
// already recorded against that section, and a "covers no allocated
// section" warning for any sliver of the range outside every SHF_ALLOC
// entry.
func (m *Map) Add(address, length uint64, where diag.ID, cat diag.Category, allowOverlap bool) {
	if length == 0 {
		return
	}
	end := address + length

	var touched []*entry
	for i := range m.entries {
		e := &m.entries[i]
		if e.addr >= end || e.addr+e.size <= address {
			continue
		}
		touched = append(touched, e)
	}

	if len(touched) > 1 {
		names := make([]string, len(touched))
		for i, e := range touched {
			names[i] = e.name
		}
		m.report(diag.Newf(cat|diag.CatElf|diag.CatImpact2, where,
			"range [%#x,%#x) straddles %d sections (%s)", address, end, len(touched), strings.Join(names, ", ")))
	}

	var allocCov coverage.Set
	for _, e := range touched {
		segStart, segEnd := address, end
		if e.addr > segStart {
			segStart = e.addr
		}
		if e.addr+e.size < segEnd {
			segEnd = e.addr + e.size
		}
		if segEnd <= segStart {
			continue
		}
		relStart, relEnd := segStart-e.addr, segEnd-e.addr
		if !allowOverlap && e.cov.IsOverlap(relStart, relEnd-relStart) {
			m.report(diag.Newf(cat|diag.CatElf|diag.CatImpact2|diag.CatError, where,
				"range [%#x,%#x) overlaps coverage already recorded in section %q", segStart, segEnd, e.name))
		}
		e.cov.Add(relStart, relEnd-relStart)
		if e.alloc {
			allocCov.Add(segStart, segEnd-segStart)
		}
	}

	allocCov.FindHoles(address, end, func(start, holeEnd uint64) {
		m.report(diag.Newf(cat|diag.CatElf|diag.CatImpact2, where,
			"range [%#x,%#x) falls in no allocated section", start, holeEnd))
	})
}

// FindHoles reports every unexplained gap in each section's own recorded
// coverage, skipping a gap that is ordinary padding: the section is
// non-executable and not one of the usual code-adjacent sections
// (.init/.fini/.plt and friends), the gap bytes are all zero, or the gap
// is no longer than one alignment unit.
func (m *Map) FindHoles() {
	for i := range m.entries {
		e := &m.entries[i]
		where := m.arena.New(e.name, diag.FormatPlain)
		e.cov.FindHoles(0, e.size, func(start, end uint64) {
			if m.holeIsExempt(e, start, end) {
				return
			}
			m.report(diag.Newf(diag.CatElf|diag.CatImpact3, where,
				"unexplained gap [%#x,%#x) in section %q coverage", e.addr+start, e.addr+end, e.name))
		})
	}
}

func (m *Map) holeIsExempt(e *entry, start, end uint64) bool {
	if !e.exec && !isCodeAdjacent(e.name) {
		return true
	}
	if end <= uint64(len(e.data)) && allZero(e.data[start:end]) {
		return true
	}
	if m.align > 0 && end-start <= m.align {
		return true
	}
	return false
}

func isCodeAdjacent(name string) bool {
	switch name {
	case ".init", ".fini":
		return true
	}
	return strings.HasPrefix(name, ".plt")
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
