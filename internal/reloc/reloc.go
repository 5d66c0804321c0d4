// Package reloc implements C5: a per-section relocation table with the
// monotone cursor the DIE and Loc/Range checkers advance in lock-step with
// their own section-offset-ordered parsing (spec.md §4.7), and the single
// relocated-value resolver (relocate_one) every primitive reader feeds
// through before trusting a value it read from a relocatable section.
//
// Grounded on file.go's insertTLSDescriptorsForSection: relocation entries
// are read once per section, resolved against the owning symbol table, and
// classified by the container before this package ever sees them — reloc
// itself only knows offsets, widths and the monotone-cursor discipline.
package reloc // import "github.com/dwarflint/dwarflint/internal/reloc"

import (
	"sort"

	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/diag"
)

// SkipMode controls what relocation_next reports about entries it has to
// skip past to reach the requested offset.
type SkipMode int

const (
	// SkipSilent advances past skipped entries without reporting anything
	// (used while probing an offset nothing requires a relocation at).
	SkipSilent SkipMode = iota
	// SkipMismatched reports each skipped entry as a relocation applying
	// to a byte range the checker never asked about — almost always a
	// sign the checker's own cursor has drifted out of step with the
	// section's actual layout.
	SkipMismatched
	// SkipUnreferenced reports each skipped entry as a relocation against
	// a byte range no DIE attribute or table entry referenced at all —
	// bloat, not a correctness defect.
	SkipUnreferenced
)

// Table is a per-section relocation list with a cursor that only ever
// advances. It must be driven with monotonically non-decreasing offsets;
// callers that need to re-visit an earlier offset should build a fresh
// Table rather than rewind this one.
type Table struct {
	entries []container.Relocation
	cursor  int
}

// NewTable builds a Table from a container's relocation entries for one
// section, sorting them by offset. The container is expected to already
// hand back entries in offset order; NewTable sorts anyway so a Table never
// depends on that contract holding.
func NewTable(entries []container.Relocation) *Table {
	sorted := append([]container.Relocation(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	return &Table{entries: sorted}
}

// Empty reports whether the section carries no relocations at all, the
// common case for a linked (non-ET_REL) object.
func (t *Table) Empty() bool { return len(t.entries) == 0 }

// Next advances the cursor past every entry strictly before offset,
// reporting each one according to mode, then returns the entry exactly at
// offset if there is one.
func (t *Table) Next(offset uint64, where diag.ID, mode SkipMode, report func(diag.Message)) (container.Relocation, bool) {
	for t.cursor < len(t.entries) && t.entries[t.cursor].Offset < offset {
		rel := t.entries[t.cursor]
		switch mode {
		case SkipMismatched:
			report(diag.Newf(diag.CatReloc|diag.CatImpact2,
				where, "relocation at offset %#x does not apply to any value read here", rel.Offset))
		case SkipUnreferenced:
			report(diag.Newf(diag.CatReloc|diag.CatImpact3|diag.CatBloat,
				where, "unreferenced data at offset %#x carries a relocation", rel.Offset))
		}
		t.cursor++
	}
	if t.cursor < len(t.entries) && t.entries[t.cursor].Offset == offset {
		return t.entries[t.cursor], true
	}
	return container.Relocation{}, false
}

// SkipRest drains every remaining entry, reporting each one as unreferenced
// — used once a checker has finished with a section and any relocation
// left in the table necessarily targets a byte range nothing visited.
func (t *Table) SkipRest(where diag.ID, report func(diag.Message)) {
	for t.cursor < len(t.entries) {
		rel := t.entries[t.cursor]
		report(diag.Newf(diag.CatReloc|diag.CatImpact3|diag.CatBloat,
			where, "unreferenced relocation remains at offset %#x", rel.Offset))
		t.cursor++
	}
}

// ExpectedClass is what kind of target a relocated value is expected to
// name, independent of which concrete debug section that turns out to be.
type ExpectedClass int

const (
	// ExpectDebugSection requires the symbol to resolve into a specific
	// named section (used for references between debug sections, e.g. a
	// DW_FORM_sec_offset attribute pointing into .debug_loc).
	ExpectDebugSection ExpectedClass = iota
	// ExpectAddress allows any section: it is handled identically to
	// ExpectValue, and kept distinct so callers document intent.
	ExpectAddress
	// ExpectExec requires the target section to carry SHF_EXECINSTR —
	// used for program-counter values such as DW_AT_low_pc.
	ExpectExec
	// ExpectValue places no constraint on the target section, only that
	// the relocation resolved to a real symbol.
	ExpectValue
)

// Expect describes what relocate_one should validate the resolved target
// against.
type Expect struct {
	Class       ExpectedClass
	SectionName string // meaningful only when Class == ExpectDebugSection
}

// RelocateOne validates a matched relocation entry against width and the
// expected target class, and — for ET_REL objects — computes the
// relocated value from the symbol's resolved address plus the addend.
// unrelocatedValue is the value a checker already decoded directly from
// the section bytes (used as-is when the object isn't relocatable, since
// a linked object's bytes already carry the final value).
//
// It returns the value to use and whether resolution succeeded; on
// failure the caller should fall back to unrelocatedValue and continue
// (a bad relocation is a reported defect, not a reason to abort the scan).
func RelocateOne(
	src container.Source,
	rel container.Relocation,
	width container.RelWidth,
	unrelocatedValue uint64,
	where diag.ID,
	expect Expect,
	report func(diag.Message),
) (uint64, bool) {
	if rel.Invalid {
		report(diag.Newf(diag.CatReloc|diag.CatImpact2, where, "relocation entry is malformed"))
		return unrelocatedValue, false
	}

	if got := src.ClassifyRelocation(rel.Type); got != width {
		report(diag.Newf(diag.CatReloc|diag.CatImpact2,
			where, "relocation type %d doesn't match the width of the value it patches", rel.Type))
		return unrelocatedValue, false
	}

	sym, ok := src.Symbol(rel.Symndx)
	if !ok {
		report(diag.Newf(diag.CatReloc|diag.CatImpact2, where, "relocation references an invalid symbol index"))
		return unrelocatedValue, false
	}
	if sym.Undef {
		report(diag.Newf(diag.CatReloc|diag.CatImpact2, where, "relocation symbol %q is undefined", sym.Name))
		return unrelocatedValue, false
	}
	if sym.Common {
		report(diag.Newf(diag.CatReloc|diag.CatImpact2, where, "relocation symbol %q is a tentative (common) definition", sym.Name))
		return unrelocatedValue, false
	}

	switch expect.Class {
	case ExpectDebugSection:
		if !sym.Abs && sym.SectionName != expect.SectionName {
			report(diag.Newf(diag.CatReloc|diag.CatImpact2,
				where, "relocation targets section %q, expected %q", sym.SectionName, expect.SectionName))
		}
	case ExpectExec:
		if sec, found := src.Section(sym.SectionName); found && !sec.Exec {
			report(diag.Newf(diag.CatReloc|diag.CatImpact3,
				where, "program-counter relocation targets non-executable section %q", sym.SectionName))
		}
	case ExpectAddress, ExpectValue:
		// No further section constraint.
	}

	if !src.IsRelocatable() {
		return unrelocatedValue, true
	}

	base := sym.Value
	if sym.IsSection {
		base = sym.SectionAddr
	}
	return uint64(int64(base) + rel.Addend), true
}
