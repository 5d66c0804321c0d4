// Package abbrev implements C6: the `.debug_abbrev` loader. It decodes the
// chain of abbreviation tables keyed by their starting offset and applies
// the per-attribute form constraints spec.md §4.2 requires before any DIE
// is walked against them.
//
// Grounded in the teacher's raw-slice DWARF parsing idiom (dwarf.go reads
// section bytes directly to avoid debug/elf's cooked DWARF() reader); this
// loader does the same over internal/reader rather than debug/dwarf's
// Reader, since dwarflint needs to report the exact byte offset and
// encoding defect behind a malformed abbreviation, which a cooked reader
// discards. debug/dwarf's Tag/Attr/Form constant types are reused verbatim
// for their numeric values — there is no reason to re-typo 150 DWARF
// constants that the standard library already names correctly.
package abbrev // import "github.com/dwarflint/dwarflint/internal/abbrev"

import (
	"debug/dwarf"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/reader"
)

// tagHiUser is DW_TAG_hi_user; debug/dwarf does not export it since it
// names a range boundary rather than a concrete tag.
const tagHiUser = dwarf.Tag(0xffff)

// Attribute is one (name, form) pair declared by an Entry.
type Attribute struct {
	Name  dwarf.Attr
	Form  dwarf.Form
	Where diag.ID
}

// Entry is one abbreviation declaration: a code, the DIE tag and
// children-flag it stands for, and the attributes a DIE using this code
// carries, in declaration order.
type Entry struct {
	Code        uint64
	Tag         dwarf.Tag
	HasChildren bool
	Attribs     []Attribute
	Where       diag.ID
	// Used is set by the DIE walker (C7) the first time a DIE references
	// this code; unused entries are reported as bloat at end-of-table.
	Used bool
}

// Table is one `.debug_abbrev` table, sorted by code for binary lookup.
type Table struct {
	Offset  int
	entries []*Entry
}

// Find looks up an abbreviation by its code.
func (t *Table) Find(code uint64) (*Entry, bool) {
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Code >= code })
	if i < len(t.entries) && t.entries[i].Code == code {
		return t.entries[i], true
	}
	return nil, false
}

// Entries returns every abbreviation in the table, in ascending code order.
func (t *Table) Entries() []*Entry { return t.entries }

// Chain is every abbreviation table found in one `.debug_abbrev` buffer,
// keyed by the byte offset the table starts at — the same offset a CU
// header's abbrev_offset field names.
type Chain struct {
	tables map[int]*Table
}

// TableAt looks up the table starting at offset.
func (c *Chain) TableAt(offset int) (*Table, bool) {
	t, ok := c.tables[offset]
	return t, ok
}

// Tables returns every loaded table, keyed by starting offset.
func (c *Chain) Tables() map[int]*Table { return c.tables }

// IsReferenceForm reports whether f belongs to DWARF's reference class,
// the form class DW_AT_sibling (and the DIE walker's CU-local/global
// reference bookkeeping) requires.
func IsReferenceForm(f dwarf.Form) bool { return isReferenceForm(f) }

// IsLocationForm reports whether f is valid for an attribute carrying a
// location expression (location, frame_base, data_member_location,
// data_location).
func IsLocationForm(f dwarf.Form) bool { return isLocationForm(f) }

// IsOffsetForm reports whether f is valid for a section-offset attribute
// such as DW_AT_ranges or DW_AT_stmt_list.
func IsOffsetForm(f dwarf.Form) bool { return isOffsetForm(f) }

// IsAddressForm reports whether f is valid for DW_AT_low_pc/DW_AT_high_pc.
func IsAddressForm(f dwarf.Form) bool { return isAddressForm(f) }

func isReferenceForm(f dwarf.Form) bool {
	switch f {
	case dwarf.FormRefAddr, dwarf.FormRef1, dwarf.FormRef2, dwarf.FormRef4,
		dwarf.FormRef8, dwarf.FormRefUdata, dwarf.FormIndirect:
		return true
	default:
		return false
	}
}

func isLocationForm(f dwarf.Form) bool {
	switch f {
	case dwarf.FormData4, dwarf.FormData8, dwarf.FormBlock, dwarf.FormBlock1,
		dwarf.FormBlock2, dwarf.FormBlock4, dwarf.FormIndirect:
		return true
	default:
		return false
	}
}

func isOffsetForm(f dwarf.Form) bool {
	switch f {
	case dwarf.FormData4, dwarf.FormData8, dwarf.FormIndirect:
		return true
	default:
		return false
	}
}

func isAddressForm(f dwarf.Form) bool {
	return f == dwarf.FormAddr || f == dwarf.FormRefAddr
}

// Load decodes every abbreviation table in ctx, reporting defects through
// report as it goes and returning a Chain of whatever tables it could
// still make sense of. A hard read failure (truncated ULEB128, data
// running past ctx's bound) stops the loader and is also returned as an
// error — the caller decides whether a partially-loaded chain is still
// useful to the DIE walker.
func Load(ctx *reader.Context, arena *diag.Arena, report func(diag.Message)) (*Chain, error) {
	chain := &Chain{tables: map[int]*Table{}}
	var errs error

	var table *Table
	var seen map[uint64]*Entry

	for !ctx.Eof() {
		entryOffset := ctx.GetOffset()
		code, codeStatus, err := ctx.Uleb128()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("abbrev: reading code at offset %#x: %w", entryOffset, err))
			break
		}

		if code == 0 {
			// Ends the table in progress, if any; a run of zero codes simply
			// pads the gap up to the next table's own offset.
			table = nil
			continue
		}

		if table == nil {
			table = &Table{Offset: entryOffset}
			seen = map[uint64]*Entry{}
			chain.tables[entryOffset] = table
		}

		entryWhere := arena.New(".debug_abbrev", diag.FormatPlain)
		entryWhere = arena.WithCoord(entryWhere, "offset", uint64(entryOffset), true)

		if codeStatus == reader.LEBBloated {
			report(diag.Newf(diag.CatAbbrevs|diag.CatLeb128|diag.CatBloat|diag.CatImpact3,
				entryWhere, "abbreviation code %d is not minimally encoded", code))
		}

		entry, perr := parseEntry(ctx, code, entryWhere, report)
		if perr != nil {
			errs = multierr.Append(errs, fmt.Errorf("abbrev: entry at offset %#x: %w", entryOffset, perr))
			break
		}

		if prev, dup := seen[code]; dup {
			report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError,
				entryWhere, "duplicate abbreviation code %d, first defined at %s", code, arena.Format(prev.Where, false)))
			continue
		}
		seen[code] = entry
		table.entries = append(table.entries, entry)
	}

	for _, t := range chain.tables {
		sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Code < t.entries[j].Code })
	}

	return chain, errs
}

func parseEntry(ctx *reader.Context, code uint64, where diag.ID, report func(diag.Message)) (*Entry, error) {
	tagVal, tagStatus, err := ctx.Uleb128()
	if err != nil {
		return nil, fmt.Errorf("reading tag: %w", err)
	}
	if tagStatus == reader.LEBBloated {
		report(diag.Newf(diag.CatAbbrevs|diag.CatLeb128|diag.CatBloat|diag.CatImpact3, where, "abbreviation tag is not minimally encoded"))
	}
	if tagVal > uint64(tagHiUser) {
		report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "tag %#x exceeds DW_TAG_hi_user", tagVal))
	}
	tag := dwarf.Tag(tagVal)

	hcByte, err := ctx.Ubyte()
	if err != nil {
		return nil, fmt.Errorf("reading has_children: %w", err)
	}
	if hcByte > 1 {
		report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "has_children byte %d is neither 0 nor 1", hcByte))
	}
	hasChildren := hcByte != 0

	var attribs []Attribute
	var siblingSeen, hasLowPC, hasHighPC, hasRanges bool

	for {
		nameVal, _, err := ctx.Uleb128()
		if err != nil {
			return nil, fmt.Errorf("reading attribute name: %w", err)
		}
		formVal, _, err := ctx.Uleb128()
		if err != nil {
			return nil, fmt.Errorf("reading attribute form: %w", err)
		}
		if nameVal == 0 && formVal == 0 {
			break
		}
		name := dwarf.Attr(nameVal)
		form := dwarf.Form(formVal)

		switch name {
		case dwarf.AttrSibling:
			if siblingSeen {
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "DW_AT_sibling appears more than once in one abbreviation"))
			}
			siblingSeen = true
			switch {
			case !isReferenceForm(form):
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "DW_AT_sibling form %v is not a reference form", form))
			case form == dwarf.FormRefAddr:
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2, where, "DW_AT_sibling uses DW_FORM_ref_addr, which is unusually expensive to relocate"))
			}
		case dwarf.AttrLocation, dwarf.AttrFrameBase, dwarf.AttrDataLocation, dwarf.AttrDataMemberLoc:
			if !isLocationForm(form) {
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "%v form %v cannot carry a location expression", name, form))
			}
		case dwarf.AttrStmtList:
			if !isOffsetForm(form) {
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "%v form %v must be data4, data8 or indirect", name, form))
			}
		case dwarf.AttrRanges:
			hasRanges = true
			if !isOffsetForm(form) {
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "%v form %v must be data4, data8 or indirect", name, form))
			}
		case dwarf.AttrLowpc:
			hasLowPC = true
			if !isAddressForm(form) {
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "DW_AT_low_pc form %v must be addr or ref_addr", form))
			}
		case dwarf.AttrHighpc:
			hasHighPC = true
			if !isAddressForm(form) {
				report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "DW_AT_high_pc form %v must be addr or ref_addr", form))
			}
		}

		attribs = append(attribs, Attribute{Name: name, Form: form, Where: where})
	}

	if hasHighPC && !hasLowPC {
		report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "DW_AT_high_pc present without DW_AT_low_pc"))
	}
	if hasLowPC && hasHighPC && hasRanges {
		report(diag.Newf(diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "DW_AT_low_pc, DW_AT_high_pc and DW_AT_ranges together is redundant and contradictory"))
	}
	if siblingSeen && !hasChildren {
		report(diag.Newf(diag.CatAbbrevs|diag.CatBloat|diag.CatImpact4, where, "DW_AT_sibling is useless on an abbreviation with no children"))
	}

	return &Entry{Code: code, Tag: tag, HasChildren: hasChildren, Attribs: attribs, Where: where}, nil
}
