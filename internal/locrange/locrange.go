// Package locrange implements C8: the Loc/Range checker, which walks
// either `.debug_loc` or `.debug_ranges` against the reference set every CU
// recorded while being parsed, cross-checking coverage as it goes.
//
// Grounded on the same raw-slice parsing idiom as internal/abbrev and
// internal/dieinfo; the base-address-selection and coverage bookkeeping
// below has no single teacher analogue, so it is built fresh over
// internal/reader/internal/coverage following the teacher's plain-struct,
// early-return error-handling style.
package locrange // import "github.com/dwarflint/dwarflint/internal/locrange"

import (
	"fmt"
	"sort"

	"github.com/dwarflint/dwarflint/internal/addrset"
	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/coverage"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/locexpr"
	"github.com/dwarflint/dwarflint/internal/reader"
	"github.com/dwarflint/dwarflint/internal/reloc"
)

// Kind selects which of the two sibling sections is being checked; the
// entry shape is identical except .debug_loc carries a location expression
// after each valid pair.
type Kind int

const (
	KindRanges Kind = iota
	KindLoc
)

// Checker walks one section (.debug_loc or .debug_ranges) against the
// reference lists every dieinfo.CU accumulated.
type Checker struct {
	Kind     Kind
	Src      container.Source
	Relocs   *reloc.Table
	Arena    *diag.Arena
	Report   func(diag.Message)
	Coverage *coverage.Set // byte coverage of the section itself

	// CUCoverage accumulates the ranges validated for KindRanges, keyed by
	// CU, feeding the aranges cross-check (C9, §4.6's "compare pass").
	// Left nil for KindLoc, which has no equivalent per-CU accumulation.
	CUCoverage map[*dieinfo.CU]*coverage.Set

	// SectionData is the raw bytes of the section being checked, used by
	// CheckHoles to tell an all-zero gap from one that needs reporting.
	SectionData []byte
	// Align is the alignment unit a short gap is allowed to be explained
	// away as producer padding for (typically the object's address size).
	Align int
}

// reference pairs one recorded offset with the CU that recorded it, so a
// validated entry can be attributed back to the CU's own coverage and
// low_pc fallback base.
type reference struct {
	offset uint64
	cu     *dieinfo.CU
}

// sectionName returns the debug section this checker validates, used for
// relocation-target-class checks.
func (k Kind) sectionName() string {
	if k == KindLoc {
		return ".debug_loc"
	}
	return ".debug_ranges"
}

func (k Kind) category() diag.Category {
	if k == KindLoc {
		return diag.CatLoc
	}
	return diag.CatRanges
}

// Check walks every reference recorded against cus (the reference field
// selected depends on k), reporting defects. It returns an error only when
// a list cannot be read; the per-CU coverage for KindRanges is accumulated
// in c.CUCoverage rather than returned.
func (c *Checker) Check(ctx *reader.Context, cus []*dieinfo.CU) error {
	refs := c.collectReferences(cus)

	seen := map[uint64]bool{}
	for _, ref := range refs {
		if seen[ref.offset] {
			continue
		}
		seen[ref.offset] = true

		if err := ctx.SetOffset(int(ref.offset)); err != nil {
			return fmt.Errorf("locrange: reference offset %#x outside section: %w", ref.offset, err)
		}
		if err := c.walkList(ctx, ref.cu); err != nil {
			return err
		}
	}

	return nil
}

func (c *Checker) collectReferences(cus []*dieinfo.CU) []reference {
	var out []reference
	for _, cu := range cus {
		var list *addrset.RefList
		if c.Kind == KindLoc {
			list = &cu.LocRefs
		} else {
			list = &cu.RangeRefs
		}
		for _, r := range list.SortedByOffset() {
			out = append(out, reference{offset: r.Addr, cu: cu})
		}
	}
	// Each CU's own references arrive sorted, but a later CU can still
	// record a smaller offset than an earlier one (e.g. the first CU
	// referencing only a high offset, a later CU referencing a low one),
	// so the per-CU concatenation above is not itself globally sorted.
	// A single stable sort over the whole vector keeps the relocation
	// cursor in walkList monotonic across the entire section, per the
	// single-sorted-vector pre-pass this checker implements.
	sort.SliceStable(out, func(i, j int) bool { return out[i].offset < out[j].offset })
	return out
}

// walkList validates one list of entries starting at ctx's current cursor,
// belonging to cu, until a terminating (0,0) pair or the section ends.
func (c *Checker) walkList(ctx *reader.Context, cu *dieinfo.CU) error {
	where := c.Arena.New(c.Kind.sectionName(), diag.FormatCUDie)
	where = c.Arena.WithCoord(where, "CU", uint64(cu.Offset), true)

	addrWidth := cu.AddressSize
	escape := ^uint64(0)
	if addrWidth == 4 {
		escape = uint64(^uint32(0))
	}

	base := cu.LowPC
	haveBase := cu.HasLowPC

	for {
		startOff := ctx.GetOffset()
		if c.Coverage.IsOverlap(uint64(startOff), 1) {
			c.Report(diag.Newf(c.Kind.category()|diag.CatImpact2|diag.CatError, where,
				"entry at offset %#x overlaps a list already validated", startOff))
		}

		beginRaw, beginRelocated, beginSection, err := c.readRelocatedAddr(ctx, where, addrWidth)
		if err != nil {
			return err
		}
		endRaw, endRelocated, endSection, err := c.readRelocatedAddr(ctx, where, addrWidth)
		if err != nil {
			return err
		}

		if beginRaw == escape {
			if base == endRaw && haveBase {
				c.Report(diag.Newf(c.Kind.category()|diag.CatBloat|diag.CatImpact3, where,
					"base-address selection repeats the already-active base %#x", base))
			}
			base = endRaw
			haveBase = true
			c.Coverage.Add(uint64(startOff), uint64(2*addrWidth))
			continue
		}

		if beginRaw == 0 && endRaw == 0 && !beginRelocated && !endRelocated {
			c.Coverage.Add(uint64(startOff), uint64(2*addrWidth))
			return nil
		}

		if endRaw < beginRaw {
			c.Report(diag.Newf(c.Kind.category()|diag.CatImpact2|diag.CatError, where,
				"entry end address %#x precedes begin address %#x", endRaw, beginRaw))
		}
		if endRaw == beginRaw {
			c.Report(diag.Newf(c.Kind.category()|diag.CatBloat|diag.CatImpact3, where, "empty range [%#x,%#x)", beginRaw, endRaw))
		}
		if !haveBase {
			c.Report(diag.Newf(c.Kind.category()|diag.CatImpact2|diag.CatError, where,
				"no base address in effect (neither a base-address selection nor the compile unit's low_pc)"))
		}

		switch {
		case beginRelocated != endRelocated:
			c.Report(diag.Newf(diag.CatReloc|diag.CatImpact2, where,
				"one of the entry's two addresses was relocated and the other was not"))
		case beginRelocated && endRelocated && beginSection != endSection:
			c.Report(diag.Newf(diag.CatReloc|diag.CatImpact2, where,
				"entry's begin and end addresses resolve to different sections (%q vs %q)", beginSection, endSection))
		}

		entryEnd := uint64(startOff) + uint64(2*addrWidth)

		if c.Kind == KindRanges {
			if haveBase && endRaw >= beginRaw {
				if cov := c.CUCoverage[cu]; cov != nil {
					cov.Add(base+beginRaw, endRaw-beginRaw)
				}
			}
			c.Coverage.Add(uint64(startOff), entryEnd-uint64(startOff))
			continue
		}

		lenOff := ctx.GetOffset()
		exprLen, err := ctx.TwoUbyte()
		if err != nil {
			return fmt.Errorf("locrange: reading location expression length at %#x: %w", lenOff, err)
		}
		exprStart := ctx.GetOffset()
		exprEnd := exprStart + int(exprLen)
		sub, err := ctx.Sub(exprStart, exprEnd)
		if err != nil {
			return fmt.Errorf("locrange: location expression at %#x runs past the section: %w", exprStart, err)
		}
		locexpr.Validate(sub, addrWidth, where, c.Report)
		if err := ctx.SetOffset(exprEnd); err != nil {
			return err
		}

		total := uint64(exprEnd) - uint64(startOff)
		if c.Coverage.IsOverlap(uint64(startOff), total) {
			c.Report(diag.Newf(c.Kind.category()|diag.CatImpact2|diag.CatError, where,
				"location list entry at offset %#x overlaps another validated range", startOff))
		}
		c.Coverage.Add(uint64(startOff), total)
	}
}

// CheckHoles reports gaps in the section's validated coverage once every
// reference has been walked. A gap is accepted silently if it is entirely
// NUL bytes, or if it is short enough and positioned right to be ordinary
// alignment padding (shorter than align, the byte right after it falls on
// an align boundary, and the gap itself does not start 4-byte aligned —
// a real omitted entry would).
func (c *Checker) CheckHoles(sectionLen int) {
	where := c.Arena.New(c.Kind.sectionName(), diag.FormatPlain)
	align := uint64(c.Align)

	c.Coverage.FindHoles(0, uint64(sectionLen), func(start, end uint64) {
		if c.isAllZero(start, end) {
			return
		}
		gapLen := end - start
		if align > 0 && gapLen < align && end%align == 0 && start%4 != 0 {
			return
		}
		c.Report(diag.Newf(c.Kind.category()|diag.CatImpact3, where,
			"unexplained gap [%#x,%#x) in %s coverage", start, end, c.Kind.sectionName()))
	})
}

func (c *Checker) isAllZero(start, end uint64) bool {
	if end > uint64(len(c.SectionData)) {
		return false
	}
	for _, b := range c.SectionData[start:end] {
		if b != 0 {
			return false
		}
	}
	return true
}

func (c *Checker) readRelocatedAddr(ctx *reader.Context, where diag.ID, addrWidth int) (value uint64, relocated bool, sectionName string, err error) {
	fieldOff := ctx.GetOffset()
	raw, err := ctx.Var(addrWidth)
	if err != nil {
		return 0, false, "", err
	}
	if c.Relocs == nil {
		return raw, false, "", nil
	}
	relWidth := container.RelWidth32
	if addrWidth == 8 {
		relWidth = container.RelWidth64
	}
	rel, ok := c.Relocs.Next(uint64(fieldOff), where, reloc.SkipMismatched, c.Report)
	if !ok {
		return raw, false, "", nil
	}
	v, ok2 := reloc.RelocateOne(c.Src, rel, relWidth, raw, where, reloc.Expect{Class: reloc.ExpectAddress}, c.Report)
	if !ok2 {
		return v, false, "", nil
	}
	if sym, symOK := c.Src.Symbol(rel.Symndx); symOK {
		sectionName = sym.SectionName
	}
	return v, true, sectionName, nil
}
