// Package dieinfo implements C7: the DIE chain walker, spec.md §4.3's
// largest single component. It parses every CU header in `.debug_info`,
// recursively walks each CU's DIE tree against the abbreviation chain
// loaded by internal/abbrev, decodes every attribute form, and builds the
// per-CU and cross-CU reference bookkeeping the Loc/Range and aranges/pub
// checkers (C8/C9) consume afterward.
//
// Grounded on the teacher's dwarf.go comment about reading DWARF sections
// as raw Section.Data() slices to avoid debug/elf's DWARF() cooked-reader
// memory bloat — dwarflint needs the same raw-slice access for a different
// reason: debug/dwarf's reader discards the byte offsets and malformed
// encodings a structural validator has to report.
package dieinfo // import "github.com/dwarflint/dwarflint/internal/dieinfo"

import (
	"debug/dwarf"
	"fmt"

	"github.com/dwarflint/dwarflint/internal/abbrev"
	"github.com/dwarflint/dwarflint/internal/addrset"
	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/coverage"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/locexpr"
	"github.com/dwarflint/dwarflint/internal/reader"
	"github.com/dwarflint/dwarflint/internal/reloc"
)

// CU is one compile unit's bookkeeping, alive for the duration of a single
// validation run and consumed by C8/C9 after the whole section is walked.
type CU struct {
	Offset      int
	CUDieOffset int
	Length      int
	Version     uint16
	AddressSize int
	Dwarf64     bool

	LowPC    uint64
	HasLowPC bool
	// HighPC and HasHighPC mirror LowPC: recorded only when the CU DIE
	// itself carries DW_AT_high_pc, for the aranges compare pass (C9),
	// which needs a concrete [low_pc,high_pc) anchor per CU rather than
	// just a base address.
	HighPC    uint64
	HasHighPC bool

	DieAddrs addrset.Set
	// DieRefs holds ref_addr-form references: absolute .debug_info
	// offsets that may resolve in any CU, not just this one.
	DieRefs addrset.RefList
	// LocalRefs holds ref1/ref2/ref4/ref8/ref_udata-form references,
	// already widened from CU-relative to absolute .debug_info offsets by
	// adding Offset. They are kept apart from DieRefs so that only
	// DieRefs goes through the global cross-CU pass.
	LocalRefs addrset.RefList
	LocRefs   addrset.RefList
	RangeRefs addrset.RefList
	LineRefs  addrset.RefList

	Where diag.ID

	HasArange, HasPubnames, HasPubtypes bool
	NeedRanges                          bool

	AbbrevTable *abbrev.Table

	Next *CU
}

// Walker bundles everything the DIE walk needs beyond the `.debug_info`
// cursor itself.
type Walker struct {
	Abbrevs    *abbrev.Chain
	StrData    []byte
	Src        container.Source
	InfoRelocs *reloc.Table
	Arena      *diag.Arena
	Report     func(diag.Message)

	// StrCov accumulates byte ranges of `.debug_str` referenced by
	// DW_FORM_strp, used by the validator's final pass (C10) to find
	// unreferenced string bloat.
	StrCov *coverage.Set
	// GlobalCov accumulates every CU DIE's [low_pc, high_pc) range across
	// the whole file, feeding the ELF-section coverage map (C10).
	GlobalCov *coverage.Set
}

type dieState struct {
	siblingDeclaredOffset int
	siblingSeen           bool

	hasLowPC, hasHighPC             bool
	lowPC, highPC                   uint64
	lowPCRelocated, highPCRelocated bool
	lowPCSection, highPCSection     string
}

// WalkAll walks every CU header in ctx and returns the CU list in file
// order — spec.md §4.3's closing in-place reversal, done here by linking
// Next after building the slice rather than literally reversing pointers
// one at a time.
func (w *Walker) WalkAll(ctx *reader.Context) (*CU, error) {
	var cus []*CU
	for !ctx.Eof() {
		if ctx.Remaining() < 4 {
			break
		}
		cu, err := w.walkOneCU(ctx)
		if err != nil {
			return nil, err
		}
		if cu == nil {
			break // zero padding at a CU boundary: nothing more to parse
		}
		cus = append(cus, cu)
	}

	w.resolveGlobalReferences(cus)

	var head *CU
	for i := len(cus) - 1; i >= 0; i-- {
		cus[i].Next = head
		head = cus[i]
	}
	return head, nil
}

func (w *Walker) walkOneCU(ctx *reader.Context) (*CU, error) {
	cuOffset := ctx.GetOffset()
	initial, err := ctx.FourUbyte()
	if err != nil {
		return nil, fmt.Errorf("cu header at %#x: %w", cuOffset, err)
	}

	var dwarf64 bool
	var length uint64
	switch {
	case initial == 0:
		return nil, nil
	case initial == 0xffffffff:
		dwarf64 = true
		length, err = ctx.EightUbyte()
		if err != nil {
			return nil, fmt.Errorf("cu header at %#x: %w", cuOffset, err)
		}
	case initial >= 0xfffffff0 && initial <= 0xfffffffe:
		return nil, fmt.Errorf("cu header at %#x: reserved initial-length value %#x", cuOffset, initial)
	default:
		length = uint64(initial)
	}
	cuEnd := ctx.GetOffset() + int(length)

	where := w.Arena.New(".debug_info", diag.FormatCUDie)
	where = w.Arena.WithCoord(where, "CU", uint64(cuOffset), true)

	version, err := ctx.TwoUbyte()
	if err != nil {
		return nil, fmt.Errorf("cu header at %#x: %w", cuOffset, err)
	}
	if version != 2 && version != 3 {
		w.Report(diag.Newf(diag.CatInfo|diag.CatHeader|diag.CatImpact2|diag.CatError, where, "CU version %d is neither 2 nor 3", version))
	}
	if version == 2 && dwarf64 {
		w.Report(diag.Newf(diag.CatInfo|diag.CatHeader|diag.CatImpact3, where, "DWARF version 2 CU uses the 64-bit initial-length escape"))
	}

	abbrevFieldOff := ctx.GetOffset()
	abbrevOff, err := ctx.Offset(dwarf64)
	if err != nil {
		return nil, fmt.Errorf("cu header at %#x: %w", cuOffset, err)
	}
	if w.InfoRelocs != nil {
		if rel, ok := w.InfoRelocs.Next(uint64(abbrevFieldOff), where, reloc.SkipMismatched, w.Report); ok {
			width := container.RelWidth32
			if dwarf64 {
				width = container.RelWidth64
			}
			if v, ok2 := reloc.RelocateOne(w.Src, rel, width, abbrevOff, where,
				reloc.Expect{Class: reloc.ExpectDebugSection, SectionName: ".debug_abbrev"}, w.Report); ok2 {
				abbrevOff = v
			}
		}
	}

	addrSizeByte, err := ctx.Ubyte()
	if err != nil {
		return nil, fmt.Errorf("cu header at %#x: %w", cuOffset, err)
	}
	if addrSizeByte != 4 && addrSizeByte != 8 {
		w.Report(diag.Newf(diag.CatInfo|diag.CatHeader|diag.CatImpact2|diag.CatError, where, "address size %d is neither 4 nor 8", addrSizeByte))
	}
	addressSize := int(addrSizeByte)
	if addressSize != 4 && addressSize != 8 {
		addressSize = 8
	}

	table, ok := w.Abbrevs.TableAt(int(abbrevOff))
	if !ok {
		w.Report(diag.Newf(diag.CatInfo|diag.CatAbbrevs|diag.CatImpact2|diag.CatError, where, "no abbreviation table at offset %#x", abbrevOff))
	}

	cu := &CU{
		Offset:      cuOffset,
		CUDieOffset: ctx.GetOffset(),
		Length:      int(length),
		Version:     version,
		AddressSize: addressSize,
		Dwarf64:     dwarf64,
		Where:       where,
		AbbrevTable: table,
	}

	if table != nil {
		if err := w.walkDIEChain(ctx, cu, cuEnd); err != nil {
			return cu, err
		}
		for _, e := range table.Entries() {
			if !e.Used {
				w.Report(diag.Newf(diag.CatAbbrevs|diag.CatBloat|diag.CatImpact4, cu.Where,
					"abbreviation code %d is never used in this compile unit", e.Code))
			}
		}
	}

	w.resolveLocalReferences(cu)

	if err := ctx.SetOffset(cuEnd); err != nil {
		return cu, fmt.Errorf("cu at %#x: length field overruns the section: %w", cuOffset, err)
	}
	return cu, nil
}

func (w *Walker) walkDIEChain(ctx *reader.Context, cu *CU, end int) error {
	first := ctx.GetOffset() == cu.CUDieOffset
	prevSiblingTarget := -1

	for ctx.GetOffset() < end {
		dieOffset := ctx.GetOffset()
		code, codeStatus, err := ctx.Uleb128()
		if err != nil {
			return fmt.Errorf("die at %#x: %w", dieOffset, err)
		}

		if code == 0 {
			if prevSiblingTarget >= 0 && prevSiblingTarget != ctx.GetOffset() {
				w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatImpact2|diag.CatError, cu.Where,
					"DW_AT_sibling claimed the next DIE would be at %#x, but the chain ends at %#x", prevSiblingTarget, ctx.GetOffset()))
			}
			return nil
		}

		if prevSiblingTarget >= 0 && prevSiblingTarget != dieOffset {
			w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatImpact2|diag.CatError, cu.Where,
				"DW_AT_sibling claimed the next DIE would be at %#x, but it is at %#x", prevSiblingTarget, dieOffset))
		}
		prevSiblingTarget = -1

		if codeStatus == reader.LEBBloated {
			w.Report(diag.Newf(diag.CatInfo|diag.CatLeb128|diag.CatBloat|diag.CatImpact3, cu.Where, "DIE abbreviation code is not minimally encoded"))
		}

		entry, ok := cu.AbbrevTable.Find(code)
		if !ok {
			return fmt.Errorf("die at %#x: no abbreviation for code %d", dieOffset, code)
		}
		entry.Used = true
		cu.DieAddrs.Add(uint64(dieOffset))

		isCUDie := first
		first = false

		st := &dieState{siblingDeclaredOffset: -1}
		for _, attr := range entry.Attribs {
			if err := w.walkAttribute(ctx, cu, isCUDie, attr, st); err != nil {
				return fmt.Errorf("die at %#x, attribute %v: %w", dieOffset, attr.Name, err)
			}
		}

		if st.hasLowPC && st.hasHighPC {
			if st.lowPCRelocated != st.highPCRelocated {
				w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatImpact2, cu.Where,
					"DW_AT_low_pc and DW_AT_high_pc disagree on whether they were relocated"))
			} else if st.lowPCRelocated && st.lowPCSection != st.highPCSection {
				w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatImpact2, cu.Where,
					"DW_AT_low_pc and DW_AT_high_pc target different sections (%q vs %q)", st.lowPCSection, st.highPCSection))
			}
		}

		if isCUDie && st.hasLowPC {
			cu.LowPC = st.lowPC
			cu.HasLowPC = true
			if st.hasHighPC && st.highPC > st.lowPC {
				cu.HighPC = st.highPC
				cu.HasHighPC = true
				w.GlobalCov.Add(st.lowPC, st.highPC-st.lowPC)
			}
		}

		if entry.HasChildren && !st.siblingSeen {
			w.Report(diag.Newf(diag.CatInfo|diag.CatDieOther|diag.CatSuboptimal|diag.CatImpact4, cu.Where,
				"DIE with children declares no DW_AT_sibling, which would let readers skip its subtree cheaply"))
		}

		if entry.HasChildren {
			peek := ctx.GetOffset()
			nextCode, _, err := ctx.Uleb128()
			if err != nil {
				return fmt.Errorf("die at %#x: %w", dieOffset, err)
			}
			if nextCode == 0 {
				w.Report(diag.Newf(diag.CatInfo|diag.CatDieOther|diag.CatSuboptimal|diag.CatImpact3, cu.Where,
					"abbreviation advertises children but this DIE's chain is empty"))
			} else {
				if err := ctx.SetOffset(peek); err != nil {
					return err
				}
				if err := w.walkDIEChain(ctx, cu, end); err != nil {
					return err
				}
			}
		}

		prevSiblingTarget = st.siblingDeclaredOffset
	}
	return nil
}

type pointerClass int

const (
	pointerClassNone pointerClass = iota
	pointerClassLoc
	pointerClassLine
	pointerClassRange
)

func classifyPointerAttr(name dwarf.Attr) pointerClass {
	switch name {
	case dwarf.AttrLocation, dwarf.AttrFrameBase, dwarf.AttrDataMemberLoc, dwarf.AttrDataLocation:
		return pointerClassLoc
	case dwarf.AttrStmtList:
		return pointerClassLine
	case dwarf.AttrRanges:
		return pointerClassRange
	default:
		return pointerClassNone
	}
}

func sectionForPointerClass(c pointerClass) string {
	switch c {
	case pointerClassLoc:
		return ".debug_loc"
	case pointerClassLine:
		return ".debug_line"
	case pointerClassRange:
		return ".debug_ranges"
	default:
		return ""
	}
}

func isLocationAttrName(name dwarf.Attr) bool {
	return classifyPointerAttr(name) == pointerClassLoc
}

func (w *Walker) walkAttribute(ctx *reader.Context, cu *CU, isCUDie bool, attr abbrev.Attribute, st *dieState) error {
	form := attr.Form
	for depth := 0; form == dwarf.FormIndirect; depth++ {
		if depth > 0 {
			w.Report(diag.Newf(diag.CatInfo|diag.CatDieOther|diag.CatImpact2|diag.CatError, cu.Where,
				"DW_FORM_indirect cannot itself decode to another DW_FORM_indirect"))
			return nil
		}
		fv, _, err := ctx.Uleb128()
		if err != nil {
			return err
		}
		form = dwarf.Form(fv)
		if attr.Name == dwarf.AttrSibling && !abbrev.IsReferenceForm(form) {
			w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatImpact2|diag.CatError, cu.Where,
				"DW_AT_sibling's indirect form %v is not a reference form", form))
		}
	}

	fieldOffset := ctx.GetOffset()

	switch form {
	case dwarf.FormAddr, dwarf.FormRefAddr:
		width := 4
		if cu.AddressSize == 8 {
			width = 8
		}
		raw, err := ctx.Var(width)
		if err != nil {
			return err
		}

		relocated := false
		var targetSection string
		if w.InfoRelocs != nil {
			if rel, ok := w.InfoRelocs.Next(uint64(fieldOffset), cu.Where, reloc.SkipMismatched, w.Report); ok {
				expect := reloc.Expect{Class: reloc.ExpectAddress}
				if form == dwarf.FormRefAddr {
					expect = reloc.Expect{Class: reloc.ExpectDebugSection, SectionName: ".debug_info"}
				}
				relWidth := container.RelWidth32
				if width == 8 {
					relWidth = container.RelWidth64
				}
				if v, ok2 := reloc.RelocateOne(w.Src, rel, relWidth, raw, cu.Where, expect, w.Report); ok2 {
					raw = v
					relocated = true
					if sym, ok3 := w.Src.Symbol(rel.Symndx); ok3 {
						targetSection = sym.SectionName
					}
				}
			} else if w.Src.IsRelocatable() && raw != 0 {
				w.Report(diag.Newf(diag.CatInfo|diag.CatReloc|diag.CatImpact2, cu.Where,
					"value %#x in a relocatable object has no relocation entry", raw))
			}
		}

		if form == dwarf.FormRefAddr {
			cu.DieRefs.Add(raw, cu.Where)
		}
		if attr.Name == dwarf.AttrSibling {
			st.siblingDeclaredOffset = int(raw)
			st.siblingSeen = true
		}
		if isCUDie && attr.Name == dwarf.AttrLowpc {
			st.lowPC, st.hasLowPC, st.lowPCRelocated, st.lowPCSection = raw, true, relocated, targetSection
		}
		if isCUDie && attr.Name == dwarf.AttrHighpc {
			st.highPC, st.hasHighPC, st.highPCRelocated, st.highPCSection = raw, true, relocated, targetSection
		}

	case dwarf.FormStrp:
		width := 4
		if cu.Dwarf64 {
			width = 8
		}
		off, err := ctx.Var(width)
		if err != nil {
			return err
		}
		resolved := off
		if w.InfoRelocs != nil {
			if rel, ok := w.InfoRelocs.Next(uint64(fieldOffset), cu.Where, reloc.SkipMismatched, w.Report); ok {
				relWidth := container.RelWidth32
				if width == 8 {
					relWidth = container.RelWidth64
				}
				if v, ok2 := reloc.RelocateOne(w.Src, rel, relWidth, off, cu.Where,
					reloc.Expect{Class: reloc.ExpectDebugSection, SectionName: ".debug_str"}, w.Report); ok2 {
					resolved = v
				}
			} else if w.Src.IsRelocatable() {
				w.Report(diag.Newf(diag.CatInfo|diag.CatReloc|diag.CatImpact2, cu.Where, "DW_FORM_strp offset has no relocation entry in a relocatable object"))
			}
		}
		if int(resolved) >= len(w.StrData) {
			w.Report(diag.Newf(diag.CatInfo|diag.CatStrings|diag.CatImpact2|diag.CatError, cu.Where,
				"DW_FORM_strp offset %#x is past the end of .debug_str", resolved))
		} else if w.StrCov != nil {
			end := int(resolved)
			for end < len(w.StrData) && w.StrData[end] != 0 {
				end++
			}
			w.StrCov.Add(resolved, uint64(end-int(resolved))+1)
		}

	case dwarf.FormString:
		if _, err := ctx.Str(); err != nil {
			return err
		}

	case dwarf.FormUdata:
		_, status, err := ctx.Uleb128()
		if err != nil {
			return err
		}
		if status == reader.LEBBloated {
			w.Report(diag.Newf(diag.CatInfo|diag.CatLeb128|diag.CatBloat|diag.CatImpact3, cu.Where, "%v operand is not minimally encoded", attr.Name))
		}

	case dwarf.FormRefUdata:
		v, status, err := ctx.Uleb128()
		if err != nil {
			return err
		}
		if status == reader.LEBBloated {
			w.Report(diag.Newf(diag.CatInfo|diag.CatLeb128|diag.CatBloat|diag.CatImpact3, cu.Where, "%v operand is not minimally encoded", attr.Name))
		}
		target := uint64(cu.Offset) + v
		cu.LocalRefs.Add(target, cu.Where)
		if attr.Name == dwarf.AttrSibling {
			st.siblingDeclaredOffset = int(target)
			st.siblingSeen = true
		}

	case dwarf.FormFlag:
		if _, err := ctx.Ubyte(); err != nil {
			return err
		}

	case dwarf.FormData1, dwarf.FormRef1:
		v, err := ctx.Ubyte()
		if err != nil {
			return err
		}
		if form == dwarf.FormRef1 {
			target := uint64(cu.Offset) + uint64(v)
			cu.LocalRefs.Add(target, cu.Where)
			if attr.Name == dwarf.AttrSibling {
				st.siblingDeclaredOffset = int(target)
				st.siblingSeen = true
			}
		}

	case dwarf.FormData2, dwarf.FormRef2:
		v, err := ctx.TwoUbyte()
		if err != nil {
			return err
		}
		if form == dwarf.FormRef2 {
			target := uint64(cu.Offset) + uint64(v)
			cu.LocalRefs.Add(target, cu.Where)
			if attr.Name == dwarf.AttrSibling {
				st.siblingDeclaredOffset = int(target)
				st.siblingSeen = true
			}
		}

	case dwarf.FormData4, dwarf.FormData8:
		width := 4
		if form == dwarf.FormData8 {
			width = 8
		}
		if form == dwarf.FormData8 && !cu.Dwarf64 {
			w.Report(diag.Newf(diag.CatInfo|diag.CatImpact2|diag.CatError, cu.Where, "DW_FORM_data8 used in a 32-bit DWARF compile unit"))
		}
		raw, err := ctx.Var(width)
		if err != nil {
			return err
		}

		if class := classifyPointerAttr(attr.Name); class != pointerClassNone {
			resolved := raw
			if w.InfoRelocs != nil {
				relWidth := container.RelWidth32
				if width == 8 {
					relWidth = container.RelWidth64
				}
				if rel, ok := w.InfoRelocs.Next(uint64(fieldOffset), cu.Where, reloc.SkipMismatched, w.Report); ok {
					if v, ok2 := reloc.RelocateOne(w.Src, rel, relWidth, raw, cu.Where,
						reloc.Expect{Class: reloc.ExpectDebugSection, SectionName: sectionForPointerClass(class)}, w.Report); ok2 {
						resolved = v
					}
				}
			}
			if class == pointerClassRange && resolved%uint64(cu.AddressSize) != 0 {
				w.Report(diag.Newf(diag.CatRanges|diag.CatImpact2, cu.Where, "range pointer %#x is not aligned to the CU's address size", resolved))
			}
			switch class {
			case pointerClassLoc:
				cu.LocRefs.Add(resolved, cu.Where)
			case pointerClassLine:
				cu.LineRefs.Add(resolved, cu.Where)
			case pointerClassRange:
				cu.RangeRefs.Add(resolved, cu.Where)
				cu.NeedRanges = true
			}
		}

	case dwarf.FormRef4, dwarf.FormRef8:
		width := 4
		if form == dwarf.FormRef8 {
			width = 8
		}
		v, err := ctx.Var(width)
		if err != nil {
			return err
		}
		target := uint64(cu.Offset) + v
		cu.LocalRefs.Add(target, cu.Where)
		if attr.Name == dwarf.AttrSibling {
			st.siblingDeclaredOffset = int(target)
			st.siblingSeen = true
		}

	case dwarf.FormSdata:
		_, status, err := ctx.Sleb128()
		if err != nil {
			return err
		}
		if status == reader.LEBBloated {
			w.Report(diag.Newf(diag.CatInfo|diag.CatLeb128|diag.CatBloat|diag.CatImpact3, cu.Where, "%v operand is not minimally encoded", attr.Name))
		}

	case dwarf.FormBlock, dwarf.FormBlock1, dwarf.FormBlock2, dwarf.FormBlock4:
		var length uint64
		switch form {
		case dwarf.FormBlock:
			v, status, err := ctx.Uleb128()
			if err != nil {
				return err
			}
			if status == reader.LEBBloated {
				w.Report(diag.Newf(diag.CatInfo|diag.CatLeb128|diag.CatBloat|diag.CatImpact3, cu.Where, "%v block length is not minimally encoded", attr.Name))
			}
			length = v
		case dwarf.FormBlock1:
			v, err := ctx.Ubyte()
			if err != nil {
				return err
			}
			length = uint64(v)
		case dwarf.FormBlock2:
			v, err := ctx.TwoUbyte()
			if err != nil {
				return err
			}
			length = uint64(v)
		case dwarf.FormBlock4:
			v, err := ctx.FourUbyte()
			if err != nil {
				return err
			}
			length = uint64(v)
		}
		blockStart := ctx.GetOffset()
		blockEnd := blockStart + int(length)
		sub, err := ctx.Sub(blockStart, blockEnd)
		if err != nil {
			return err
		}
		if isLocationAttrName(attr.Name) {
			locexpr.Validate(sub, cu.AddressSize, cu.Where, w.Report)
		}
		if err := ctx.SetOffset(blockEnd); err != nil {
			return err
		}

	default:
		w.Report(diag.Newf(diag.CatInfo|diag.CatDieOther|diag.CatImpact2|diag.CatError, cu.Where, "unsupported attribute form %#x", uint64(form)))
		return fmt.Errorf("unsupported form %#x", uint64(form))
	}

	return nil
}

// resolveLocalReferences checks every CU-local reference (ref1/ref2/ref4/
// ref8/ref_udata, already widened to absolute offsets) resolves to a DIE
// this same CU actually recorded.
func (w *Walker) resolveLocalReferences(cu *CU) {
	for _, ref := range cu.LocalRefs.Items() {
		if !cu.DieAddrs.Contains(ref.Addr) {
			w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatImpact2|diag.CatError, ref.Origin,
				"local reference to offset %#x does not resolve to any DIE in this compile unit", ref.Addr))
		}
	}
}

// resolveGlobalReferences checks every ref_addr-form reference across all
// CUs resolves to a DIE in some CU, and flags references that resolved
// within their own originating CU — those could have used a cheaper
// CU-local form instead.
func (w *Walker) resolveGlobalReferences(cus []*CU) {
	for _, cu := range cus {
		for _, ref := range cu.DieRefs.Items() {
			resolved := false
			for _, other := range cus {
				if other.DieAddrs.Contains(ref.Addr) {
					resolved = true
					if other == cu {
						w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatSuboptimal|diag.CatImpact4, ref.Origin,
							"global reference to %#x resolves within its own compile unit and could use a smaller local form", ref.Addr))
					}
					break
				}
			}
			if !resolved {
				w.Report(diag.Newf(diag.CatInfo|diag.CatDieRel|diag.CatImpact2|diag.CatError, ref.Origin,
					"reference to offset %#x does not resolve to any DIE", ref.Addr))
			}
		}
	}
}
