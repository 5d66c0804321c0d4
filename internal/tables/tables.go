// Package tables implements C9: the aranges, pubnames/pubtypes and line
// table checkers. All three share the same outer shape — a sequence of
// length-prefixed sets, each carrying a relocated reference back into
// `.debug_info` — so readSetHeader is shared between them; the line
// program's opcode dispatch loop is the one piece with no cross-checker
// analogue.
//
// Grounded on the same raw-slice parsing idiom as internal/abbrev and
// internal/dieinfo, and on original_source's handling of the same three
// tables (elfutils' dwarflint checks aranges/pubnames/pubtypes/line the
// same way: outer length+version+cu_offset, then a table-specific body).
package tables // import "github.com/dwarflint/dwarflint/internal/tables"

import (
	"fmt"

	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/coverage"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/reader"
	"github.com/dwarflint/dwarflint/internal/reloc"
)

// cuIndex resolves a .debug_info offset back to the CU that owns it; every
// checker in this package builds one from the CU chain it is handed.
type cuIndex map[int]*dieinfo.CU

func buildCUIndex(cus []*dieinfo.CU) cuIndex {
	idx := make(cuIndex, len(cus))
	for _, cu := range cus {
		idx[cu.Offset] = cu
	}
	return idx
}

// setHeader is the outer shape every set in aranges/pubnames/pubtypes
// shares: a length prefix, a version, and a CU back-reference.
type setHeader struct {
	setStart int
	setEnd   int
	dwarf64  bool
	version  uint16
	cuOffset uint64
	cu       *dieinfo.CU
}

// readInitialLength reads the 4-or-12-byte DWARF initial-length field,
// returning ok=false at a zero-length field (end-of-section padding).
func readInitialLength(ctx *reader.Context) (length uint64, dwarf64, ok bool, err error) {
	initial, err := ctx.FourUbyte()
	if err != nil {
		return 0, false, false, err
	}
	if initial == 0 {
		return 0, false, false, nil
	}
	if initial == 0xffffffff {
		length, err = ctx.EightUbyte()
		return length, true, true, err
	}
	return uint64(initial), false, true, nil
}

// readSetHeader reads the length/version/cu_offset prefix common to
// aranges/pubnames/pubtypes sets, relocating cu_offset against
// `.debug_info` and resolving it through idx. section names the owning
// section, used both for the relocation's expected target and for
// diagnostic breadcrumbs.
func readSetHeader(ctx *reader.Context, arena *diag.Arena, infoRelocs *reloc.Table, src container.Source,
	report func(diag.Message), section string, cat diag.Category, idx cuIndex, wantVersion func(v uint16) bool) (*setHeader, bool, error) {

	setStart := ctx.GetOffset()
	length, dwarf64, ok, err := readInitialLength(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%s set at %#x: %w", section, setStart, err)
	}
	if !ok {
		return nil, false, nil // end-of-section padding
	}
	setEnd := ctx.GetOffset() + int(length)

	where := arena.New(section, diag.FormatCUDie)
	where = arena.WithCoord(where, "offset", uint64(setStart), true)

	version, err := ctx.TwoUbyte()
	if err != nil {
		return nil, false, fmt.Errorf("%s set at %#x: %w", section, setStart, err)
	}
	if !wantVersion(version) {
		report(diag.Newf(cat|diag.CatHeader|diag.CatImpact2|diag.CatError, where, "%s set version %d is not supported", section, version))
	}

	cuFieldOff := ctx.GetOffset()
	cuOffset, err := ctx.Offset(dwarf64)
	if err != nil {
		return nil, false, fmt.Errorf("%s set at %#x: %w", section, setStart, err)
	}
	if infoRelocs != nil {
		if rel, ok := infoRelocs.Next(uint64(cuFieldOff), where, reloc.SkipMismatched, report); ok {
			width := container.RelWidth32
			if dwarf64 {
				width = container.RelWidth64
			}
			if v, ok2 := reloc.RelocateOne(src, rel, width, cuOffset, where,
				reloc.Expect{Class: reloc.ExpectDebugSection, SectionName: ".debug_info"}, report); ok2 {
				cuOffset = v
			}
		}
	}

	cu := idx[int(cuOffset)]
	if cu == nil {
		report(diag.Newf(cat|diag.CatDieRel|diag.CatImpact2|diag.CatError, where,
			"cu_offset %#x does not name any compile unit", cuOffset))
	}

	return &setHeader{setStart: setStart, setEnd: setEnd, dwarf64: dwarf64, version: version, cuOffset: cuOffset, cu: cu}, true, nil
}

// ArangesChecker validates `.debug_aranges`.
type ArangesChecker struct {
	Src        container.Source
	InfoRelocs *reloc.Table
	Arena      *diag.Arena
	Report     func(diag.Message)

	// Coverage accumulates every tuple across all sets, for the
	// cross-set overlap check.
	Coverage *coverage.Set
	// CUCoverage, keyed by CU, feeds the compare pass against each CU's
	// own [low_pc,high_pc) range.
	CUCoverage map[*dieinfo.CU]*coverage.Set

	// Tolerant suppresses the cross-set overlap warning below, per
	// --gnu/--tolerant's documented extra leniency toward nonmonotonic
	// aranges coverage.
	Tolerant bool
}

func (c *ArangesChecker) Check(ctx *reader.Context, cus []*dieinfo.CU) error {
	idx := buildCUIndex(cus)
	if c.CUCoverage == nil {
		c.CUCoverage = make(map[*dieinfo.CU]*coverage.Set, len(cus))
	}

	for !ctx.Eof() && ctx.Remaining() >= 4 {
		hdr, ok, err := readSetHeader(ctx, c.Arena, c.InfoRelocs, c.Src, c.Report, ".debug_aranges", diag.CatAranges, idx,
			func(v uint16) bool { return v == 2 })
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		where := c.Arena.New(".debug_aranges", diag.FormatCUDie)
		where = c.Arena.WithCoord(where, "offset", uint64(hdr.setStart), true)

		addrSizeByte, err := ctx.Ubyte()
		if err != nil {
			return fmt.Errorf("aranges set at %#x: %w", hdr.setStart, err)
		}
		segSizeByte, err := ctx.Ubyte()
		if err != nil {
			return fmt.Errorf("aranges set at %#x: %w", hdr.setStart, err)
		}
		if segSizeByte != 0 {
			c.Report(diag.Newf(diag.CatAranges|diag.CatHeader|diag.CatImpact3, where, "non-zero segment_size %d is not supported", segSizeByte))
		}
		addrSize := int(addrSizeByte)
		if addrSize != 4 && addrSize != 8 {
			c.Report(diag.Newf(diag.CatAranges|diag.CatHeader|diag.CatImpact2|diag.CatError, where, "address size %d is neither 4 nor 8", addrSize))
			addrSize = 8
		}

		align := 2 * addrSize
		headerEnd := ctx.GetOffset()
		if pad := (align - (headerEnd % align)) % align; pad > 0 {
			padBytes := make([]byte, 0, pad)
			for i := 0; i < pad; i++ {
				b, err := ctx.Ubyte()
				if err != nil {
					return fmt.Errorf("aranges set at %#x: %w", hdr.setStart, err)
				}
				padBytes = append(padBytes, b)
			}
			for _, b := range padBytes {
				if b != 0 {
					c.Report(diag.Newf(diag.CatAranges|diag.CatImpact3, where, "non-zero padding before the first tuple"))
					break
				}
			}
		}

		var cuCov *coverage.Set
		if hdr.cu != nil {
			cuCov = c.CUCoverage[hdr.cu]
			if cuCov == nil {
				cuCov = &coverage.Set{}
				c.CUCoverage[hdr.cu] = cuCov
			}
		}

		for {
			address, err := ctx.Var(addrSize)
			if err != nil {
				return fmt.Errorf("aranges tuple at %#x: %w", ctx.GetOffset(), err)
			}
			length, err := ctx.Var(addrSize)
			if err != nil {
				return fmt.Errorf("aranges tuple at %#x: %w", ctx.GetOffset(), err)
			}
			if address == 0 && length == 0 {
				break
			}
			if length == 0 {
				c.Report(diag.Newf(diag.CatAranges|diag.CatImpact2|diag.CatError, where, "tuple (%#x,0) has zero length but is not the terminator", address))
				continue
			}
			if !c.Tolerant && c.Coverage.IsOverlap(address, length) {
				c.Report(diag.Newf(diag.CatAranges|diag.CatImpact2, where, "range [%#x,%#x) overlaps a range from another set", address, address+length))
			}
			c.Coverage.Add(address, length)
			if cuCov != nil {
				cuCov.Add(address, length)
			}
		}

		if afterTerm := ctx.GetOffset(); afterTerm < hdr.setEnd {
			tail := make([]byte, 0, hdr.setEnd-afterTerm)
			for i := afterTerm; i < hdr.setEnd; i++ {
				b, err := ctx.Ubyte()
				if err != nil {
					return fmt.Errorf("aranges set at %#x: %w", hdr.setStart, err)
				}
				tail = append(tail, b)
			}
			if isAllZero(tail) {
				c.Report(diag.Newf(diag.CatAranges|diag.CatBloat|diag.CatImpact3, where,
					"[%#x,%#x): unnecessary padding with zero bytes", afterTerm, hdr.setEnd))
			} else {
				c.Report(diag.Newf(diag.CatAranges|diag.CatBloat|diag.CatImpact3, where,
					"[%#x,%#x): unreferenced non-zero bytes after the set terminator", afterTerm, hdr.setEnd))
			}
		}

		if err := ctx.SetOffset(hdr.setEnd); err != nil {
			return err
		}
	}

	return nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// ComparePass subtracts each CU's validated aranges coverage from its
// [low_pc,high_pc) range and reports whichever gaps remain, once every
// set has been walked. A CU with no aranges entries at all is skipped —
// not every CU is required to be covered by `.debug_aranges`.
func (c *ArangesChecker) ComparePass(cus []*dieinfo.CU) {
	for _, cu := range cus {
		cuCov := c.CUCoverage[cu]
		if cuCov == nil || !cu.HasLowPC || !cu.HasHighPC || cu.HighPC <= cu.LowPC {
			continue
		}
		where := c.Arena.New(".debug_aranges", diag.FormatCUDie)
		where = c.Arena.WithCoord(where, "CU", uint64(cu.Offset), true)

		full := &coverage.Set{}
		full.Add(cu.LowPC, cu.HighPC-cu.LowPC)
		full.RemoveAll(cuCov)
		full.FindRanges(func(start, end uint64) {
			c.Report(diag.Newf(diag.CatAranges|diag.CatImpact3, where,
				"range [%#x,%#x) of the compile unit's address range is not covered by .debug_aranges", start, end))
		})
	}
}

// PubKind selects which of the two structurally-identical sibling
// sections a PubChecker validates.
type PubKind int

const (
	PubNames PubKind = iota
	PubTypes
)

func (k PubKind) sectionName() string {
	if k == PubTypes {
		return ".debug_pubtypes"
	}
	return ".debug_pubnames"
}

func (k PubKind) category() diag.Category {
	if k == PubTypes {
		return diag.CatPubtypes
	}
	return diag.CatPubnames
}

// PubChecker validates `.debug_pubnames`/`.debug_pubtypes`.
type PubChecker struct {
	Kind       PubKind
	Src        container.Source
	InfoRelocs *reloc.Table
	Arena      *diag.Arena
	Report     func(diag.Message)
}

func (c *PubChecker) Check(ctx *reader.Context, cus []*dieinfo.CU) error {
	idx := buildCUIndex(cus)

	for !ctx.Eof() && ctx.Remaining() >= 4 {
		hdr, ok, err := readSetHeader(ctx, c.Arena, c.InfoRelocs, c.Src, c.Report, c.Kind.sectionName(), c.Kind.category(), idx,
			func(v uint16) bool { return v == 2 })
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		where := c.Arena.New(c.Kind.sectionName(), diag.FormatCUDie)
		where = c.Arena.WithCoord(where, "offset", uint64(hdr.setStart), true)

		cuLengthOff := ctx.GetOffset()
		cuLength, err := ctx.Offset(hdr.dwarf64)
		if err != nil {
			return fmt.Errorf("%s set at %#x: %w", c.Kind.sectionName(), hdr.setStart, err)
		}
		if hdr.cu != nil && uint64(hdr.cu.Length) != cuLength {
			c.Report(diag.Newf(c.Kind.category()|diag.CatHeader|diag.CatImpact2|diag.CatError, where,
				"cu_length %#x at %#x does not match the referenced CU's own length %#x", cuLength, cuLengthOff, hdr.cu.Length))
		}

		for {
			dieOffRaw, err := ctx.Offset(hdr.dwarf64)
			if err != nil {
				return fmt.Errorf("%s record at %#x: %w", c.Kind.sectionName(), ctx.GetOffset(), err)
			}
			if dieOffRaw == 0 {
				break
			}
			name, err := ctx.Str()
			if err != nil {
				return fmt.Errorf("%s record at %#x: %w", c.Kind.sectionName(), ctx.GetOffset(), err)
			}
			if hdr.cu != nil {
				target := uint64(hdr.cu.Offset) + dieOffRaw
				if !hdr.cu.DieAddrs.Contains(target) {
					c.Report(diag.Newf(c.Kind.category()|diag.CatDieRel|diag.CatImpact2|diag.CatError, where,
						"record %q at offset %#x does not name any DIE in its compile unit", name, dieOffRaw))
				}
			}
		}

		if err := ctx.SetOffset(hdr.setEnd); err != nil {
			return err
		}
	}

	return nil
}

// stdOpcode enumerates the DWARF2/3 standard line-number opcodes this
// checker understands by name; any opcode at or above the table's own
// opcode_base is special, and any standard opcode the producer declares
// with a different operand count than DWARF defines is still walked
// generically via std_opc_lengths.
const (
	lnsCopy             = 1
	lnsAdvancePC        = 2
	lnsAdvanceLine      = 3
	lnsSetFile          = 4
	lnsSetColumn        = 5
	lnsNegateStmt       = 6
	lnsSetBasicBlock    = 7
	lnsConstAddPC       = 8
	lnsFixedAdvancePC   = 9
	lnsSetPrologueEnd   = 10
	lnsSetEpilogueBegin = 11
	lnsSetISA           = 12
)

const (
	lneEndSequence = 1
	lneSetAddress  = 2
	lneDefineFile  = 3
)

// LineChecker validates `.debug_line`.
type LineChecker struct {
	Src        container.Source
	LineRelocs *reloc.Table
	Arena      *diag.Arena
	Report     func(diag.Message)
}

func (c *LineChecker) Check(ctx *reader.Context, cus []*dieinfo.CU) error {
	starts := map[uint64]bool{}

	for !ctx.Eof() && ctx.Remaining() >= 4 {
		setStart := ctx.GetOffset()
		starts[uint64(setStart)] = true

		length, dwarf64, ok, err := readInitialLength(ctx)
		if err != nil {
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}
		if !ok {
			break
		}
		setEnd := ctx.GetOffset() + int(length)

		where := c.Arena.New(".debug_line", diag.FormatCUDie)
		where = c.Arena.WithCoord(where, "offset", uint64(setStart), true)

		version, err := ctx.TwoUbyte()
		if err != nil {
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}
		if version != 2 && version != 3 {
			c.Report(diag.Newf(diag.CatLine|diag.CatHeader|diag.CatImpact2|diag.CatError, where, "line program version %d is neither 2 nor 3", version))
		}

		headerLengthOff := ctx.GetOffset()
		headerLength, err := ctx.Offset(dwarf64)
		if err != nil {
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}
		programStart := headerLengthOff + offsetWidth(dwarf64) + int(headerLength)

		// min_instruction_length, line_base and line_range govern how
		// special opcodes compute address/line deltas; this checker only
		// validates the program's structure, not the line table it would
		// produce, so none of the three need to be retained past here.
		if _, err := ctx.Ubyte(); err != nil {
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}

		defaultIsStmt, err := ctx.Ubyte()
		if err != nil {
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}
		if defaultIsStmt != 0 && defaultIsStmt != 1 {
			c.Report(diag.Newf(diag.CatLine|diag.CatHeader|diag.CatImpact3, where, "default_is_stmt %d is neither 0 nor 1", defaultIsStmt))
		}

		if _, err := ctx.Ubyte(); err != nil { // line_base
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}
		if _, err := ctx.Ubyte(); err != nil { // line_range
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}

		opcodeBase, err := ctx.Ubyte()
		if err != nil {
			return fmt.Errorf("line program at %#x: %w", setStart, err)
		}

		stdOpcLengths := make([]byte, opcodeBase-1)
		for i := range stdOpcLengths {
			b, err := ctx.Ubyte()
			if err != nil {
				return fmt.Errorf("line program at %#x: %w", setStart, err)
			}
			stdOpcLengths[i] = b
		}

		var dirs []string
		for {
			s, err := ctx.Str()
			if err != nil {
				return fmt.Errorf("line program include-directories at %#x: %w", ctx.GetOffset(), err)
			}
			if s == "" {
				break
			}
			dirs = append(dirs, s)
		}
		dirUsed := make([]bool, len(dirs)+1) // index 0 is the compilation directory

		type fileEntry struct {
			name   string
			dirIdx uint64
		}
		var files []fileEntry
		for {
			name, err := ctx.Str()
			if err != nil {
				return fmt.Errorf("line program file table at %#x: %w", ctx.GetOffset(), err)
			}
			if name == "" {
				break
			}
			dirIdx, _, err := ctx.Uleb128()
			if err != nil {
				return fmt.Errorf("line program file table at %#x: %w", ctx.GetOffset(), err)
			}
			if _, _, err := ctx.Uleb128(); err != nil { // mtime
				return fmt.Errorf("line program file table at %#x: %w", ctx.GetOffset(), err)
			}
			if _, _, err := ctx.Uleb128(); err != nil { // size
				return fmt.Errorf("line program file table at %#x: %w", ctx.GetOffset(), err)
			}
			if dirIdx != 0 {
				if int(dirIdx) >= len(dirs)+1 {
					c.Report(diag.Newf(diag.CatLine|diag.CatImpact2|diag.CatError, where,
						"file %q has directory index %d, but only %d directories are declared", name, dirIdx, len(dirs)))
				} else if len(name) > 0 && name[0] == '/' {
					c.Report(diag.Newf(diag.CatLine|diag.CatImpact3, where,
						"file %q has an absolute path but a non-zero directory index %d", name, dirIdx))
				}
			}
			if int(dirIdx) < len(dirUsed) {
				dirUsed[dirIdx] = true
			}
			files = append(files, fileEntry{name: name, dirIdx: dirIdx})
		}
		fileUsed := make([]bool, len(files)+1) // file index is 1-based

		actualProgramStart := ctx.GetOffset()
		switch {
		case actualProgramStart > programStart:
			c.Report(diag.Newf(diag.CatLine|diag.CatHeader|diag.CatImpact2|diag.CatError, where,
				"directory/file tables run %d bytes past the declared header_length", actualProgramStart-programStart))
		case actualProgramStart < programStart:
			if err := ctx.SetOffset(programStart); err != nil {
				return err
			}
		}

		if ctx.GetOffset() >= setEnd {
			c.Report(diag.Newf(diag.CatLine|diag.CatSuboptimal|diag.CatImpact4, where, "line program has no statements"))
		}

		addrSize := c.Src.AddressSize()
		unterminated := false
		for ctx.GetOffset() < setEnd {
			opcodeOff := ctx.GetOffset()
			opcode, err := ctx.Ubyte()
			if err != nil {
				return fmt.Errorf("line program opcode at %#x: %w", opcodeOff, err)
			}

			switch {
			case opcode == 0: // extended opcode
				extLen, _, err := ctx.Uleb128()
				if err != nil {
					return fmt.Errorf("extended opcode at %#x: %w", opcodeOff, err)
				}
				extStart := ctx.GetOffset()
				sub, err := ctx.Ubyte()
				if err != nil {
					return fmt.Errorf("extended opcode at %#x: %w", opcodeOff, err)
				}
				switch sub {
				case lneEndSequence:
					unterminated = false
				case lneSetAddress:
					addrFieldOff := ctx.GetOffset()
					raw, err := ctx.Var(addrSize)
					if err != nil {
						return fmt.Errorf("DW_LNE_set_address at %#x: %w", opcodeOff, err)
					}
					if c.LineRelocs != nil {
						if rel, ok := c.LineRelocs.Next(uint64(addrFieldOff), where, reloc.SkipMismatched, c.Report); ok {
							width := container.RelWidth32
							if addrSize == 8 {
								width = container.RelWidth64
							}
							reloc.RelocateOne(c.Src, rel, width, raw, where,
								reloc.Expect{Class: reloc.ExpectAddress}, c.Report)
						}
					}
					unterminated = true
				case lneDefineFile:
					if _, err := ctx.Str(); err != nil {
						return fmt.Errorf("DW_LNE_define_file at %#x: %w", opcodeOff, err)
					}
					for i := 0; i < 3; i++ {
						if _, _, err := ctx.Uleb128(); err != nil {
							return fmt.Errorf("DW_LNE_define_file at %#x: %w", opcodeOff, err)
						}
					}
				default:
					c.Report(diag.Newf(diag.CatLine|diag.CatImpact3, where, "unrecognized extended opcode %#x", sub))
				}
				consumed := ctx.GetOffset() - extStart
				if uint64(consumed) != extLen {
					c.Report(diag.Newf(diag.CatLine|diag.CatImpact2|diag.CatError, where,
						"extended opcode %#x declares length %d but consumed %d bytes", sub, extLen, consumed))
					if err := ctx.SetOffset(extStart + int(extLen)); err != nil {
						return err
					}
				}

			// Anything at or above opcode_base is a special opcode, even if
			// its numeric value happens to coincide with a standard opcode
			// number from a table that declares a smaller opcode_base.
			case int(opcode) >= int(opcodeBase):
				// Special opcode: numeric, no operands of its own.

			case opcode == lnsFixedAdvancePC:
				if _, err := ctx.TwoUbyte(); err != nil {
					return fmt.Errorf("DW_LNS_fixed_advance_pc at %#x: %w", opcodeOff, err)
				}

			case opcode == lnsSetFile:
				idx, _, err := ctx.Uleb128()
				if err != nil {
					return fmt.Errorf("DW_LNS_set_file at %#x: %w", opcodeOff, err)
				}
				if idx == 0 || int(idx) > len(files) {
					c.Report(diag.Newf(diag.CatLine|diag.CatImpact2|diag.CatError, where,
						"DW_LNS_set_file references file index %d, but only %d files are declared", idx, len(files)))
				} else {
					fileUsed[idx] = true
					if d := files[idx-1].dirIdx; int(d) < len(dirUsed) {
						dirUsed[d] = true
					}
				}

			default: // remaining standard opcodes, including ones this table assigns no special meaning
				n := int(stdOpcLengths[opcode-1])
				for i := 0; i < n; i++ {
					if _, _, err := ctx.Uleb128(); err != nil {
						return fmt.Errorf("standard opcode %d operand at %#x: %w", opcode, opcodeOff, err)
					}
				}
			}
		}
		if unterminated {
			c.Report(diag.Newf(diag.CatLine|diag.CatImpact2|diag.CatError, where, "line program ends without a DW_LNE_end_sequence"))
		}

		for i, used := range dirUsed {
			if i == 0 {
				continue
			}
			if !used {
				c.Report(diag.Newf(diag.CatLine|diag.CatSuboptimal|diag.CatImpact4, where, "include directory %q is never referenced", dirs[i-1]))
			}
		}
		for i, used := range fileUsed {
			if i == 0 {
				continue
			}
			if !used {
				c.Report(diag.Newf(diag.CatLine|diag.CatSuboptimal|diag.CatImpact4, where, "file %q is never referenced", files[i-1].name))
			}
		}

		if err := ctx.SetOffset(setEnd); err != nil {
			return err
		}
	}

	for _, cu := range cus {
		for _, ref := range cu.LineRefs.Items() {
			if !starts[ref.Addr] {
				where := c.Arena.New(".debug_line", diag.FormatCUDie)
				where = c.Arena.WithCoord(where, "CU", uint64(cu.Offset), true)
				c.Report(diag.Newf(diag.CatLine|diag.CatDieRel|diag.CatImpact2|diag.CatError, where,
					"DW_AT_stmt_list %#x does not name any line program", ref.Addr))
			}
		}
	}

	return nil
}

func offsetWidth(dwarf64 bool) int {
	if dwarf64 {
		return 8
	}
	return 4
}
