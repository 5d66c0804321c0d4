package tables_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/coverage"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/reader"
	"github.com/dwarflint/dwarflint/internal/tables"
)

type fakeSrc struct{ addrSize int }

func (f fakeSrc) ByteOrder() binary.ByteOrder                        { return binary.LittleEndian }
func (f fakeSrc) AddressSize() int                                   { return f.addrSize }
func (f fakeSrc) IsRelocatable() bool                                { return false }
func (f fakeSrc) Section(string) (container.Section, bool)           { return container.Section{}, false }
func (f fakeSrc) Sections() []container.Section                      { return nil }
func (f fakeSrc) Symbol(uint32) (container.Symbol, bool)             { return container.Symbol{}, false }
func (f fakeSrc) ClassifyRelocation(uint32) container.RelWidth       { return container.RelWidthUnknown }
func (f fakeSrc) Relocations(string) []container.Relocation          { return nil }

func put32(buf []byte, off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:off+4], v) }

func newCU(offset int, length int) *dieinfo.CU {
	return &dieinfo.CU{Offset: offset, Length: length, AddressSize: 4}
}

func collect() (func(diag.Message), *[]diag.Message) {
	var msgs []diag.Message
	return func(m diag.Message) { msgs = append(msgs, m) }, &msgs
}

func TestArangesCleanSetIsRecordedInCUCoverage(t *testing.T) {
	cu := newCU(0, 0x20)

	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0) // length placeholder
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(2)                         // version
	b32(uint32(cu.Offset))         // cu_offset
	buf = append(buf, 4, 0)        // address_size=4, segment_size=0
	// Header occupies 12 bytes so far (4-byte length + 2 + 4 + 1 + 1); the
	// first tuple must align to 2*address_size == 8 after that.
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	b32(0x2000) // address
	b32(0x10)   // length
	b32(0)      // terminator
	b32(0)
	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.ArangesChecker{Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena(), Coverage: &coverage.Set{}}
	report, msgs := collect()
	c.Report = report

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	assert.Empty(t, *msgs)
	assert.True(t, c.CUCoverage[cu].IsCovered(0x2000, 0x10))
}

func TestArangesUnknownCUOffsetIsError(t *testing.T) {
	cu := newCU(0x100, 0x20)

	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(2)
	b32(0xdead) // does not match any CU
	buf = append(buf, 4, 0)
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	b32(0x10)
	b32(0x4)
	b32(0)
	b32(0)
	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.ArangesChecker{Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena(), Coverage: &coverage.Set{}}
	report, msgs := collect()
	c.Report = report

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	var found bool
	for _, m := range *msgs {
		if m.Category.Has(diag.CatError) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestArangesZeroLengthNonTerminalTupleIsError(t *testing.T) {
	cu := newCU(0, 0x20)

	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(2)
	b32(uint32(cu.Offset))
	buf = append(buf, 4, 0)
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	b32(0x3000) // address
	b32(0)       // zero length, non-terminal (address != 0)
	b32(0)
	b32(0)
	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.ArangesChecker{Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena(), Coverage: &coverage.Set{}}
	report, msgs := collect()
	c.Report = report

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	require.NotEmpty(t, *msgs)
	assert.True(t, (*msgs)[0].Category.Has(diag.CatError))
}

func TestArangesTerminatesEarlyWithZeroPaddingIsBloatWarning(t *testing.T) {
	cu := newCU(0, 0x20)

	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(2)
	b32(uint32(cu.Offset))
	buf = append(buf, 4, 0)
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	b32(0x2000) // address
	b32(0x10)   // length
	b32(0)      // terminator
	b32(0)
	buf = append(buf, make([]byte, 16)...) // extra zero bytes past the terminator
	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.ArangesChecker{Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena(), Coverage: &coverage.Set{}}
	report, msgs := collect()
	c.Report = report

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	require.NotEmpty(t, *msgs)
	found := false
	for _, m := range *msgs {
		if m.Category.Has(diag.CatBloat) && !m.Category.Has(diag.CatError) {
			found = true
		}
	}
	assert.True(t, found, "the all-zero gap after the terminator should be reported as unnecessary padding, not an error")
}

func TestArangesTerminatesEarlyWithNonZeroTrailingBytes(t *testing.T) {
	cu := newCU(0, 0x20)

	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(2)
	b32(uint32(cu.Offset))
	buf = append(buf, 4, 0)
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	b32(0x2000) // address
	b32(0x10)   // length
	b32(0)      // terminator
	b32(0)
	buf = append(buf, 1, 2, 3, 4, 5, 6, 7, 8) // non-zero trailing garbage
	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.ArangesChecker{Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena(), Coverage: &coverage.Set{}}
	report, msgs := collect()
	c.Report = report

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	require.NotEmpty(t, *msgs)
	assert.True(t, (*msgs)[0].Category.Has(diag.CatBloat))
}

func TestPubnamesRecordResolvesToKnownDie(t *testing.T) {
	cu := newCU(0, 0x30)
	cu.DieAddrs.Add(0x10) // absolute DIE offset within the CU

	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(2)
	b32(uint32(cu.Offset))
	b32(uint32(cu.Length)) // cu_length must match
	b32(0x10)              // record offset (cu-relative)
	buf = append(buf, 'f', 'n', 0)
	b32(0) // terminator
	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.PubChecker{Kind: tables.PubNames, Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena()}
	report, msgs := collect()
	c.Report = report

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	assert.Empty(t, *msgs)
}

func TestPubnamesRecordToUnknownDieIsError(t *testing.T) {
	cu := newCU(0, 0x30)

	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(2)
	b32(uint32(cu.Offset))
	b32(uint32(cu.Length))
	b32(0x99) // no such DIE in the CU
	buf = append(buf, 'x', 0)
	b32(0)
	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.PubChecker{Kind: tables.PubNames, Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena()}
	report, msgs := collect()
	c.Report = report

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	require.Len(t, *msgs, 1)
	assert.True(t, (*msgs)[0].Category.Has(diag.CatError))
	assert.True(t, (*msgs)[0].Category.Has(diag.CatDieRel))
}

func TestLineProgramCleanMinimalProgram(t *testing.T) {
	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(3) // version

	hdrLenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0) // header_length placeholder
	hdrBodyStart := len(buf)

	buf = append(buf, 1)    // min_instruction_length
	buf = append(buf, 1)    // default_is_stmt
	buf = append(buf, 0xfb) // line_base (-5)
	buf = append(buf, 14)   // line_range
	buf = append(buf, 13)   // opcode_base
	buf = append(buf, []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}...) // 12 std opcode lengths

	buf = append(buf, 0) // empty include-directory list
	buf = append(buf, 'a', '.', 'c', 0, 0, 0, 0) // one file: name, dir=0, mtime=0, size=0
	buf = append(buf, 0)                         // empty-name terminates file list

	put32(buf, hdrLenPos, uint32(len(buf)-hdrBodyStart))

	// program: DW_LNS_set_file (so the one declared file counts as used),
	// DW_LNE_set_address, then DW_LNE_end_sequence.
	buf = append(buf, 4) // DW_LNS_set_file
	buf = append(buf, 1) // file index 1
	buf = append(buf, 0) // extended opcode
	buf = append(buf, 5) // length: sub-opcode(1) + 4-byte address
	buf = append(buf, 2) // DW_LNE_set_address
	b32(0x1000)
	buf = append(buf, 0) // extended opcode
	buf = append(buf, 1) // length: sub-opcode only
	buf = append(buf, 1) // DW_LNE_end_sequence

	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.LineChecker{Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena()}
	report, msgs := collect()
	c.Report = report

	cu := newCU(0, len(buf))
	cu.LineRefs.Add(0, 0)

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	assert.Empty(t, *msgs)
}

func TestLineProgramUnterminatedSequenceIsError(t *testing.T) {
	var buf []byte
	lenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	b16 := func(v uint16) { bb := make([]byte, 2); binary.LittleEndian.PutUint16(bb, v); buf = append(buf, bb...) }
	b32 := func(v uint32) { bb := make([]byte, 4); binary.LittleEndian.PutUint32(bb, v); buf = append(buf, bb...) }
	b16(3)

	hdrLenPos := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	hdrBodyStart := len(buf)
	buf = append(buf, 1, 1, 0xfb, 14, 13)
	buf = append(buf, []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}...)
	buf = append(buf, 0)
	buf = append(buf, 'a', 0, 0, 0, 0)
	buf = append(buf, 0)
	put32(buf, hdrLenPos, uint32(len(buf)-hdrBodyStart))

	buf = append(buf, 0)
	buf = append(buf, 5)
	buf = append(buf, 2)
	b32(0x1000) // DW_LNE_set_address, never followed by end_sequence

	put32(buf, lenPos, uint32(len(buf)-lenPos-4))

	c := &tables.LineChecker{Src: fakeSrc{addrSize: 4}, Arena: diag.NewArena()}
	report, msgs := collect()
	c.Report = report

	cu := newCU(0, len(buf))

	err := c.Check(reader.New(buf, binary.LittleEndian), []*dieinfo.CU{cu})
	require.NoError(t, err)
	var found bool
	for _, m := range *msgs {
		if m.Category.Has(diag.CatError) {
			found = true
		}
	}
	assert.True(t, found)
}
