package reloc_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/reloc"
)

// fakeSource is a minimal container.Source double for testing relocate_one
// and the monotone cursor without touching debug/elf at all.
type fakeSource struct {
	relocatable bool
	symbols     map[uint32]container.Symbol
	sections    map[string]container.Section
	widths      map[uint32]container.RelWidth
}

func (f *fakeSource) ByteOrder() binary.ByteOrder        { return binary.LittleEndian }
func (f *fakeSource) AddressSize() int                   { return 8 }
func (f *fakeSource) IsRelocatable() bool                { return f.relocatable }
func (f *fakeSource) Section(name string) (container.Section, bool) {
	s, ok := f.sections[name]
	return s, ok
}
func (f *fakeSource) Symbol(index uint32) (container.Symbol, bool) {
	s, ok := f.symbols[index]
	return s, ok
}
func (f *fakeSource) ClassifyRelocation(relType uint32) container.RelWidth {
	return f.widths[relType]
}
func (f *fakeSource) Relocations(string) []container.Relocation { return nil }
func (f *fakeSource) Sections() []container.Section              { return nil }

func newArena() (*diag.Arena, diag.ID) {
	a := diag.NewArena()
	return a, a.New(".debug_info", diag.FormatPlain)
}

func TestTableNextReportsSkippedMismatches(t *testing.T) {
	where, id := newArena()
	table := reloc.NewTable([]container.Relocation{
		{Offset: 4, Type: 1},
		{Offset: 8, Type: 1},
		{Offset: 16, Type: 1},
	})

	var msgs []diag.Message
	rel, ok := table.Next(8, id, reloc.SkipMismatched, func(m diag.Message) { msgs = append(msgs, m) })
	require.True(t, ok)
	assert.Equal(t, uint64(8), rel.Offset)
	require.Len(t, msgs, 1, "the entry at offset 4 should have been reported once while skipping to 8")
	assert.Contains(t, where.Line(msgs[0], diag.Warning, false), "offset 0x4")

	_, ok = table.Next(16, id, reloc.SkipMismatched, func(m diag.Message) { msgs = append(msgs, m) })
	assert.True(t, ok)
}

func TestTableNextMissReturnsFalseWithoutConsuming(t *testing.T) {
	_, id := newArena()
	table := reloc.NewTable([]container.Relocation{{Offset: 10, Type: 1}})

	_, ok := table.Next(5, id, reloc.SkipSilent, func(diag.Message) {})
	assert.False(t, ok)

	rel, ok := table.Next(10, id, reloc.SkipSilent, func(diag.Message) {})
	require.True(t, ok)
	assert.Equal(t, uint64(10), rel.Offset)
}

func TestSkipRestReportsEveryRemainingEntry(t *testing.T) {
	_, id := newArena()
	table := reloc.NewTable([]container.Relocation{
		{Offset: 1, Type: 1},
		{Offset: 2, Type: 1},
	})

	var n int
	table.SkipRest(id, func(diag.Message) { n++ })
	assert.Equal(t, 2, n)

	// A second SkipRest after the cursor already reached the end reports nothing more.
	table.SkipRest(id, func(diag.Message) { n++ })
	assert.Equal(t, 2, n)
}

func TestRelocateOneAppliesAddendForRelocatableObject(t *testing.T) {
	_, id := newArena()
	src := &fakeSource{
		relocatable: true,
		widths:      map[uint32]container.RelWidth{1: container.RelWidth64},
		symbols: map[uint32]container.Symbol{
			3: {Name: "debug_abbrev", SectionName: ".debug_abbrev", IsSection: true, SectionAddr: 0},
		},
	}
	rel := container.Relocation{Offset: 0, Type: 1, Symndx: 3, Addend: 0x40}

	value, ok := reloc.RelocateOne(src, rel, container.RelWidth64, 0, id,
		reloc.Expect{Class: reloc.ExpectDebugSection, SectionName: ".debug_abbrev"}, func(diag.Message) {})
	require.True(t, ok)
	assert.Equal(t, uint64(0x40), value)
}

func TestRelocateOneKeepsRawValueWhenNotRelocatable(t *testing.T) {
	_, id := newArena()
	src := &fakeSource{
		relocatable: false,
		widths:      map[uint32]container.RelWidth{1: container.RelWidth32},
		symbols: map[uint32]container.Symbol{
			1: {Name: "x", SectionName: ".debug_info"},
		},
	}
	rel := container.Relocation{Offset: 0, Type: 1, Symndx: 1, Addend: 0x99}

	value, ok := reloc.RelocateOne(src, rel, container.RelWidth32, 0x1234, id,
		reloc.Expect{Class: reloc.ExpectValue}, func(diag.Message) {})
	require.True(t, ok)
	assert.Equal(t, uint64(0x1234), value, "a linked object's bytes already carry the final value")
}

func TestRelocateOneFlagsWidthMismatch(t *testing.T) {
	_, id := newArena()
	src := &fakeSource{
		widths:  map[uint32]container.RelWidth{1: container.RelWidth32},
		symbols: map[uint32]container.Symbol{0: {Name: "s"}},
	}
	rel := container.Relocation{Offset: 0, Type: 1, Symndx: 0}

	var msgs []diag.Message
	_, ok := reloc.RelocateOne(src, rel, container.RelWidth64, 0, id,
		reloc.Expect{Class: reloc.ExpectValue}, func(m diag.Message) { msgs = append(msgs, m) })
	assert.False(t, ok)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Category.Has(diag.CatReloc))
}

func TestRelocateOneFlagsUndefinedSymbol(t *testing.T) {
	_, id := newArena()
	src := &fakeSource{
		widths:  map[uint32]container.RelWidth{1: container.RelWidth32},
		symbols: map[uint32]container.Symbol{0: {Name: "s", Undef: true}},
	}
	rel := container.Relocation{Offset: 0, Type: 1, Symndx: 0}

	_, ok := reloc.RelocateOne(src, rel, container.RelWidth32, 0, id,
		reloc.Expect{Class: reloc.ExpectValue}, func(diag.Message) {})
	assert.False(t, ok)
}

func TestRelocateOneFlagsNonExecutableTargetForPCExpectation(t *testing.T) {
	_, id := newArena()
	src := &fakeSource{
		relocatable: true,
		widths:      map[uint32]container.RelWidth{1: container.RelWidth64},
		symbols: map[uint32]container.Symbol{
			5: {Name: "data", SectionName: ".data", IsSection: true},
		},
		sections: map[string]container.Section{
			".data": {Name: ".data", Exec: false, Alloc: true},
		},
	}
	rel := container.Relocation{Offset: 0, Type: 1, Symndx: 5}

	var msgs []diag.Message
	_, ok := reloc.RelocateOne(src, rel, container.RelWidth64, 0, id,
		reloc.Expect{Class: reloc.ExpectExec}, func(m diag.Message) { msgs = append(msgs, m) })
	assert.True(t, ok, "a non-executable target is a warning, not a resolution failure")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Category.Has(diag.CatImpact3))
}

func TestRelocateOneRejectsInvalidEntry(t *testing.T) {
	_, id := newArena()
	src := &fakeSource{}
	rel := container.Relocation{Offset: 0, Invalid: true}

	_, ok := reloc.RelocateOne(src, rel, container.RelWidth32, 0x77, id,
		reloc.Expect{Class: reloc.ExpectValue}, func(diag.Message) {})
	assert.False(t, ok)
}
