package covmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/container"
	"github.com/dwarflint/dwarflint/internal/covmap"
	"github.com/dwarflint/dwarflint/internal/diag"
)

func collect() (func(diag.Message), *[]diag.Message) {
	var msgs []diag.Message
	return func(m diag.Message) { msgs = append(msgs, m) }, &msgs
}

func sections() []container.Section {
	return []container.Section{
		{Name: ".text", Addr: 0x1000, Size: 0x100, Alloc: true, Exec: true, Data: make([]byte, 0x100)},
		{Name: ".rodata", Addr: 0x2000, Size: 0x100, Alloc: true, Data: make([]byte, 0x100)},
		{Name: ".debug_info", Addr: 0, Size: 0x50},
	}
}

func TestAddWithinOneSectionIsClean(t *testing.T) {
	report, msgs := collect()
	m := covmap.New(sections(), 8, diag.NewArena(), report)

	where := diag.NewArena().New(".text", diag.FormatPlain)
	m.Add(0x1000, 0x10, where, diag.CatInfo, false)

	assert.Empty(t, *msgs)
}

func TestAddStraddlingTwoSectionsWarns(t *testing.T) {
	report, msgs := collect()
	abutting := []container.Section{
		{Name: ".text", Addr: 0x1000, Size: 0x100, Alloc: true, Exec: true, Data: make([]byte, 0x100)},
		{Name: ".rodata", Addr: 0x1100, Size: 0x100, Alloc: true, Data: make([]byte, 0x100)},
	}
	m := covmap.New(abutting, 8, diag.NewArena(), report)

	where := diag.NewArena().New(".text", diag.FormatPlain)
	m.Add(0x10f8, 0x10, where, diag.CatInfo, false) // crosses the .text/.rodata boundary at 0x1100

	require.NotEmpty(t, *msgs)
	var found bool
	for _, msg := range *msgs {
		if msg.Category.Has(diag.CatImpact2) {
			found = true
		}
	}
	assert.True(t, found, "a range crossing two abutting sections must be reported as a straddle")
}

func TestAddOverlapIsError(t *testing.T) {
	report, msgs := collect()
	m := covmap.New(sections(), 8, diag.NewArena(), report)

	where := diag.NewArena().New(".text", diag.FormatPlain)
	m.Add(0x1000, 0x10, where, diag.CatInfo, false)
	m.Add(0x1008, 0x10, where, diag.CatInfo, false)

	require.NotEmpty(t, *msgs)
	var found bool
	for _, msg := range *msgs {
		if msg.Category.Has(diag.CatError) {
			found = true
		}
	}
	assert.True(t, found, "a second range overlapping an already-recorded one in the same section must be an error")
}

func TestAddAllowOverlapSuppressesError(t *testing.T) {
	report, msgs := collect()
	m := covmap.New(sections(), 8, diag.NewArena(), report)

	where := diag.NewArena().New(".text", diag.FormatPlain)
	m.Add(0x1000, 0x10, where, diag.CatInfo, true)
	m.Add(0x1008, 0x10, where, diag.CatInfo, true)

	for _, msg := range *msgs {
		assert.False(t, msg.Category.Has(diag.CatError))
	}
}

func TestAddOutsideAnyAllocSectionWarns(t *testing.T) {
	report, msgs := collect()
	m := covmap.New(sections(), 8, diag.NewArena(), report)

	where := diag.NewArena().New(".text", diag.FormatPlain)
	m.Add(0x1500, 0x10, where, diag.CatInfo, false) // between .text and .rodata

	require.Len(t, *msgs, 1)
	assert.True(t, (*msgs)[0].Category.Has(diag.CatImpact2))
}

func TestFindHolesSkipsNonExecutableSection(t *testing.T) {
	report, msgs := collect()
	secs := sections()
	m := covmap.New(secs, 8, diag.NewArena(), report)

	where := diag.NewArena().New(".rodata", diag.FormatPlain)
	m.Add(0x2000, 0x10, where, diag.CatInfo, false)
	// leaves [0x2010, 0x2100) uncovered in .rodata, which is non-executable
	// and not code-adjacent, so the gap must be exempt.

	m.FindHoles()
	assert.Empty(t, *msgs)
}

func TestFindHolesReportsNonZeroGapInExecutableSection(t *testing.T) {
	report, msgs := collect()
	secs := sections()
	secs[0].Data[0x50] = 0xff
	m := covmap.New(secs, 8, diag.NewArena(), report)

	where := diag.NewArena().New(".text", diag.FormatPlain)
	m.Add(0x1000, 0x10, where, diag.CatInfo, false)
	m.Add(0x1080, 0x10, where, diag.CatInfo, false)
	// leaves [0x1010, 0x1080) uncovered in .text, containing the non-zero
	// byte at 0x1050 -- must be reported, since .text is executable.

	m.FindHoles()
	require.NotEmpty(t, *msgs)
	var found bool
	for _, msg := range *msgs {
		if msg.Category.Has(diag.CatImpact3) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFindHolesToleratesShortAlignedGap(t *testing.T) {
	report, msgs := collect()
	secs := sections()
	m := covmap.New(secs, 8, diag.NewArena(), report)

	where := diag.NewArena().New(".text", diag.FormatPlain)
	secs[0].Data[0x50] = 0xff // non-zero, but the gap is short
	m.Add(0x1000, 0x50, where, diag.CatInfo, false)
	m.Add(0x1054, 0x10, where, diag.CatInfo, false)
	// leaves a 4-byte gap [0x1050, 0x1054), within the 8-byte align unit.

	m.FindHoles()
	assert.Empty(t, *msgs)
}
