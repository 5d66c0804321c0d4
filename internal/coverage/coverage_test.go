package coverage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarflint/dwarflint/internal/coverage"
)

func TestAddMergesTouchingAndOverlapping(t *testing.T) {
	var s coverage.Set
	s.Add(10, 10) // [10,20)
	s.Add(20, 5)  // touches -> [10,25)
	s.Add(30, 5)  // disjoint -> [30,35)
	s.Add(22, 10) // overlaps both existing -> merges [10,25) and [30,35) into [10,35)

	require.Equal(t, 1, s.Len())
	assert.True(t, s.IsCovered(10, 25))
}

func TestIsOverlapInvariant(t *testing.T) {
	var s coverage.Set
	s.Add(100, 10) // [100,110)

	assert.True(t, s.IsOverlap(105, 1))
	assert.True(t, s.IsOverlap(95, 10)) // [95,105) overlaps [100,110)
	assert.False(t, s.IsOverlap(110, 5))
	assert.False(t, s.IsOverlap(80, 10))
}

func TestIsCoveredRequiresFullContainment(t *testing.T) {
	var s coverage.Set
	s.Add(0, 10)
	s.Add(20, 10)

	assert.True(t, s.IsCovered(2, 5))
	assert.False(t, s.IsCovered(5, 20), "spans the gap between intervals")
	assert.False(t, s.IsCovered(25, 10), "extends past the end of the interval")
}

func TestFindHoles(t *testing.T) {
	var s coverage.Set
	s.Add(10, 10) // [10,20)
	s.Add(30, 10) // [30,40)

	var holes [][2]uint64
	s.FindHoles(0, 50, func(start, end uint64) {
		holes = append(holes, [2]uint64{start, end})
	})

	require.Equal(t, [][2]uint64{{0, 10}, {20, 30}, {40, 50}}, holes)
}

func TestFindRanges(t *testing.T) {
	var s coverage.Set
	s.Add(5, 5)
	s.Add(20, 1)

	var ranges [][2]uint64
	s.FindRanges(func(start, end uint64) {
		ranges = append(ranges, [2]uint64{start, end})
	})
	require.Equal(t, [][2]uint64{{5, 10}, {20, 21}}, ranges)
}

func TestRemoveAll(t *testing.T) {
	var s coverage.Set
	s.Add(0, 100) // [0,100)

	var other coverage.Set
	other.Add(10, 10) // [10,20)
	other.Add(50, 5)  // [50,55)

	s.RemoveAll(&other)

	var ranges [][2]uint64
	s.FindRanges(func(start, end uint64) { ranges = append(ranges, [2]uint64{start, end}) })
	require.Equal(t, [][2]uint64{{0, 10}, {20, 50}, {55, 100}}, ranges)
}

func TestClone(t *testing.T) {
	var s coverage.Set
	s.Add(1, 1)
	clone := s.Clone()
	clone.Add(100, 1)

	assert.Equal(t, 1, s.Len(), "mutating the clone must not affect the original")
	assert.Equal(t, 2, clone.Len())
}
