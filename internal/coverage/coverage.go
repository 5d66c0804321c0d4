// Package coverage implements C3: a disjoint interval set over 64-bit
// addresses, used to accumulate CU, loc/range and section address
// coverage and to compute the coverage cross-checks of spec.md §4.5/§4.6.
package coverage // import "github.com/dwarflint/dwarflint/internal/coverage"

import "sort"

// Interval is a half-open address range [Start, End).
type Interval struct {
	Start, End uint64
}

// Set is a sorted set of disjoint, non-touching half-open intervals.
// Add is the only mutator that can violate the invariant transiently; it
// always restores it by merging with any interval it touches or overlaps.
type Set struct {
	intervals []Interval
}

// Add records [addr, addr+length) as covered, merging with any interval it
// touches or overlaps. A zero-length range is a no-op.
func (s *Set) Add(addr, length uint64) {
	if length == 0 {
		return
	}
	niv := Interval{Start: addr, End: addr + length}

	i := sort.Search(len(s.intervals), func(i int) bool { return s.intervals[i].End >= niv.Start })
	j := i
	for j < len(s.intervals) && s.intervals[j].Start <= niv.End {
		if s.intervals[j].Start < niv.Start {
			niv.Start = s.intervals[j].Start
		}
		if s.intervals[j].End > niv.End {
			niv.End = s.intervals[j].End
		}
		j++
	}

	merged := make([]Interval, 0, len(s.intervals)-(j-i)+1)
	merged = append(merged, s.intervals[:i]...)
	merged = append(merged, niv)
	merged = append(merged, s.intervals[j:]...)
	s.intervals = merged
}

// IsCovered reports whether the whole range [addr, addr+length) is
// contained in a single stored interval. Because Add always merges
// touching/overlapping intervals, any range fully covered by the set is
// necessarily covered by one interval.
func (s *Set) IsCovered(addr, length uint64) bool {
	end := addr + length
	i := sort.Search(len(s.intervals), func(i int) bool { return s.intervals[i].End > addr })
	if i >= len(s.intervals) {
		return false
	}
	return s.intervals[i].Start <= addr && s.intervals[i].End >= end
}

// IsOverlap reports whether [addr, addr+length) intersects any stored
// interval — spec.md §8's coverage invariant: IsOverlap(a,n) ⇔ ∃ stored
// [b,m) with b < a+n ∧ b+m > a.
func (s *Set) IsOverlap(addr, length uint64) bool {
	end := addr + length
	i := sort.Search(len(s.intervals), func(i int) bool { return s.intervals[i].End > addr })
	return i < len(s.intervals) && s.intervals[i].Start < end
}

// FindHoles invokes cb once per maximal uncovered sub-range of [begin,end).
func (s *Set) FindHoles(begin, end uint64, cb func(start, end uint64)) {
	cur := begin
	for _, iv := range s.intervals {
		if iv.End <= begin {
			continue
		}
		if iv.Start >= end {
			break
		}
		ivStart := max(iv.Start, begin)
		if ivStart > cur {
			cb(cur, ivStart)
		}
		if ivEnd := min(iv.End, end); ivEnd > cur {
			cur = ivEnd
		}
	}
	if cur < end {
		cb(cur, end)
	}
}

// FindRanges invokes cb once per stored interval, in ascending order.
func (s *Set) FindRanges(cb func(start, end uint64)) {
	for _, iv := range s.intervals {
		cb(iv.Start, iv.End)
	}
}

// RemoveAll subtracts every interval of other from s, in place.
func (s *Set) RemoveAll(other *Set) {
	var result []Interval
	oi := 0
	for _, iv := range s.intervals {
		cur := iv.Start
		for oi < len(other.intervals) && other.intervals[oi].End <= cur {
			oi++
		}
		j := oi
		for j < len(other.intervals) && other.intervals[j].Start < iv.End {
			o := other.intervals[j]
			if o.Start > cur {
				result = append(result, Interval{Start: cur, End: o.Start})
			}
			if o.End > cur {
				cur = o.End
			}
			j++
		}
		if cur < iv.End {
			result = append(result, Interval{Start: cur, End: iv.End})
		}
		oi = j
	}
	s.intervals = result
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	return &Set{intervals: append([]Interval(nil), s.intervals...)}
}

// Len returns the number of disjoint intervals currently stored.
func (s *Set) Len() int { return len(s.intervals) }
