package blocklist

import "fmt"

// Range is a half-open span of pool offsets.
type Range struct {
	Start uint64 // inclusive
	End   uint64 // exclusive
}

func (r Range) Size() uint64 {
	return r.End - r.Start
}

// Contains reports whether the offset lies within the range.
func (r Range) Contains(offset uint64) bool {
	return offset >= r.Start && offset < r.End
}

func (r Range) Adjacent(other Range) bool {
	return r.End == other.Start || other.End == r.Start
}

// Merge joins two adjacent ranges. It panics if the ranges do not touch.
func (r Range) Merge(other Range) Range {
	if !r.Adjacent(other) {
		panic(fmt.Sprintf("cannot merge non-adjacent ranges %v and %v", r, other))
	}
	return Range{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}
