// Package addrrange provides sets of disjoint half-open address intervals.
//
// A Range behaves like an integer set that happens to be stored as runs:
// it supports union, difference and intersection against other Ranges, and
// run-level iteration over its maximal contiguous intervals. All interval
// bounds follow the usual half-open convention: [start, stop) includes
// start and excludes stop.
package addrrange

import (
	"fmt"
	"iter"
	"sort"
	"strings"
)

// Range is a mutable set of disjoint half-open [start, stop) intervals over
// a flat uint64 address space.
//
// The zero value is an empty, ready-to-use Range. Range is not safe for
// concurrent use.
type Range struct {
	// bounds holds interval boundaries in ascending order. Even indices
	// start a run, odd indices end one, so [10,20) ∪ [30,40) is stored as
	// [10, 20, 30, 40]. Binary searches against this slice answer most
	// queries directly.
	bounds []uint64
}

// New returns an empty Range.
func New() *Range {
	return &Range{}
}

// Of returns a Range holding the single interval [start, stop).
func Of(start, stop uint64) *Range {
	r := New()
	r.Add(start, stop)
	return r
}

// Clone returns an independent copy of r.
func (r *Range) Clone() *Range {
	return &Range{bounds: append([]uint64(nil), r.bounds...)}
}

// Empty reports whether r contains no addresses.
func (r *Range) Empty() bool {
	return len(r.bounds) == 0
}

// Len returns the total number of addresses covered, gaps excluded.
func (r *Range) Len() uint64 {
	var n uint64
	for i := 0; i < len(r.bounds); i += 2 {
		n += r.bounds[i+1] - r.bounds[i]
	}
	return n
}

// Min returns the smallest address in r, or 0 if r is empty.
func (r *Range) Min() uint64 {
	if len(r.bounds) == 0 {
		return 0
	}
	return r.bounds[0]
}

// Max returns the exclusive upper bound of r's extent, or 0 if r is empty.
func (r *Range) Max() uint64 {
	if len(r.bounds) == 0 {
		return 0
	}
	return r.bounds[len(r.bounds)-1]
}

// Span returns Max − Min: the size of the enclosing extent, gaps included.
func (r *Range) Span() uint64 {
	return r.Max() - r.Min()
}

// Contiguous reports whether r has no gaps. The empty Range is contiguous.
func (r *Range) Contiguous() bool {
	return len(r.bounds) <= 2
}

// Contains reports whether addr is in r.
func (r *Range) Contains(addr uint64) bool {
	return r.bisectRight(addr)&1 == 1
}

// bisectRight returns the number of bounds <= v.
func (r *Range) bisectRight(v uint64) int {
	return sort.Search(len(r.bounds), func(i int) bool { return r.bounds[i] > v })
}

// bisectLeft returns the number of bounds < v.
func (r *Range) bisectLeft(v uint64) int {
	return sort.Search(len(r.bounds), func(i int) bool { return r.bounds[i] >= v })
}

// containsPair reports whether the whole interval [start, stop) is in r.
func (r *Range) containsPair(start, stop uint64) bool {
	idx := r.bisectRight(start)
	if idx&1 == 0 {
		return false
	}
	return stop <= r.bounds[idx]
}

// Superset reports whether every address in o is also in r.
// The empty Range is a subset of everything.
func (r *Range) Superset(o *Range) bool {
	for start, stop := range o.Pairs() {
		if !r.containsPair(start, stop) {
			return false
		}
	}
	return true
}

// Disjoint reports whether r and o share no addresses.
func (r *Range) Disjoint(o *Range) bool {
	for start, stop := range o.Pairs() {
		if len(r.intersectPair(start, stop)) > 0 {
			return false
		}
	}
	return true
}

// Equal reports whether r and o cover exactly the same addresses.
func (r *Range) Equal(o *Range) bool {
	if len(r.bounds) != len(o.bounds) {
		return false
	}
	for i, b := range r.bounds {
		if o.bounds[i] != b {
			return false
		}
	}
	return true
}

// Add inserts the interval [start, stop) into r, merging runs as needed.
// Empty intervals (start >= stop) are ignored.
func (r *Range) Add(start, stop uint64) {
	if start >= stop {
		return
	}

	left := r.bisectLeft(start)
	right := r.bisectLeft(stop)

	// An even index means the boundary lands outside any existing run (or
	// exactly on a run start) and must be kept; an odd index means it falls
	// inside a run whose own boundary absorbs it.
	keepStart := left&1 == 0
	keepStop := right&1 == 0
	if keepStop && right < len(r.bounds) && r.bounds[right] == stop {
		// stop coincides with the start of the next run: fuse them.
		right++
		keepStop = false
	}

	r.splice(left, right, start, stop, keepStart, keepStop)
}

// Remove deletes the interval [start, stop) from r, splitting runs as
// needed. Empty intervals are ignored.
func (r *Range) Remove(start, stop uint64) {
	if start >= stop || len(r.bounds) == 0 {
		return
	}

	left := r.bisectLeft(start)
	right := r.bisectLeft(stop)

	// Inverse parity logic of Add: a boundary inside a run splits it and
	// must be kept, one in a gap changes nothing.
	keepStart := false
	if left&1 == 1 {
		if r.bounds[left] == start {
			left++
		} else {
			keepStart = true
		}
	}
	keepStop := false
	if right&1 == 1 {
		if r.bounds[right] == stop {
			right++
		} else {
			keepStop = true
		}
	}

	r.splice(left, right, start, stop, keepStart, keepStop)
}

// splice replaces bounds[left:right] with the kept subset of {start, stop}.
func (r *Range) splice(left, right int, start, stop uint64, keepStart, keepStop bool) {
	repl := make([]uint64, 0, 2)
	if keepStart {
		repl = append(repl, start)
	}
	if keepStop {
		repl = append(repl, stop)
	}
	tail := append(repl, r.bounds[right:]...)
	r.bounds = append(r.bounds[:left], tail...)
}

// Clear empties r.
func (r *Range) Clear() {
	r.bounds = r.bounds[:0]
}

// Union returns a new Range covering every address in r or o.
func (r *Range) Union(o *Range) *Range {
	out := r.Clone()
	for start, stop := range o.Pairs() {
		out.Add(start, stop)
	}
	return out
}

// Diff returns a new Range covering every address in r but not in o.
func (r *Range) Diff(o *Range) *Range {
	out := r.Clone()
	for start, stop := range o.Pairs() {
		out.Remove(start, stop)
	}
	return out
}

// intersectPair returns r's bounds clipped to [start, stop).
func (r *Range) intersectPair(start, stop uint64) []uint64 {
	// Highest run start at or left of start.
	left := r.bisectRight(start)
	if left&1 == 1 {
		left--
	}
	// Lowest run end at or right of stop.
	right := r.bisectLeft(stop)
	if right&1 == 0 {
		right--
	}
	if left > right {
		return nil
	}

	out := append([]uint64(nil), r.bounds[left:right+1]...)
	if out[0] < start {
		out[0] = start
	}
	if out[len(out)-1] > stop {
		out[len(out)-1] = stop
	}
	return out
}

// Intersect returns a new Range covering every address in both r and o.
func (r *Range) Intersect(o *Range) *Range {
	out := New()
	for start, stop := range o.Pairs() {
		out.bounds = append(out.bounds, r.intersectPair(start, stop)...)
	}
	return out
}

// Pairs iterates over the maximal contiguous [start, stop) intervals of r
// in ascending order.
func (r *Range) Pairs() iter.Seq2[uint64, uint64] {
	return func(yield func(uint64, uint64) bool) {
		for i := 0; i < len(r.bounds); i += 2 {
			if !yield(r.bounds[i], r.bounds[i+1]) {
				return
			}
		}
	}
}

// Subranges iterates over the maximal contiguous intervals of r, each as
// its own Range.
func (r *Range) Subranges() iter.Seq[*Range] {
	return func(yield func(*Range) bool) {
		for i := 0; i < len(r.bounds); i += 2 {
			if !yield(Of(r.bounds[i], r.bounds[i+1])) {
				return
			}
		}
	}
}

// Spanning returns the smallest single contiguous Range enclosing all of r,
// gaps included.
func (r *Range) Spanning() *Range {
	if len(r.bounds) == 0 {
		return New()
	}
	return Of(r.bounds[0], r.bounds[len(r.bounds)-1])
}

// Split cuts r at the given ascending boundary points and returns the
// non-empty pieces in address order. Points outside r's extent produce no
// pieces.
func (r *Range) Split(points ...uint64) []*Range {
	if r.Empty() {
		return nil
	}

	rest := r.Clone()
	var out []*Range
	last := rest.Min()
	for _, p := range points {
		if p <= last {
			continue
		}
		piece := rest.Intersect(Of(last, p))
		rest.Remove(last, p)
		if !piece.Empty() {
			out = append(out, piece)
		}
		last = p
	}
	if !rest.Empty() {
		out = append(out, rest)
	}
	return out
}

// String renders r as a comma-separated list of intervals, e.g. "10-20, 32".
func (r *Range) String() string {
	if len(r.bounds) == 0 {
		return "∅"
	}
	var sb strings.Builder
	for i := 0; i < len(r.bounds); i += 2 {
		if i > 0 {
			sb.WriteString(", ")
		}
		start, stop := r.bounds[i], r.bounds[i+1]
		if stop-start == 1 {
			fmt.Fprintf(&sb, "%d", start)
		} else {
			fmt.Fprintf(&sb, "%d-%d", start, stop)
		}
	}
	return sb.String()
}
