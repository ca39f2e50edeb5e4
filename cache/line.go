// Package cache implements the fixed-pool line cache behind a CachedHandler:
// a small number of aligned, line-sized slots with least-recently-read
// eviction and lazy freshness checks.
package cache

import (
	"errors"
	"time"

	"github.com/hupe1980/remotemem/addrrange"
)

var (
	// ErrSizeMismatch is returned when the data handed to a line does not
	// match the span of its range. It signals a caller bug, never a normal
	// runtime condition.
	ErrSizeMismatch = errors.New("cache: data length does not match range span")

	// ErrNotCovered is returned when a partial write targets addresses the
	// line does not currently hold.
	ErrNotCovered = errors.New("cache: range not covered by line validity")

	// ErrInconsistentFill is returned when Update is called with a range
	// that does not cover the most recently failed search. It signals a
	// caller bug, never a normal runtime condition.
	ErrInconsistentFill = errors.New("cache: fill range does not cover last missed range")
)

// Line is one cache slot: a fixed-capacity buffer holding a copy of an
// aligned block of remote bytes, plus the validity range describing which
// addresses the buffer currently represents.
//
// Lines are created once, at pool construction, and only ever invalidated
// or overwritten in place. An empty validity range means the line holds
// nothing; buf[n] is the byte at address validity.Min()+n otherwise.
type Line struct {
	buf        []byte
	validity   *addrrange.Range
	lastRead   time.Time
	lastUpdate time.Time
}

func newLine(linebytes int) *Line {
	return &Line{
		buf:      make([]byte, linebytes),
		validity: addrrange.New(),
	}
}

// Invalidate clears the validity range. The buffer bytes stay in place but
// are no longer addressable.
func (l *Line) Invalidate() {
	l.validity.Clear()
}

// Hit reports whether this line can serve the whole request.
func (l *Line) Hit(request *addrrange.Range) bool {
	if l.validity.Empty() {
		return false
	}
	return l.validity.Superset(request)
}

// Range returns the line's current validity range.
func (l *Line) Range() *addrrange.Range {
	return l.validity
}

// offset returns the buffer index of rng's minimum address. Only meaningful
// when Hit(rng) is true.
func (l *Line) offset(rng *addrrange.Range) int {
	return int(rng.Min() - l.validity.Min())
}

// Update replaces the line wholesale: new validity range, new contents,
// both timestamps refreshed.
func (l *Line) Update(rng *addrrange.Range, data []byte, now time.Time) error {
	if uint64(len(data)) != rng.Span() {
		return ErrSizeMismatch
	}
	l.lastRead = now
	l.lastUpdate = now
	l.validity = rng.Clone()
	copy(l.buf, data)
	return nil
}

// Write overwrites part of the line in place, keeping the validity range.
// Neither timestamp is refreshed: the rest of the line may be aging out
// from under this write.
func (l *Line) Write(rng *addrrange.Range, data []byte) error {
	if uint64(len(data)) != rng.Span() {
		return ErrSizeMismatch
	}
	if !l.Hit(rng) {
		return ErrNotCovered
	}
	copy(l.buf[l.offset(rng):], data)
	return nil
}

// Read returns a copy of the bytes for rng and refreshes the read
// timestamp. The caller must have established Hit(rng) first.
func (l *Line) Read(rng *addrrange.Range, now time.Time) []byte {
	l.lastRead = now
	off := l.offset(rng)
	out := make([]byte, rng.Span())
	copy(out, l.buf[off:])
	return out
}
