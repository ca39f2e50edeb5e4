package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/remotemem/addrrange"
)

// fakeClock drives a Store's notion of time from the test.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestStore(sets, linebytes int, timeout time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := NewStore(sets, linebytes, timeout, true)
	s.now = clock.now
	return s, clock
}

func fill(t *testing.T, s *Store, start, stop uint64, data []byte) *Line {
	t.Helper()

	_, outcome := s.Read(addrrange.Of(start, stop))
	require.NotEqual(t, Hit, outcome)
	line, err := s.Update(addrrange.Of(start, stop), data)
	require.NoError(t, err)
	return line
}

func TestStoreMissThenHit(t *testing.T) {
	s, _ := newTestStore(2, 8, NoTimeout)

	data, outcome := s.Read(addrrange.Of(32, 40))
	assert.Equal(t, Miss, outcome)
	assert.Nil(t, data)

	_, err := s.Update(addrrange.Of(32, 40), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)

	data, outcome = s.Read(addrrange.Of(34, 36))
	assert.Equal(t, Hit, outcome)
	assert.Equal(t, []byte{3, 4}, data)

	assert.Equal(t, Stats{Hits: 1, Misses: 1}, s.Stats())
}

func TestStoreUpdateRequiresMatchingMiss(t *testing.T) {
	s, _ := newTestStore(2, 8, NoTimeout)

	// No search failed yet.
	_, err := s.Update(addrrange.Of(32, 40), make([]byte, 8))
	assert.ErrorIs(t, err, ErrInconsistentFill)

	_, outcome := s.Read(addrrange.Of(32, 36))
	require.Equal(t, Miss, outcome)

	// The fill may exceed the missed range (prefetch) but not miss part
	// of it.
	_, err = s.Update(addrrange.Of(34, 40), make([]byte, 6))
	assert.ErrorIs(t, err, ErrInconsistentFill)

	_, err = s.Update(addrrange.Of(32, 40), make([]byte, 8))
	assert.NoError(t, err)
}

func TestStoreEvictsLeastRecentlyRead(t *testing.T) {
	s, clock := newTestStore(2, 8, NoTimeout)

	fill(t, s, 0, 8, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	clock.advance(time.Second)
	fill(t, s, 8, 16, []byte{1, 1, 1, 1, 1, 1, 1, 1})
	clock.advance(time.Second)

	// Touch the first line so the second becomes least recently read.
	_, outcome := s.Read(addrrange.Of(0, 4))
	require.Equal(t, Hit, outcome)
	clock.advance(time.Second)

	fill(t, s, 16, 24, []byte{2, 2, 2, 2, 2, 2, 2, 2})

	_, outcome = s.Read(addrrange.Of(0, 4))
	assert.Equal(t, Hit, outcome, "recently read line must survive")
	_, outcome = s.Read(addrrange.Of(8, 12))
	assert.Equal(t, Miss, outcome, "least recently read line must be evicted")
	_, outcome = s.Read(addrrange.Of(16, 20))
	assert.Equal(t, Hit, outcome)
}

func TestStoreTimeoutZeroDisablesCache(t *testing.T) {
	s, _ := newTestStore(2, 8, 0)

	_, outcome := s.Read(addrrange.Of(0, 8))
	require.Equal(t, Miss, outcome)
	_, err := s.Update(addrrange.Of(0, 8), make([]byte, 8))
	require.NoError(t, err)

	// Even the just-filled line never hits.
	_, outcome = s.Read(addrrange.Of(0, 4))
	assert.Equal(t, Miss, outcome)
	assert.Equal(t, Stats{Misses: 2}, s.Stats())
}

func TestStoreTimeoutExpiresLines(t *testing.T) {
	s, clock := newTestStore(2, 8, time.Minute)

	first := fill(t, s, 0, 8, make([]byte, 8))

	clock.advance(30 * time.Second)
	_, outcome := s.Read(addrrange.Of(0, 4))
	assert.Equal(t, Hit, outcome)

	clock.advance(31 * time.Second)
	_, outcome = s.Read(addrrange.Of(0, 4))
	assert.Equal(t, Stale, outcome)

	// The stale line is the next victim; refilling recycles it in place.
	line, err := s.Update(addrrange.Of(0, 8), []byte{9, 9, 9, 9, 9, 9, 9, 9})
	require.NoError(t, err)
	assert.Same(t, first, line)

	data, outcome := s.Read(addrrange.Of(0, 2))
	assert.Equal(t, Hit, outcome)
	assert.Equal(t, []byte{9, 9}, data)

	assert.Equal(t, Stats{Hits: 2, Timeouts: 1}, s.Stats())
}

func TestStoreNoTimeoutNeverExpires(t *testing.T) {
	s, clock := newTestStore(2, 8, NoTimeout)

	fill(t, s, 0, 8, make([]byte, 8))
	clock.advance(1000 * time.Hour)

	_, outcome := s.Read(addrrange.Of(0, 4))
	assert.Equal(t, Hit, outcome)
}

func TestStoreWriteMirror(t *testing.T) {
	s, _ := newTestStore(2, 8, NoTimeout)

	fill(t, s, 0, 8, make([]byte, 8))

	s.Write(addrrange.Of(2, 4), []byte{7, 7})
	data, outcome := s.Read(addrrange.Of(0, 8))
	require.Equal(t, Hit, outcome)
	assert.Equal(t, []byte{0, 0, 7, 7, 0, 0, 0, 0}, data)

	// A write outside any cached line is dropped without erroring.
	s.Write(addrrange.Of(100, 102), []byte{1, 2})
	_, outcome = s.Read(addrrange.Of(100, 102))
	assert.Equal(t, Miss, outcome)
}

func TestStoreInvalidate(t *testing.T) {
	s, _ := newTestStore(2, 8, NoTimeout)

	fill(t, s, 0, 8, make([]byte, 8))
	s.Invalidate()

	_, outcome := s.Read(addrrange.Of(0, 4))
	assert.Equal(t, Miss, outcome)
}

func TestStoreClearStats(t *testing.T) {
	s, _ := newTestStore(2, 8, NoTimeout)

	_, _ = s.Read(addrrange.Of(0, 4))
	require.NotZero(t, s.Stats().Misses)

	s.ClearStats()
	assert.Equal(t, Stats{}, s.Stats())
}
