package cache

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/remotemem/addrrange"
)

// NoTimeout makes cached lines valid forever. A timeout of 0 disables the
// cache entirely; a positive timeout expires a line that many nanoseconds
// after its last full update.
const NoTimeout = time.Duration(-1)

// Outcome classifies the result of a store search.
type Outcome int

const (
	// Hit means a line covers the requested range and is fresh.
	Hit Outcome = iota
	// Miss means no line covers the requested range.
	Miss
	// Stale means a covering line exists but exceeded the freshness
	// deadline. Handled exactly like a miss by callers: refetch and fill.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of the store's search counters.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Timeouts uint64
}

// Store is a fixed pool of cache lines with linear least-recently-read
// eviction. The pool never grows or shrinks; lines are recycled in place.
//
// Store is not safe for concurrent use (callers serialize externally).
type Store struct {
	timeout time.Duration
	sets    []*Line

	// evict points at the slot most recently determined to hold the
	// least-recently-read data. The scan in Search keeps it current.
	evict *Line

	// lastMiss remembers the range of the most recent failed search so
	// Update can verify the caller fills what it asked for.
	lastMiss *addrrange.Range

	statsOn  bool
	hits     atomic.Int64
	misses   atomic.Int64
	timeouts atomic.Int64

	now func() time.Time
}

// NewStore creates a pool of sets lines of linebytes bytes each.
// See NoTimeout for the timeout encoding; stats enables the search counters.
func NewStore(sets, linebytes int, timeout time.Duration, stats bool) *Store {
	s := &Store{
		timeout: timeout,
		sets:    make([]*Line, sets),
		statsOn: stats,
		now:     time.Now,
	}
	for i := range s.sets {
		s.sets[i] = newLine(linebytes)
	}
	s.Invalidate()
	return s
}

// Timeout returns the current freshness deadline (see NoTimeout).
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// SetTimeout changes the freshness deadline (see NoTimeout).
func (s *Store) SetTimeout(d time.Duration) {
	s.timeout = d
}

// Invalidate empties every line, reseeds the eviction candidate with the
// default slot and forgets the last missed range.
func (s *Store) Invalidate() {
	for _, line := range s.sets {
		line.Invalidate()
	}
	s.evict = s.sets[len(s.sets)-1]
	s.lastMiss = nil
}

// Stats returns a snapshot of the search counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:     uint64(s.hits.Load()),
		Misses:   uint64(s.misses.Load()),
		Timeouts: uint64(s.timeouts.Load()),
	}
}

// ClearStats zeroes the search counters.
func (s *Store) ClearStats() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.timeouts.Store(0)
}

func (s *Store) count(o Outcome) {
	if !s.statsOn {
		return
	}
	switch o {
	case Hit:
		s.hits.Add(1)
	case Miss:
		s.misses.Add(1)
	case Stale:
		s.timeouts.Add(1)
	}
}

func (s *Store) fail(rng *addrrange.Range, o Outcome) (*Line, Outcome) {
	s.lastMiss = rng.Clone()
	s.count(o)
	return nil, o
}

// Now returns the store's current time. Line reads performed outside the
// store (after an Update) should stamp with this clock so eviction
// ordering stays consistent.
func (s *Store) Now() time.Time {
	return s.now()
}

// Search finds the line covering rng, or classifies why none can serve it.
// Every call resolves to exactly one counted outcome.
//
// The scan doubles as eviction bookkeeping: while looking for a covering
// line it tracks the least-recently-read slot, and a stale covering line
// nominates itself as the next victim.
func (s *Store) Search(rng *addrrange.Range) (*Line, Outcome) {
	if s.timeout == 0 {
		return s.fail(rng, Miss)
	}

	for _, line := range s.sets {
		if line.Hit(rng) {
			if s.timeout > 0 && s.now().Sub(line.lastUpdate) > s.timeout {
				s.evict = line
				return s.fail(rng, Stale)
			}
			s.count(Hit)
			return line, Hit
		}
		if line.lastRead.Before(s.evict.lastRead) {
			s.evict = line
		}
	}
	return s.fail(rng, Miss)
}

// Read combines Search and Line.Read. On a miss or stale outcome data is
// nil and the caller is expected to fetch and call Update.
func (s *Store) Read(rng *addrrange.Range) ([]byte, Outcome) {
	line, outcome := s.Search(rng)
	if outcome != Hit {
		return nil, outcome
	}
	return line.Read(rng, s.now()), Hit
}

// Update fills a line with freshly fetched data after a failed search.
// rng must cover the most recently failed search range; anything else is a
// bug in the calling code and yields ErrInconsistentFill. The current
// eviction candidate becomes the victim and the candidate pointer is
// reseeded with the default slot for the next scan.
func (s *Store) Update(rng *addrrange.Range, data []byte) (*Line, error) {
	if s.lastMiss == nil || !rng.Superset(s.lastMiss) {
		return nil, ErrInconsistentFill
	}

	victim := s.evict
	s.evict = s.sets[len(s.sets)-1]
	s.lastMiss = nil

	if err := victim.Update(rng, data, s.now()); err != nil {
		return nil, err
	}
	return victim, nil
}

// Write mirrors a write-through into the cache, best effort. If no fresh
// line covers rng the write is dropped silently; the caller has already
// applied it to the backing transport.
func (s *Store) Write(rng *addrrange.Range, data []byte) {
	line, outcome := s.Search(rng)
	if outcome != Hit {
		return
	}
	// Covered and length-checked by construction; an error here is a bug
	// upstream and the mirror is simply dropped.
	_ = line.Write(rng, data)
}
