package remotemem

import (
	"context"
	"math/bits"
	"time"

	"github.com/hupe1980/remotemem/addrrange"
	"github.com/hupe1980/remotemem/cache"
	"github.com/hupe1980/remotemem/transport"
)

// Transport is the raw byte-addressed contract a CachedHandler wraps and
// also satisfies, so handlers stack on anything transport-shaped.
type Transport = transport.Transport

// CachedHandler caches and prefetches reads against a slow Transport.
//
// The address space is divided into power-of-two sized cache lines. A read
// that misses the cache fetches the whole line it lives in, so neighboring
// reads are served locally afterwards. Writes always go through to the
// transport immediately and are mirrored into any line that already holds
// the written addresses.
//
// Two address sets tune the behavior at runtime:
//
//   - NoCache: addresses that must never be served from the cache (e.g. a
//     live ADC result register). Reads touching them always hit the
//     transport directly.
//   - NoPrefetch: addresses that may only be fetched when explicitly
//     requested (e.g. a register that pops a FIFO). Speculative line fills
//     are carved around them.
//
// Every address in NoPrefetch must also be in NoCache; the easiest way is
// to populate both and then union NoPrefetch into NoCache. Violating this
// yields stale data, not a crash.
//
// CachedHandler serves one logical caller at a time; wrap it in a lock if
// several goroutines share it.
type CachedHandler struct {
	transport Transport
	store     *cache.Store
	linebytes uint64

	nocache    *addrrange.Range
	noprefetch *addrrange.Range

	logger  *Logger
	metrics MetricsCollector
}

var _ Transport = (*CachedHandler)(nil)

// New wraps t in a CachedHandler. The line size must be a power of two.
func New(t Transport, opts ...Option) (*CachedHandler, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.linebytes <= 0 || bits.OnesCount64(uint64(o.linebytes)) != 1 {
		return nil, ErrLineSize
	}
	if o.sets <= 0 {
		return nil, ErrNoSets
	}

	return &CachedHandler{
		transport:  t,
		store:      cache.NewStore(o.sets, o.linebytes, o.timeout, o.stats),
		linebytes:  uint64(o.linebytes),
		nocache:    addrrange.New(),
		noprefetch: addrrange.New(),
		logger:     o.logger,
		metrics:    o.metrics,
	}, nil
}

// NoCache returns the mutable set of addresses that bypass the cache.
func (h *CachedHandler) NoCache() *addrrange.Range {
	return h.nocache
}

// NoPrefetch returns the mutable set of addresses excluded from
// speculative line fills.
func (h *CachedHandler) NoPrefetch() *addrrange.Range {
	return h.noprefetch
}

// LineBytes returns the configured cache line size.
func (h *CachedHandler) LineBytes() int {
	return int(h.linebytes)
}

// Timeout returns the freshness deadline (see cache.NoTimeout).
func (h *CachedHandler) Timeout() time.Duration {
	return h.store.Timeout()
}

// SetTimeout changes the freshness deadline: cache.NoTimeout keeps lines
// forever, 0 disables caching, positive values expire lines lazily.
func (h *CachedHandler) SetTimeout(d time.Duration) {
	h.store.SetTimeout(d)
}

// Stats returns the hit/miss/timeout counters.
func (h *CachedHandler) Stats() cache.Stats {
	return h.store.Stats()
}

// ClearStats zeroes the hit/miss/timeout counters.
func (h *CachedHandler) ClearStats() {
	h.store.ClearStats()
}

// Invalidate dumps every cached line.
func (h *CachedHandler) Invalidate() {
	h.store.Invalidate()
}

// roundDown rounds addr down to the nearest line boundary.
func (h *CachedHandler) roundDown(addr uint64) uint64 {
	return addr &^ (h.linebytes - 1)
}

// splitLines cuts the request [addr, addr+count) at every line boundary
// strictly inside it, yielding pieces that never straddle a line.
func (h *CachedHandler) splitLines(addr uint64, count int) []*addrrange.Range {
	full := addrrange.Of(addr, addr+uint64(count))

	var points []uint64
	for p := h.roundDown(addr) + h.linebytes; p < addr+uint64(count); p += h.linebytes {
		points = append(points, p)
	}
	return full.Split(points...)
}

// ReadBytes implements Transport. The request is processed one
// line-bounded piece at a time; a transport failure aborts the remaining
// pieces.
func (h *CachedHandler) ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error) {
	start := time.Now()
	out := make([]byte, 0, count)

	for _, piece := range h.splitLines(addr, count) {
		data, err := h.readPiece(ctx, piece)
		if err != nil {
			h.metrics.RecordRead(len(out), time.Since(start), err)
			return nil, err
		}
		out = append(out, data...)
	}

	h.metrics.RecordRead(len(out), time.Since(start), nil)
	return out, nil
}

// readPiece serves one piece that is guaranteed not to cross a line
// boundary.
func (h *CachedHandler) readPiece(ctx context.Context, piece *addrrange.Range) ([]byte, error) {
	// Anything touching the never-cache set goes straight to the
	// transport, whole. Cheaper than splicing fresh bytes into a cached
	// copy, and never stale.
	if !h.nocache.Disjoint(piece) {
		h.logger.LogDirect(ctx, piece)
		return h.transport.ReadBytes(ctx, piece.Min(), int(piece.Span()))
	}

	if data, outcome := h.store.Read(piece); outcome == cache.Hit {
		return data, nil
	}

	// Miss or stale: fill the line this piece lives in.
	base := h.roundDown(piece.Min())
	block := addrrange.Of(base, base+h.linebytes)

	extent, buf, err := h.fetchSafely(ctx, piece, block)
	if err != nil {
		return nil, err
	}

	line, err := h.store.Update(extent, buf)
	if err != nil {
		return nil, err
	}
	return line.Read(piece, h.store.Now()), nil
}

// fetchSafely pulls the desired block from the transport in as few reads
// as possible without speculatively touching never-prefetch addresses
// outside the needed piece. It returns the extent actually populated,
// which shrinks from desired when never-prefetch carves it, together with
// a buffer of extent.Span() bytes laid out from extent.Min().
func (h *CachedHandler) fetchSafely(ctx context.Context, needed, desired *addrrange.Range) (*addrrange.Range, []byte, error) {
	fetchStart := time.Now()

	// Common case: nothing carved, one full-line read.
	if h.noprefetch.Disjoint(desired) {
		data, err := h.transport.ReadBytes(ctx, desired.Min(), int(desired.Span()))
		h.metrics.RecordFill(len(data), time.Since(fetchStart), err)
		h.logger.LogFill(ctx, desired, err)
		if err != nil {
			return nil, nil, err
		}
		return desired.Clone(), data, nil
	}

	// Carve the never-prefetch addresses out of the speculative part,
	// then drop pieces that no longer touch the needed range: they would
	// cost extra transactions for bytes nobody asked about.
	want := desired.Diff(h.noprefetch).Union(needed)
	keep := addrrange.New()
	for sub := range want.Subranges() {
		if !sub.Disjoint(needed) {
			keep = keep.Union(sub)
		}
	}

	buf := make([]byte, keep.Span())
	base := keep.Min()
	for start, stop := range keep.Pairs() {
		data, err := h.transport.ReadBytes(ctx, start, int(stop-start))
		h.metrics.RecordFill(len(data), time.Since(fetchStart), err)
		h.logger.LogFill(ctx, keep, err)
		if err != nil {
			return nil, nil, err
		}
		copy(buf[start-base:], data)
	}
	return keep, buf, nil
}

// WriteBytes implements Transport. Write-through: every piece is written
// to the transport unconditionally, then mirrored into the cache when a
// line already covers it. A transport failure aborts the remaining pieces;
// earlier pieces stay written.
func (h *CachedHandler) WriteBytes(ctx context.Context, addr uint64, data []byte) error {
	start := time.Now()

	var off uint64
	for _, piece := range h.splitLines(addr, len(data)) {
		chunk := data[off : off+piece.Span()]
		if err := h.transport.WriteBytes(ctx, piece.Min(), chunk); err != nil {
			h.metrics.RecordWrite(int(off), time.Since(start), err)
			return err
		}
		h.store.Write(piece, chunk)
		off += piece.Span()
	}

	h.metrics.RecordWrite(len(data), time.Since(start), nil)
	return nil
}
