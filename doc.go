// Package remotemem caches and prefetches byte-addressed reads against a
// slow remote-memory transport, such as a device register file behind a
// socket, a vsock channel, or an object-store snapshot.
//
// A CachedHandler divides the flat address space into power-of-two cache
// lines. Each read that misses the cache pulls the whole line around the
// requested address, so the next read of a neighboring register costs no
// round trip. Writes go through to the transport immediately, and any
// cached copy of the written addresses is patched in place.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	dev, _ := netmem.Dial("device:9000")
//	h, _ := remotemem.New(dev,
//	    remotemem.WithSets(8),
//	    remotemem.WithLineBytes(32),
//	)
//
//	b, _ := h.ReadBytes(ctx, 0x40, 4)  // fetches the whole [0x40, 0x60) line
//	b, _  = h.ReadBytes(ctx, 0x50, 4)  // served locally, zero round trips
//	_ = h.WriteBytes(ctx, 0x44, []byte{1, 2, 3, 4})
//
// # Freshness
//
// By default cached data never expires. WithTimeout(d) expires each line d
// after its last fill (checked lazily at lookup time); WithTimeout(0)
// disables caching without changing the call sites.
//
// # Volatile Addresses
//
// Registers with read side effects or live data need per-address opt-outs:
//
//	h.NoCache().Add(0x100, 0x104)     // always read fresh
//	h.NoPrefetch().Add(0x100, 0x104)  // never pull in speculatively
//
// Addresses in the never-prefetch set must also be in the never-cache set;
// populate both, or union one into the other.
//
// # Transports
//
// The transport subpackages provide backends: transport.Mem (in-memory,
// also a test double), netmem (framed protocol over TCP or vsock), s3mem
// and miniomem (read-only memory images via ranged object reads), and
// imagefile (local raw or compressed image files). Everything implementing
// the two-method Transport contract plugs in, and CachedHandler itself
// satisfies it, so the wrapper is a drop-in replacement.
package remotemem
