// Package transport defines the raw byte-addressed remote-memory contract
// and a few general-purpose implementations and decorators. A transport
// performs no caching of its own; wrap it in a remotemem.CachedHandler for
// that.
package transport

import (
	"context"
	"errors"
	"os"
)

// ErrNotFound is returned when a remote memory image does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrOutOfBounds is returned when a read or write falls outside the
// transport's address space.
var ErrOutOfBounds = errors.New("transport: address out of bounds")

// ErrReadOnly is returned by transports backed by immutable snapshots when
// a write is attempted.
var ErrReadOnly = errors.New("transport: read-only memory image")

// Transport is the raw addressed byte read/write primitive in front of a
// remote device or memory image. Implementations report communication
// problems as errors; they never cache.
type Transport interface {
	// ReadBytes returns exactly count bytes starting at addr.
	ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error)

	// WriteBytes stores data starting at addr.
	WriteBytes(ctx context.Context, addr uint64, data []byte) error
}
