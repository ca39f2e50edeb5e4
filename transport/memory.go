package transport

import (
	"context"
	"fmt"
)

// Mem is an in-memory Transport backed by a plain byte slice. It doubles as
// a device simulator for tests and examples, keeping the same diagnostic
// counters a real link driver would: transaction and byte totals.
//
// The counters are plain fields because a Transport serves one logical
// caller at a time.
type Mem struct {
	data []byte

	Reads        int
	Writes       int
	BytesRead    int
	BytesWritten int
}

// NewMem returns a Mem with a zeroed address space of the given size.
func NewMem(size int) *Mem {
	return &Mem{data: make([]byte, size)}
}

// NewMemBytes returns a Mem that aliases buf; reads and writes go straight
// through to it.
func NewMemBytes(buf []byte) *Mem {
	return &Mem{data: buf}
}

// Bytes returns the backing slice.
func (m *Mem) Bytes() []byte {
	return m.data
}

// Size returns the size of the address space.
func (m *Mem) Size() int {
	return len(m.data)
}

// ClearStats zeroes the diagnostic counters.
func (m *Mem) ClearStats() {
	m.Reads = 0
	m.Writes = 0
	m.BytesRead = 0
	m.BytesWritten = 0
}

func (m *Mem) bounds(addr uint64, count int) error {
	if count < 0 || addr > uint64(len(m.data)) || uint64(count) > uint64(len(m.data))-addr {
		return fmt.Errorf("%w: [%#x, %#x) outside [0, %#x)", ErrOutOfBounds, addr, addr+uint64(count), len(m.data))
	}
	return nil
}

// ReadBytes implements Transport.
func (m *Mem) ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.bounds(addr, count); err != nil {
		return nil, err
	}

	m.Reads++
	m.BytesRead += count

	out := make([]byte, count)
	copy(out, m.data[addr:])
	return out, nil
}

// WriteBytes implements Transport.
func (m *Mem) WriteBytes(ctx context.Context, addr uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.bounds(addr, len(data)); err != nil {
		return err
	}

	m.Writes++
	m.BytesWritten += len(data)

	copy(m.data[addr:], data)
	return nil
}
