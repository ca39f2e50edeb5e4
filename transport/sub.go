package transport

import "context"

// Sub exposes a window of another Transport shifted by a fixed offset.
// Address 0 of the Sub corresponds to address offset of the inner
// transport. Useful for addressing one device out of a larger map.
type Sub struct {
	inner  Transport
	offset uint64
}

// NewSub returns a Transport view of inner shifted by offset. Nested Subs
// collapse into a single hop so deep structures don't pay per-level call
// overhead.
func NewSub(inner Transport, offset uint64) *Sub {
	if s, ok := inner.(*Sub); ok {
		return &Sub{inner: s.inner, offset: s.offset + offset}
	}
	return &Sub{inner: inner, offset: offset}
}

// ReadBytes implements Transport.
func (s *Sub) ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error) {
	return s.inner.ReadBytes(ctx, addr+s.offset, count)
}

// WriteBytes implements Transport.
func (s *Sub) WriteBytes(ctx context.Context, addr uint64, data []byte) error {
	return s.inner.WriteBytes(ctx, addr+s.offset, data)
}
