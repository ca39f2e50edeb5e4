package transport

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle paces another Transport with a byte-granularity token bucket.
// Use it for links that must not be saturated, e.g. a debug UART shared
// with a console.
type Throttle struct {
	inner   Transport
	limiter *rate.Limiter
}

// NewThrottle wraps inner with the given limiter. The limiter's tokens are
// bytes; size the burst to at least one cache line or transfers degrade to
// burst-sized chunks of waiting.
func NewThrottle(inner Transport, limiter *rate.Limiter) *Throttle {
	return &Throttle{inner: inner, limiter: limiter}
}

func (t *Throttle) wait(ctx context.Context, n int) error {
	for n > 0 {
		take := n
		if burst := t.limiter.Burst(); take > burst {
			take = burst
		}
		if err := t.limiter.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}

// ReadBytes implements Transport.
func (t *Throttle) ReadBytes(ctx context.Context, addr uint64, count int) ([]byte, error) {
	if err := t.wait(ctx, count); err != nil {
		return nil, err
	}
	return t.inner.ReadBytes(ctx, addr, count)
}

// WriteBytes implements Transport.
func (t *Throttle) WriteBytes(ctx context.Context, addr uint64, data []byte) error {
	if err := t.wait(ctx, len(data)); err != nil {
		return err
	}
	return t.inner.WriteBytes(ctx, addr, data)
}
