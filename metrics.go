package remotemem

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational measurements from a CachedHandler.
// Implement it to feed a monitoring system; the cache's own hit/miss/
// timeout counters remain available through Stats regardless.
type MetricsCollector interface {
	// RecordRead is called after each ReadBytes with the bytes delivered
	// and the total duration. err is nil on success.
	RecordRead(bytes int, duration time.Duration, err error)

	// RecordWrite is called after each WriteBytes with the bytes written
	// through and the total duration. err is nil on success.
	RecordWrite(bytes int, duration time.Duration, err error)

	// RecordFill is called for each transport fetch made to fill a cache
	// line.
	RecordFill(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector discards all measurements.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRead(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordWrite(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFill(int, time.Duration, error)  {}

// BasicMetricsCollector keeps simple in-memory totals. Useful for
// debugging and tests without an external monitoring stack.
type BasicMetricsCollector struct {
	ReadCount       atomic.Int64
	ReadBytes       atomic.Int64
	ReadErrors      atomic.Int64
	ReadTotalNanos  atomic.Int64
	WriteCount      atomic.Int64
	WriteBytes      atomic.Int64
	WriteErrors     atomic.Int64
	WriteTotalNanos atomic.Int64
	FillCount       atomic.Int64
	FillBytes       atomic.Int64
	FillErrors      atomic.Int64
	FillTotalNanos  atomic.Int64
}

func (c *BasicMetricsCollector) RecordRead(bytes int, d time.Duration, err error) {
	c.ReadCount.Add(1)
	c.ReadBytes.Add(int64(bytes))
	c.ReadTotalNanos.Add(int64(d))
	if err != nil {
		c.ReadErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordWrite(bytes int, d time.Duration, err error) {
	c.WriteCount.Add(1)
	c.WriteBytes.Add(int64(bytes))
	c.WriteTotalNanos.Add(int64(d))
	if err != nil {
		c.WriteErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordFill(bytes int, d time.Duration, err error) {
	c.FillCount.Add(1)
	c.FillBytes.Add(int64(bytes))
	c.FillTotalNanos.Add(int64(d))
	if err != nil {
		c.FillErrors.Add(1)
	}
}
