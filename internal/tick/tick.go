// Package tick provides the free-running millisecond counter the pulse meter
// times against.
package tick

import (
	"sync/atomic"
	"time"
)

// Source exposes a monotonically increasing millisecond count.
// The count wraps at the maximum uint32; use Since to take differences.
type Source interface {
	Millis() uint32
}

// Since returns now-start, correct across a counter wraparound.
func Since(start, now uint32) uint32 {
	return now - start
}

// Counter is a Source derived from the monotonic clock. The count is the
// number of whole milliseconds since the counter was created, so it keeps
// pace with real time no matter how rarely the reading goroutine is scheduled.
type Counter struct {
	epoch time.Time
	base  uint32
}

// NewCounter creates a counter starting at zero.
func NewCounter() *Counter {
	return &Counter{epoch: time.Now()}
}

// Millis returns the milliseconds elapsed since NewCounter, modulo 2^32.
func (c *Counter) Millis() uint32 {
	return c.base + uint32(time.Since(c.epoch)/time.Millisecond)
}

// Fake is a manually advanced Source for tests.
type Fake struct {
	ms atomic.Uint32
}

// NewFake creates a Fake starting at start.
func NewFake(start uint32) *Fake {
	f := &Fake{}
	f.ms.Store(start)
	return f
}

// Millis returns the current count.
func (f *Fake) Millis() uint32 {
	return f.ms.Load()
}

// Advance moves the count forward by n, wrapping like the real counter.
func (f *Fake) Advance(n uint32) {
	f.ms.Add(n)
}
