package imsic

import (
	"sync/atomic"
	"unsafe"
)

// Counter_t is a statistical counter: an int64 incremented via an
// unsafe.Pointer cast to keep the counter itself a plain, comparable,
// zero-value-usable type rather than wrapping an atomic.Int64. Dispatch
// counters built from it are always active here, not gated behind a
// build-time flag the way some counter packages default theirs to off:
// per-hwirq dispatch counts are this controller's only operator-visible
// diagnostic, so gating them off by default would leave nothing to read.
type Counter_t int64

// Inc atomically increments the counter.
func (c *Counter_t) Inc() {
	atomic.AddInt64((*int64)(unsafe.Pointer(c)), 1)
}

// Load atomically reads the counter.
func (c *Counter_t) Load() int64 {
	return atomic.LoadInt64((*int64)(unsafe.Pointer(c)))
}

// dispatchStats tracks how many times handle_irq has dispatched each
// hwirq, plus a count of scans that found nothing to dispatch.
type dispatchStats struct {
	perHwirq []Counter_t
	spurious Counter_t
}

func newDispatchStats(numIDs uint32) *dispatchStats {
	return &dispatchStats{perHwirq: make([]Counter_t, numIDs)}
}

func (s *dispatchStats) record(hwirq uint32) {
	if int(hwirq) < len(s.perHwirq) {
		s.perHwirq[hwirq].Inc()
	}
}

func (s *dispatchStats) recordSpurious() {
	s.spurious.Inc()
}

// Dispatches returns how many times hwirq has been dispatched.
func (s *dispatchStats) Dispatches(hwirq uint32) int64 {
	if int(hwirq) >= len(s.perHwirq) {
		return 0
	}
	return s.perHwirq[hwirq].Load()
}

// Spurious returns how many handle_irq scans found nothing to dispatch.
func (s *dispatchStats) Spurious() int64 {
	return s.spurious.Load()
}
