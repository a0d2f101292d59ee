package vector

import (
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

type allocatorMetrics struct {
	allocations    prometheus.Counter
	frees          prometheus.Counter
	failures       prometheus.Counter
	allocatedBytes prometheus.Gauge
}

// newAllocatorMetrics registers the allocator metrics on reg. Allocators
// built on the same registry share the metrics registered first.
func newAllocatorMetrics(reg prometheus.Registerer) *allocatorMetrics {
	m := &allocatorMetrics{
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vector_allocations_total",
			Help: "Total number of raw regions handed out.",
		}),
		frees: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vector_frees_total",
			Help: "Total number of raw regions returned.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vector_allocation_failures_total",
			Help: "Total number of allocation requests that failed.",
		}),
		allocatedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vector_allocated_bytes",
			Help: "Bytes currently handed out.",
		}),
	}
	if reg != nil {
		m.allocations = register(reg, m.allocations)
		m.frees = register(reg, m.frees)
		m.failures = register(reg, m.failures)
		m.allocatedBytes = register(reg, m.allocatedBytes)
	}
	return m
}

// register adds c to reg and returns it, or returns the collector already
// registered under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// AllocatorStats is a snapshot of an InstrumentedAllocator's counters.
type AllocatorStats struct {
	Allocations int64 // Regions handed out
	Frees       int64 // Regions returned
	Failures    int64 // Failed requests
	InUse       int64 // Bytes currently handed out
}

// InstrumentedAllocator records metrics and logs for every request passed to
// the allocator it wraps.
type InstrumentedAllocator struct {
	next    Allocator
	logger  log.Logger
	metrics *allocatorMetrics

	allocations atomic.Int64
	frees       atomic.Int64
	failures    atomic.Int64
	inUse       atomic.Int64
}

// NewInstrumentedAllocator wraps next. reg may be nil to skip registration;
// a nil logger discards output.
func NewInstrumentedAllocator(next Allocator, reg prometheus.Registerer, logger log.Logger) *InstrumentedAllocator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &InstrumentedAllocator{
		next:    next,
		logger:  logger,
		metrics: newAllocatorMetrics(reg),
	}
}

// Allocate forwards the request and records its outcome.
func (a *InstrumentedAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	p, err := a.next.Allocate(l)
	if err != nil {
		a.failures.Inc()
		a.metrics.failures.Inc()
		level.Warn(a.logger).Log("msg", "allocation failed", "layout", l, "bytes", l.Size(), "err", err)
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	size := int64(l.Size())
	a.allocations.Inc()
	a.inUse.Add(size)
	a.metrics.allocations.Inc()
	a.metrics.allocatedBytes.Add(float64(size))
	level.Debug(a.logger).Log("msg", "allocated", "layout", l, "bytes", size)
	return p, nil
}

// Free forwards the region and records it as returned.
func (a *InstrumentedAllocator) Free(p unsafe.Pointer, l Layout) {
	if p == nil {
		return
	}
	a.next.Free(p, l)
	size := int64(l.Size())
	a.frees.Inc()
	a.inUse.Sub(size)
	a.metrics.frees.Inc()
	a.metrics.allocatedBytes.Sub(float64(size))
	level.Debug(a.logger).Log("msg", "freed", "layout", l, "bytes", size)
}

// Stats returns a snapshot of the allocator's counters.
func (a *InstrumentedAllocator) Stats() AllocatorStats {
	return AllocatorStats{
		Allocations: a.allocations.Load(),
		Frees:       a.frees.Load(),
		Failures:    a.failures.Load(),
		InUse:       a.inUse.Load(),
	}
}

// Unwrap returns the wrapped allocator.
func (a *InstrumentedAllocator) Unwrap() Allocator {
	return a.next
}
