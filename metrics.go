package vector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ArenaMetrics is a snapshot of an arena's chunk usage.
type ArenaMetrics struct {
	SizeInUse   int     // Bytes carved out, including alignment padding
	Capacity    int     // Bytes held in chunks
	NumChunks   int     // Chunks held
	ChunkSize   int     // Size of a regular chunk
	Utilization float64 // SizeInUse / Capacity, 0 without chunks
}

// Metrics walks the chunks once and returns their usage. A released arena
// reports zeros apart from ChunkSize.
func (a *ArenaAllocator) Metrics() ArenaMetrics {
	m := ArenaMetrics{NumChunks: len(a.chunks), ChunkSize: a.chunkSize}
	for _, c := range a.chunks {
		m.SizeInUse += int(c.offset)
		m.Capacity += len(c.buf)
	}
	if m.Capacity > 0 {
		m.Utilization = float64(m.SizeInUse) / float64(m.Capacity)
	}
	return m
}

// SizeInUse returns the bytes carved out of all chunks.
func (a *ArenaAllocator) SizeInUse() int { return a.Metrics().SizeInUse }

// NumChunks returns the number of chunks held.
func (a *ArenaAllocator) NumChunks() int { return len(a.chunks) }

// Capacity returns the bytes held in chunks.
func (a *ArenaAllocator) Capacity() int { return a.Metrics().Capacity }

// Utilization returns SizeInUse / Capacity.
func (a *ArenaAllocator) Utilization() float64 { return a.Metrics().Utilization }

// ChunkSize returns the size of a regular chunk.
func (a *ArenaAllocator) ChunkSize() int { return a.chunkSize }

// Metrics returns the wrapped arena's usage under the lock. ok is false when
// the wrapped allocator is not an arena.
func (s *SafeAllocator) Metrics() (m ArenaMetrics, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, isArena := s.a.(*ArenaAllocator); isArena {
		return a.Metrics(), true
	}
	return ArenaMetrics{}, false
}

// arenaCollector exports the usage of a shared arena on every scrape.
type arenaCollector struct {
	arena *SafeAllocator

	bytesInUse  *prometheus.Desc
	capacity    *prometheus.Desc
	chunks      *prometheus.Desc
	utilization *prometheus.Desc
}

func newArenaCollector(arena *SafeAllocator) *arenaCollector {
	return &arenaCollector{
		arena:       arena,
		bytesInUse:  prometheus.NewDesc("vector_arena_bytes_in_use", "Bytes carved out of arena chunks.", nil, nil),
		capacity:    prometheus.NewDesc("vector_arena_capacity_bytes", "Bytes held in arena chunks.", nil, nil),
		chunks:      prometheus.NewDesc("vector_arena_chunks", "Number of arena chunks.", nil, nil),
		utilization: prometheus.NewDesc("vector_arena_utilization", "Ratio of arena bytes in use to capacity.", nil, nil),
	}
}

func (c *arenaCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bytesInUse
	ch <- c.capacity
	ch <- c.chunks
	ch <- c.utilization
}

func (c *arenaCollector) Collect(ch chan<- prometheus.Metric) {
	m, ok := c.arena.Metrics()
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.bytesInUse, prometheus.GaugeValue, float64(m.SizeInUse))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(m.Capacity))
	ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.GaugeValue, float64(m.NumChunks))
	ch <- prometheus.MustNewConstMetric(c.utilization, prometheus.GaugeValue, m.Utilization)
}

// registerArenaCollector exports arena usage on reg, replacing the collector
// of an arena installed earlier on the same registry.
func registerArenaCollector(reg prometheus.Registerer, arena *SafeAllocator) error {
	if reg == nil {
		return nil
	}
	c := newArenaCollector(arena)
	reg.Unregister(c)
	return reg.Register(c)
}
